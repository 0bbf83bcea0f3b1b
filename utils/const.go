package utils

import "hash/crc32"

var (
	MagicText    = [...]byte{'F', 'I', 'L', 'C', 'A', 'C', 'H', 'E'}
	MagicVersion = uint32(1)
	// CastagnoliCrcTable is a CRC32C polynomial table. The on-disk
	// checksums are computed by package codec with its own identical table;
	// nothing reads this one.
	CastagnoliCrcTable = crc32.MakeTable(crc32.Castagnoli)
)

const (
	VLogFileExt = ".vlog"
	SSTFileExt  = ".sst"
	WalFileExt  = ".wal"
)
