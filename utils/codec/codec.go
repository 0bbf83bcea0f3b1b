package codec

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"filcache/utils/errs"
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// CalculateChecksum returns the CRC32C checksum of data as a uint64, matching
// the width the on-disk block trailers reserve for it.
func CalculateChecksum(data []byte) uint64 {
	return uint64(crc32.Checksum(data, castagnoliTable))
}

// CalculateU32Checksum is the 32-bit form used by the WAL and value log
// record headers.
func CalculateU32Checksum(data []byte) uint32 {
	return crc32.Checksum(data, castagnoliTable)
}

// VerifyChecksum reports an error if the CRC32C of data does not match want
// (as produced by CalculateChecksum).
func VerifyChecksum(data []byte, want []byte) error {
	if len(want) != 8 {
		return errs.ErrChecksumMismatch
	}
	got := CalculateChecksum(data)
	if got != binary.LittleEndian.Uint64(want) {
		return errs.ErrChecksumMismatch
	}
	return nil
}

// VerifyU32Checksum is the 32-bit counterpart of VerifyChecksum.
func VerifyU32Checksum(data []byte, want uint32) error {
	if CalculateU32Checksum(data) != want {
		return errs.ErrChecksumMismatch
	}
	return nil
}

// EncodeVarint32 writes v to buf using the standard LEB128 varint encoding
// and returns the number of bytes written.
func EncodeVarint32(buf []byte, v uint32) int {
	return binary.PutUvarint(buf, uint64(v))
}

// ReadUVarint32 reads a varint-encoded uint32 from r.
func ReadUVarint32(r io.ByteReader) (uint32, error) {
	v, err := binary.ReadUvarint(r)
	return uint32(v), err
}

// VarintLength returns the number of bytes the LEB128 varint encoding
// (EncodeVarint32, binary.PutUvarint) uses to encode v.
func VarintLength(v uint64) int {
	n := 1
	for v >= 128 {
		v >>= 7
		n++
	}
	return n
}

// PutFixed32 writes v into buf[0:4] as a little-endian uint32.
func PutFixed32(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// PutFixed64 writes v into buf[0:8] as a little-endian uint64.
func PutFixed64(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf, v)
}

// DecodeFixed32 reads a little-endian uint32.
func DecodeFixed32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

// DecodeFixed64 reads a little-endian uint64.
func DecodeFixed64(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}
