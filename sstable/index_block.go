package sstable

// IndexBlock is the decoded form of an SSTable's footer index: one
// BlockOffset per data block plus the table's total key count. Encoded and
// decoded by (*tableBuilder).finishIndexBlock / decodeIndexBlock.
type IndexBlock struct {
	BlockOffsets []*BlockOffset
	KeyCount     uint32
}

type BlockOffset struct {
	Key    []byte
	Offset uint32
	Len    uint32
}
