// Package convert holds the small fixed-width byte<->integer helpers used
// throughout the on-disk formats (WAL records, value log records, block
// trailers).
package convert

import "encoding/binary"

func U16ToBytes(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func BytesToU16(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b)
}

func U32ToBytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func BytesToU32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

func U64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func BytesToU64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

func U32SliceToBytes(v []uint32) []byte {
	b := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[i*4:], x)
	}
	return b
}

func BytesToU32Slice(b []byte) []uint32 {
	v := make([]uint32, len(b)/4)
	for i := range v {
		v[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return v
}
