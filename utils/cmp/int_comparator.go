package cmp

import "bytes"

// ByteComparator orders keys lexicographically; the default comparator for
// the store.
type ByteComparator struct{}

func (ByteComparator) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// IntComparator treats keys as ASCII-encoded decimal integers, falling back
// to a byte comparison to break ties, useful for benchmarks that key by a
// monotonic counter.
type IntComparator struct{}

func (IntComparator) Compare(a, b []byte) int {
	sa := calc(a)
	sb := calc(b)
	if sa == sb {
		return bytes.Compare(a, b)
	}
	if sa < sb {
		return -1
	}
	return 1
}

func calc(key []byte) int {
	var value int
	for i := 0; i < len(key); i++ {
		value = value*10 + int(key[i]) - '0'
	}
	return value
}
