package filterblock

import (
	"filcache/filterpolicy"
	"filcache/utils/codec"
)

// DefaultBaseLg is the log2 of the byte granularity at which a fresh filter
// is emitted: one filter set per 2KiB of data-block bytes by default.
const DefaultBaseLg = 11

// Builder accumulates keys per data block and, at each filter-base boundary,
// emits FilterUnitsTotal independent bitmaps over the keys seen since the
// previous boundary. Call sequence: (StartBlock AddKey*)* Finish.
type Builder struct {
	policy      filterpolicy.FilterPolicy
	unitsTotal  int
	unitsLoaded int
	baseLg      uint

	keys   [][]byte
	units  [][]byte // units[i] is the growing concatenated bitmap buffer for unit index i
	starts []uint32 // per-base offsets into units[i], shared across all i
}

// NewBuilder returns a Builder that will emit unitsTotal independent units
// per filter base, of which unitsLoaded are meant to be resident when a
// reader first opens (recorded in the trailer for the reader to consume).
func NewBuilder(policy filterpolicy.FilterPolicy, unitsLoaded, unitsTotal int, baseLg uint) *Builder {
	if baseLg == 0 {
		baseLg = DefaultBaseLg
	}
	return &Builder{
		policy:      policy,
		unitsTotal:  unitsTotal,
		unitsLoaded: unitsLoaded,
		baseLg:      baseLg,
		units:       make([][]byte, unitsTotal),
	}
}

func (b *Builder) filterBase() uint64 {
	return 1 << b.baseLg
}

// StartBlock is called once per data block with that block's starting
// offset within the table's data section. Every filter-base boundary
// crossed since the previous call causes a fresh set of units to be
// generated from the keys accumulated so far.
func (b *Builder) StartBlock(blockOffset uint64) {
	filterIndex := blockOffset / b.filterBase()
	for uint64(len(b.starts)) < filterIndex {
		b.generateFilter()
	}
}

// AddKey records a key belonging to the block passed to the most recent
// StartBlock call.
func (b *Builder) AddKey(key []byte) {
	cp := make([]byte, len(key))
	copy(cp, key)
	b.keys = append(b.keys, cp)
}

// ReturnFilters exposes the raw per-unit bitmap buffers, in unit-index
// order, so the table writer can place them contiguously at disk_offset.
// All buffers have the same length U.
func (b *Builder) ReturnFilters() [][]byte {
	return b.units
}

// Finish flushes any pending keys as the final base's filters and returns
// the trailer bytes to append after the raw unit buffers. diskOffset is the
// byte offset within the table file where ReturnFilters()[0] begins.
func (b *Builder) Finish(diskOffset uint64) []byte {
	if len(b.keys) > 0 {
		b.generateFilter()
		// The last base has no following StartBlock to mark its end, so
		// record one explicitly.
		b.starts = append(b.starts, uint32(b.oneUnitSize()))
	}

	trailer := make([]byte, 0, len(b.starts)*4+8+4+4+4+1)
	off4 := make([]byte, 4)
	for _, off := range b.starts {
		codec.PutFixed32(off4, off)
		trailer = append(trailer, off4...)
	}

	off8 := make([]byte, 8)
	codec.PutFixed64(off8, diskOffset)
	trailer = append(trailer, off8...)

	codec.PutFixed32(off4, uint32(b.oneUnitSize()))
	trailer = append(trailer, off4...)

	codec.PutFixed32(off4, uint32(b.unitsLoaded))
	trailer = append(trailer, off4...)

	codec.PutFixed32(off4, uint32(b.unitsTotal))
	trailer = append(trailer, off4...)

	trailer = append(trailer, byte(b.baseLg))
	return trailer
}

func (b *Builder) oneUnitSize() int {
	if len(b.units) == 0 || b.units[0] == nil {
		return 0
	}
	return len(b.units[0])
}

func (b *Builder) generateFilter() {
	numKeys := len(b.keys)
	if numKeys == 0 {
		b.starts = append(b.starts, uint32(b.oneUnitSize()))
		return
	}

	b.starts = append(b.starts, uint32(b.oneUnitSize()))
	for i := 0; i < b.unitsTotal; i++ {
		bitmap := b.policy.CreateFilter(b.keys, i)
		b.units[i] = append(b.units[i], bitmap...)
	}
	b.keys = nil
}
