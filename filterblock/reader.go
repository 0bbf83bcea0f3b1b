package filterblock

import (
	"math"
	"sync"
	"sync/atomic"

	"filcache/filterpolicy"
	"filcache/utils/codec"
	"filcache/utils/errs"
)

// kLifeTime is the number of sequence-number units after which a reader
// that has not been probed is considered cold and eligible for eviction.
const kLifeTime = 10000

// trailerFixedLen is the byte length of the trailer fields after the
// offsets array: disk_offset(8) + disk_size(4) + init_units(4) +
// all_units(4) + base_lg(1).
const trailerFixedLen = 8 + 4 + 4 + 4 + 1

// Reader owns 0..N resident units for one table's filter block and answers
// KeyMayMatch by AND-ing probes across whichever units are currently
// loaded. Residency is tracked LIFO: the loaded set is always the
// contiguous prefix of unit indices [0, k), so loading always appends unit
// k and eviction always drops unit k-1.
type Reader struct {
	policy     filterpolicy.FilterPolicy
	baseLg     uint
	diskOffset uint64
	unitSize   uint32
	k0         int
	unitsN     int
	offsets    []uint32
	file       RandomAccessFile

	mu    sync.Mutex
	units [][]byte // stack; len(units) is the current residency

	gate     *Gate
	loader   *Loader

	accessCount uint64 // atomic
	lastSN      uint64 // atomic
}

// NewReader parses trailer (as produced by Builder.Finish), binds it to
// file, and schedules the initial load of k0 units on loader. Construction
// returns immediately; callers that need to probe before the initial load
// completes will block inside KeyMayMatch on the reader's gate.
func NewReader(policy filterpolicy.FilterPolicy, trailer []byte, file RandomAccessFile, loader *Loader) (*Reader, error) {
	n := len(trailer)
	if n < trailerFixedLen {
		return nil, errs.ErrCorruptTrailer
	}

	baseLg := uint(trailer[n-1])
	unitsN := int(codec.DecodeFixed32(trailer[n-5 : n-1]))
	k0 := int(codec.DecodeFixed32(trailer[n-9 : n-5]))
	unitSize := codec.DecodeFixed32(trailer[n-13 : n-9])
	diskOffset := codec.DecodeFixed64(trailer[n-21 : n-13])

	if k0 < 0 || k0 > unitsN || unitsN < 0 {
		return nil, errs.ErrCorruptTrailer
	}

	offsetBytes := trailer[:n-trailerFixedLen]
	if len(offsetBytes)%4 != 0 {
		return nil, errs.ErrCorruptTrailer
	}
	offsets := make([]uint32, len(offsetBytes)/4)
	for i := range offsets {
		offsets[i] = codec.DecodeFixed32(offsetBytes[i*4 : i*4+4])
	}

	r := &Reader{
		policy:     policy,
		baseLg:     baseLg,
		diskOffset: diskOffset,
		unitSize:   unitSize,
		k0:         k0,
		unitsN:     unitsN,
		offsets:    offsets,
		file:       file,
		gate:       NewGate(),
		loader:     loader,
	}

	loader.Schedule(r.initLoadFilter)
	return r, nil
}

// initLoadFilter is the body of the background job: it loads k0 units and
// then opens the gate regardless of outcome, so waiters unblock even with a
// partially- or zero-loaded reader (which behaves as "may match").
func (r *Reader) initLoadFilter() {
	for i := 0; i < r.k0; i++ {
		if err := r.LoadFilter(); err != nil {
			errs.Err(err)
			break
		}
	}
	r.gate.Open()
}

// KeyMayMatch never fails: on any internal inconsistency it conservatively
// returns true (superset semantics), matching the store's correctness
// requirement that a filter cache miss costs an extra block read, never a
// wrong answer.
func (r *Reader) KeyMayMatch(blockOffset uint64, key []byte) bool {
	r.gate.Wait()

	atomic.AddUint64(&r.accessCount, 1)
	if sn, ok := parseSeq(key); ok {
		atomic.StoreUint64(&r.lastSN, sn)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	numBases := 0
	if len(r.offsets) > 0 {
		numBases = len(r.offsets) - 1
	}
	index := int(blockOffset >> r.baseLg)
	if index < 0 || index >= numBases {
		return true
	}

	start, limit := r.offsets[index], r.offsets[index+1]
	if start == limit {
		return false
	}
	if start > limit || uint64(limit) > uint64(r.unitSize) {
		return true
	}

	for u, unit := range r.units {
		if uint64(limit) > uint64(len(unit)) {
			return true
		}
		if !r.policy.KeyMayMatch(key, unit[start:limit], u) {
			return false
		}
	}
	return true
}

// LoadFilter brings the next sequential unit into residency.
func (r *Reader) LoadFilter() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadFilterLocked()
}

func (r *Reader) loadFilterLocked() error {
	index := len(r.units)
	if index >= r.unitsN {
		return errs.ErrExhausted
	}

	buf := make([]byte, r.unitSize)
	offset := int64(r.diskOffset) + int64(r.unitSize)*int64(index)
	if _, err := r.file.ReadAt(buf, offset); err != nil {
		return errs.Wrap(err, "filterblock: load unit")
	}

	r.units = append(r.units, buf)
	return nil
}

// EvictFilter drops the most recently loaded unit (LIFO).
func (r *Reader) EvictFilter() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictFilterLocked()
}

func (r *Reader) evictFilterLocked() error {
	if len(r.units) == 0 {
		return errs.ErrEmpty
	}
	r.units = r.units[:len(r.units)-1]
	return nil
}

// GoBackToInitFilter re-binds the file handle (the table may have been
// reopened after a close) and restores residency to exactly k0.
func (r *Reader) GoBackToInitFilter(file RandomAccessFile) error {
	r.mu.Lock()
	r.file = file
	r.units = r.units[:0]
	r.mu.Unlock()

	for i := 0; i < r.k0; i++ {
		if err := r.LoadFilter(); err != nil {
			return err
		}
	}
	return nil
}

// Release drops every resident unit without changing k0/unitsN, used when
// the containing table is closed but the cache entry is retained for a
// possible reopen.
func (r *Reader) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units = r.units[:0]
}

// WaitInitLoad blocks until the background initial load has completed.
// Exported so tests can make residency assertions deterministic instead of
// racing the loader goroutine, and so sstable.Table can let the load finish
// before it unmaps the file the loader reads from.
func (r *Reader) WaitInitLoad() {
	r.gate.Wait()
}

func (r *Reader) residency() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.units)
}

// Residency reports the current number of resident units. The multiqueue
// adjuster uses it to decide which queue a reader's node belongs in.
func (r *Reader) Residency() int {
	return r.residency()
}

func (r *Reader) FilterUnitsNumber() int { return r.unitsN }
func (r *Reader) LoadFilterNumber() int  { return r.k0 }
func (r *Reader) OneUnitSize() int64     { return int64(r.unitSize) }

func (r *Reader) Size() int64 {
	return int64(r.residency()) * int64(r.unitSize)
}

func (r *Reader) AccessTime() uint64 {
	return atomic.LoadUint64(&r.accessCount)
}

// IsCold reports whether sn is far enough past the last observed probe
// sequence number that the reader has gone unused for kLifeTime.
func (r *Reader) IsCold(sn uint64) bool {
	return sn >= atomic.LoadUint64(&r.lastSN)+kLifeTime
}

// CanBeLoaded reports whether one more unit would fit (residency < N).
func (r *Reader) CanBeLoaded() bool {
	return r.residency() < r.unitsN
}

// CanBeEvict reports whether at least one unit is resident.
func (r *Reader) CanBeEvict() bool {
	return r.residency() > 0
}

// IOs, LoadIOs and EvictIOs are the cost-model estimates the adjuster uses:
// the expected number of wasted block reads implied by the current,
// one-more-loaded, and one-fewer-loaded residency respectively.
func (r *Reader) IOs() float64 {
	return r.costAt(r.residency())
}

func (r *Reader) LoadIOs() float64 {
	return r.costAt(r.residency() + 1)
}

func (r *Reader) EvictIOs() float64 {
	return r.costAt(r.residency() - 1)
}

func (r *Reader) costAt(k int) float64 {
	if k < 0 {
		k = 0
	}
	rate := r.policy.FalsePositiveRate()
	access := float64(atomic.LoadUint64(&r.accessCount))
	return math.Pow(rate, float64(k)) * access
}

// parseSeq extracts a trailing little-endian uint64 sequence number from an
// internal key (userKey || seq), the convention used throughout the store's
// memtable and SSTable encodings. Keys shorter than 8 bytes carry no
// sequence number.
func parseSeq(key []byte) (uint64, bool) {
	if len(key) < 8 {
		return 0, false
	}
	return codec.DecodeFixed64(key[len(key)-8:]), true
}
