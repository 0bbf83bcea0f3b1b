// Package multiqueue implements the adaptive multi-queue filter cache: a
// vector of N+1 single queues, indexed by resident-unit count, plus the
// cost-model adjuster that decides when to swap a unit from a cold reader
// to a hot one.
package multiqueue

import (
	"sync"

	"filcache/filterblock"
	"filcache/utils/codec"
)

// Logger is the optional sink for adjustment diagnostics; nil is valid and
// silently drops log lines, matching the teacher pack's "logger is always
// optional" convention.
type Logger interface {
	Log(format string, args ...interface{})
}

// Handle is an opaque, stable reference to a multi-queue entry. Its
// identity never changes across adjustments; only the reader's residency
// and the entry's queue membership do.
type Handle struct {
	n *node
}

// MultiQueue owns every filter block reader for every open table, keyed by
// CacheKey ("filter." + policy name + fixed64 table id). queues[i] holds every reader whose
// residency currently equals i.
type MultiQueue struct {
	mu          sync.Mutex
	queues      []*SingleQueue
	index       map[string]*node
	usage       uint64
	adjustments uint64
	logger      Logger
	unitsTotal  int
}

// New returns a MultiQueue sized for readers built with unitsTotal units
// apiece (Options.FilterUnitsTotal).
func New(unitsTotal int) *MultiQueue {
	mq := &MultiQueue{
		queues:     make([]*SingleQueue, unitsTotal+1),
		index:      make(map[string]*node),
		unitsTotal: unitsTotal,
	}
	for i := range mq.queues {
		mq.queues[i] = NewSingleQueue()
	}
	return mq
}

// Lock/Unlock are exposed for compound operations that need to combine a
// Lookup with a follow-up call atomically.
func (mq *MultiQueue) Lock()   { mq.mu.Lock() }
func (mq *MultiQueue) Unlock() { mq.mu.Unlock() }

func (mq *MultiQueue) SetLogger(l Logger) {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	mq.logger = l
}

func (mq *MultiQueue) logf(format string, args ...interface{}) {
	if mq.logger != nil {
		mq.logger.Log(format, args...)
	}
}

// Insert registers reader under key, placing its node in the queue
// matching the reader's initial residency (k0 units, already loaded by the
// background loader by the time most callers care). Duplicate keys are not
// deduplicated; callers are expected to key by (filter_name, table_id).
func (mq *MultiQueue) Insert(key string, reader *filterblock.Reader) *Handle {
	return mq.InsertWithDeleter(key, reader, nil)
}

// InsertWithDeleter is Insert plus a callback invoked when the entry is
// later Erased, mirroring the teacher pack's cache eviction-callback
// convention.
func (mq *MultiQueue) InsertWithDeleter(key string, reader *filterblock.Reader, deleter func(string, *filterblock.Reader)) *Handle {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	k0 := reader.LoadFilterNumber()
	n := mq.queues[k0].Insert(key, reader, deleter)
	mq.index[key] = n
	mq.usage += uint64(k0) * uint64(reader.OneUnitSize())
	return &Handle{n: n}
}

// Lookup is a hash lookup only; it never touches LRU order. Promotion to
// MRU, and any resulting adjustment, happens in UpdateHandle.
func (mq *MultiQueue) Lookup(key string) *Handle {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	n, ok := mq.index[key]
	if !ok {
		return nil
	}
	return &Handle{n: n}
}

// Value is a lock-free accessor: the reader pointer is stable for the
// handle's lifetime.
func (mq *MultiQueue) Value(h *Handle) *filterblock.Reader {
	if h == nil {
		return nil
	}
	return h.n.reader
}

// UpdateHandle is called on every point-lookup that used handle. It
// promotes the node to MRU within its current queue, then — if key encodes
// a sequence number — triggers the cost-model adjuster.
func (mq *MultiQueue) UpdateHandle(h *Handle, key []byte) {
	if h == nil {
		return
	}
	sn, ok := parseSeq(key)

	mq.mu.Lock()
	defer mq.mu.Unlock()

	residency := h.n.reader.Residency()
	mq.queues[residency].MoveToMRU(h.n)

	if ok {
		mq.adjustLocked(h, sn)
	}
}

// TotalCharge returns the total memory usage, sum over every resident
// reader of residency*unitSize.
func (mq *MultiQueue) TotalCharge() uint64 {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return mq.usage
}

func (mq *MultiQueue) Adjustments() uint64 {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return mq.adjustments
}

// Erase removes key's node from its queue and the index, adjusts usage by
// the reader's current size, and invokes the deleter.
func (mq *MultiQueue) Erase(key string) {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	n, ok := mq.index[key]
	if !ok {
		return
	}
	delete(mq.index, key)

	residency := n.reader.Residency()
	mq.usage -= uint64(residency) * uint64(n.reader.OneUnitSize())
	mq.queues[residency].Erase(n)
}

// Release evicts all of a reader's resident units (residency -> 0), moving
// its node to queues[0], but keeps the node (and the cache entry) in place
// for a possible reopen.
func (mq *MultiQueue) Release(h *Handle) {
	if h == nil {
		return
	}
	mq.mu.Lock()
	defer mq.mu.Unlock()

	reader := h.n.reader
	before := reader.Residency()
	reader.Release()
	mq.usage -= uint64(before) * uint64(reader.OneUnitSize())

	mq.queues[before].Remove(h.n)
	mq.queues[0].Append(h.n)
}

// GoBackToInitFilter moves h's node between queues to reflect residency
// returning to k0 and re-binds the reader's backing file (the table may
// have just been reopened).
func (mq *MultiQueue) GoBackToInitFilter(h *Handle, f filterblock.RandomAccessFile) error {
	if h == nil {
		return nil
	}
	mq.mu.Lock()
	reader := h.n.reader
	before := reader.Residency()
	mq.mu.Unlock()

	if err := reader.GoBackToInitFilter(f); err != nil {
		return err
	}

	mq.mu.Lock()
	defer mq.mu.Unlock()
	after := reader.Residency()
	mq.queues[before].Remove(h.n)
	mq.queues[after].Append(h.n)
	mq.usage = mq.usage - uint64(before)*uint64(reader.OneUnitSize()) + uint64(after)*uint64(reader.OneUnitSize())
	return nil
}

// parseSeq mirrors filterblock's internal-key convention: a trailing
// little-endian uint64 sequence number.
func parseSeq(key []byte) (uint64, bool) {
	if len(key) < 8 {
		return 0, false
	}
	return codec.DecodeFixed64(key[len(key)-8:]), true
}
