package lsm

import (
	"log"
	"sync/atomic"

	"filcache/file"
	"filcache/sstable"
	"filcache/utils"
	"filcache/utils/cmp"
	"filcache/utils/errs"
	"filcache/version"
)

// memtable states.
const (
	NORMAL int32 = iota
	CLOSED
)

// comparator is the single key-ordering rule shared by the memtable,
// SSTable search and level handlers.
var comparator cmp.Comparator = cmp.ByteComparator{}

type LSM struct {
	memTable   *MemTable
	immutables []*MemTable
	option     *utils.Options
	vs         *version.VersionSet

	maxMemFID uint64
}

// NewLSM opens (or creates) an LSM tree rooted at opt.WorkDir. comparator is
// set from opt.Comparable so every component agrees on key order. The level
// layout and table-index cache live in a version.VersionSet, replayed from
// opt.WorkDir's manifest if one already exists.
func NewLSM(opt *utils.Options) *LSM {
	if opt.Comparable != nil {
		comparator = opt.Comparable
	}
	lsm := &LSM{option: opt}
	vs, err := version.Open(opt)
	utils.Panic(err)
	lsm.vs = vs
	lsm.memTable = lsm.NewMemTable()
	return lsm
}

// IncreaseFid atomically reserves the next delta file IDs, returning the
// last one reserved (mirroring the teacher pack's "increment then hand
// back" allocator convention used for memtable/WAL file names).
func (lsm *LSM) IncreaseFid(delta uint64) uint64 {
	return atomic.AddUint64(&lsm.maxMemFID, delta)
}

// Set writes entry to the active memtable, rotating to a fresh one first if
// the active table is full, then flushes every immutable to an SSTable at
// the level flushMemTable picks.
func (lsm *LSM) Set(entry *utils.Entry) (err error) {
	if entry == nil || len(entry.Key) == 0 {
		return errs.ErrEmptyKey
	}

	if lsm.memTable.Size() > lsm.option.MemTableSize {
		lsm.Rotate()
	}
	if err = lsm.memTable.set(entry); err != nil {
		return err
	}

	for _, immutable := range lsm.immutables {
		if err := lsm.flushMemTable(immutable); err != nil {
			return err
		}
		immutable.DecrRef()
	}
	if len(lsm.immutables) != 0 {
		lsm.immutables = lsm.immutables[:0]
	}
	return err
}

// Get answers a point lookup: active memtable, then immutables newest
// first, then the version set's on-disk levels (L0 unsorted, L1+ key-range
// sorted), which routes every candidate SSTable through the table-index
// cache and therefore the filter cache.
func (lsm *LSM) Get(key []byte) (*utils.Entry, error) {
	if len(key) == 0 {
		return nil, errs.ErrEmptyKey
	}

	if entry, err := lsm.memTable.Get(key); entry != nil && entry.Value != nil {
		return entry, err
	}

	for i := len(lsm.immutables) - 1; i >= 0; i-- {
		if entry, err := lsm.immutables[i].Get(key); entry != nil && entry.Value != nil {
			return entry, err
		}
	}

	entry, err := lsm.vs.Get(key)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.Value == nil {
		return nil, errs.ErrKeyNotFound
	}
	return entry, nil
}

// flushMemTable flushes immutable's contents to a new SSTable, exercising
// the filter-cache wiring carried on lsm.option (tableBuilder builds a
// filter block iff opt.FilterPolicy is set), then records the new table in
// the version set's manifest log and in-memory level list. The target
// level comes from the version set's overlap check, so a flush lands
// straight past L0 when nothing there overlaps its key range.
func (lsm *LSM) flushMemTable(immutable *MemTable) error {
	fid := lsm.vs.IncreaseNextFileNumber(1)
	sstName := file.FileNameSSTable(lsm.option.WorkDir, fid)

	builder := sstable.NewTableBuiler(lsm.option)
	iter := immutable.NewMemTableIterator()
	for iter.Rewind(); iter.Valid(); iter.Next() {
		builder.Add(iter.Item().Entry(), false)
	}
	table, err := builder.Flush(sstName)
	if err != nil {
		return err
	}

	level := lsm.vs.PickLevelForMemTableOutput(table.MinKey, table.MaxKey)
	log.Printf("lsm: flushed table %d to level %d (compaction candidate level %d)",
		table.Fid(), level, lsm.vs.PickCompactionLevel())

	ve := version.NewVersionEdit()
	ve.RecordAddFileMeta(level, table)
	lsm.vs.LogAndApply(ve)
	lsm.vs.AddFileMeta(level, table)
	return nil
}

// Rotate append MemTable to immutable, and create a new MemTable
func (lsm *LSM) Rotate() {
	lsm.immutables = append(lsm.immutables, lsm.memTable)
	lsm.memTable = lsm.NewMemTable()
}

// Close flushes the active memtable and closes every table the version set
// has opened, releasing the filter cache entries they hold.
func (lsm *LSM) Close() error {
	if lsm.memTable.Size() > 0 {
		if err := lsm.flushMemTable(lsm.memTable); err != nil {
			return err
		}
	}
	lsm.memTable.DecrRef()
	for _, immutable := range lsm.immutables {
		immutable.DecrRef()
	}
	return lsm.vs.Close()
}
