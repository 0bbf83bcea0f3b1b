package version

import (
	"bufio"
	"filcache/cache"
	"filcache/sstable"
	"filcache/utils"
	"filcache/utils/convert"
	"filcache/utils/errs"
	"filcache/vlog"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
)

const (
	VersionEdit_CREATE = 0
	VersionEdit_DELETE = 1
)

// VersionSet is the live level/file layout plus the table-index cache:
// every point lookup that falls through the memtables reaches disk through
// here, via FindTable, which is what actually opens (or reuses) an
// sstable.Table and so drives the filter cache on the table's behalf.
type VersionSet struct {
	NextFileNumber     uint64
	manifestFileNumber uint64
	logNumber          uint64

	head       *Version
	current    *Version
	tableCache *cache.Cache
	info       *vlog.Statistic
	lock       sync.RWMutex
}

// Open loads (or creates) the manifest under opt.WorkDir and replays it
// into an in-memory VersionSet. A missing manifest is not an error: it
// means an empty store, the common case for a brand new WorkDir.
func Open(opt *utils.Options) (*VersionSet, error) {
	path := filepath.Join(opt.WorkDir, ManifestFilename)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	vs := NewVersionSet(opt)
	if err != nil {
		if !os.IsNotExist(err) {
			return vs, err
		}
		return vs, nil
	}
	vs.current.f = f
	vs.Replay()
	return vs, nil
}

func NewVersionSet(opt *utils.Options) *VersionSet {
	path := filepath.Join(opt.WorkDir, ManifestFilename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0666)
	if err != nil {
		return nil
	}
	current := NewVersion(opt)
	current.f = f

	blockCache := int(opt.BlockCacheSize)
	tableCache := int(opt.TableCacheSize)
	if blockCache <= 0 {
		blockCache = 100
	}
	if tableCache <= 0 {
		tableCache = 100
	}

	vs := &VersionSet{current: current}
	current.vset = vs
	vs.head = &Version{}
	vs.tableCache = cache.NewCache(blockCache, tableCache)
	vs.info = vlog.NewStatistic()
	return vs
}

// LogAndApply appends ve's adds/deletes to the manifest log. It does not
// touch the in-memory level list itself: callers also call AddFileMeta /
// DeleteFileMeta so the log and vs.current agree.
func (vs *VersionSet) LogAndApply(ve *VersionEdit) {
	for _, tableMeta := range ve.adds {
		vs.current.log(tableMeta.level, tableMeta.f, VersionEdit_CREATE)
	}
	for _, tableMeta := range ve.deletes {
		vs.current.log(tableMeta.level, tableMeta.f, VersionEdit_DELETE)
	}
}

// Replay rebuilds vs.current.files from a manifest log written by log().
// Durability of this state across restarts is out of scope (it is cheap to
// rebuild from the table files themselves); replay exists so a second Open
// against the same WorkDir within one process still sees prior flushes.
func (vs *VersionSet) Replay() {
	current := vs.current
	r := bufio.NewReader(current.f)

	for {
		head := make([]byte, 16)
		if _, err := io.ReadFull(r, head); err != nil {
			break
		}
		op := convert.BytesToU16(head[0:2])
		level := convert.BytesToU16(head[2:4])
		fm := &FileMetaData{id: convert.BytesToU64(head[4:12])}

		ssz := convert.BytesToU32(head[12:16])
		smallest := make([]byte, ssz)
		if _, err := io.ReadFull(r, smallest); err != nil {
			break
		}
		fm.smallest = smallest

		lszBuf := make([]byte, 4)
		if _, err := io.ReadFull(r, lszBuf); err != nil {
			break
		}
		largest := make([]byte, convert.BytesToU32(lszBuf))
		if _, err := io.ReadFull(r, largest); err != nil {
			break
		}
		fm.largest = largest

		switch op {
		case VersionEdit_CREATE:
			current.files[level] = append(current.files[level], fm)
		case VersionEdit_DELETE:
			current.deleteFile(level, fm)
		}
	}
}

// AddFileMeta records a newly flushed (or compacted-in) table at level:
// appends its metadata to the in-memory level list and primes the table
// cache with both the open table and its index block, since a freshly
// flushed table is about to be searched.
func (vs *VersionSet) AddFileMeta(level int, t *sstable.Table) {
	vs.lock.Lock()
	defer vs.lock.Unlock()
	meta := &FileMetaData{
		id:       t.Fid(),
		largest:  t.MaxKey,
		smallest: t.MinKey,
		fileSize: t.Size(),
	}
	vs.current.files[level] = append(vs.current.files[level], meta)
	vs.tableCache.AddTable(t.Fid(), t)
	vs.AddIndex(t.Fid(), t.Index())
}

// DeleteFileMeta removes t's metadata from level, used once a compaction
// (or GC rewrite) has superseded it.
func (vs *VersionSet) DeleteFileMeta(level int, t *sstable.Table) {
	vs.lock.Lock()
	defer vs.lock.Unlock()
	for i := 0; i < len(vs.current.files[level]); i++ {
		if vs.current.files[level][i].id == t.Fid() {
			vs.current.files[level] = append(vs.current.files[level][:i], vs.current.files[level][i+1:]...)
			break
		}
	}
}

// FindTable is the table cache proper: it returns fid's open *sstable.Table
// and index, opening the table from disk (which registers its filter
// block with the shared filter cache) only on a cache miss.
func (vs *VersionSet) FindTable(fid uint64) *sstable.Table {
	table := vs.tableCache.GetTable(fid)
	if table == nil {
		table = sstable.OpenTable(vs.current.opt, fid)
		vs.tableCache.AddTable(fid, table)
	}
	index := vs.GetIndex(fid)
	if index == nil {
		idx, err := table.ReadIndex()
		utils.Panic(err)
		index = idx
		vs.AddIndex(fid, index)
	}
	table.SetIndex(index)
	return table
}

// Get answers a point lookup against the on-disk levels: L0 first (tables
// there can overlap, so every candidate is tried newest-fid-first), then
// L1+ (key ranges are disjoint per level, so at most one table per level
// can hold the key).
func (vs *VersionSet) Get(key []byte) (*utils.Entry, error) {
	vs.lock.RLock()
	defer vs.lock.RUnlock()
	if entry, err := vs.searchL0SST(key); err == nil && entry != nil {
		return entry, nil
	}
	if entry, err := vs.searchLNSST(key); err == nil && entry != nil {
		return entry, nil
	}
	return nil, errs.ErrKeyNotFound
}

func (vs *VersionSet) searchL0SST(key []byte) (*utils.Entry, error) {
	var target []uint64
	cmp := vs.current.opt.Comparable
	for _, fileMeta := range vs.current.files[0] {
		if cmp.Compare(fileMeta.smallest, key) <= 0 && cmp.Compare(fileMeta.largest, key) >= 0 {
			target = append(target, fileMeta.id)
		}
	}
	sort.Slice(target, func(i, j int) bool {
		return target[i] > target[j]
	})

	for _, fid := range target {
		table := vs.FindTable(fid)
		if entry, err := table.Search(key); err == nil && entry != nil {
			return entry, nil
		}
	}
	return nil, errs.ErrKeyNotFound
}

func (vs *VersionSet) searchLNSST(key []byte) (*utils.Entry, error) {
	current := vs.current
	for level := 1; level < current.opt.MaxLevelNum; level++ {
		idx := current.findFile(current.files[level], key)
		if idx >= len(current.files[level]) {
			continue
		}
		meta := current.files[level][idx]
		table := vs.FindTable(meta.id)
		if entry, err := table.Search(key); err == nil && entry != nil {
			return entry, nil
		}
	}
	return nil, errs.ErrKeyNotFound
}

// Close closes every cached table that is still listed in a level,
// releasing their filter cache entries, and closes the manifest log.
func (vs *VersionSet) Close() error {
	vs.lock.Lock()
	defer vs.lock.Unlock()
	var firstErr error
	for level := range vs.current.files {
		for _, meta := range vs.current.files[level] {
			if t := vs.tableCache.GetTable(meta.id); t != nil {
				if err := t.Close(); err != nil && firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	if vs.current.f != nil {
		if err := vs.current.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (vs *VersionSet) IncreaseNextFileNumber(delta uint64) uint64 {
	return atomic.AddUint64(&vs.NextFileNumber, delta)
}

func (vs *VersionSet) AddNewVLogGroup(fid uint64) {
	vs.info.AddNewVLogGroup(fid)
}
