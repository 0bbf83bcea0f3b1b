package utils

import (
	"filcache/filterblock"
	"filcache/filterpolicy"
	"filcache/multiqueue"
	"filcache/utils/cmp"
)

// Options controls the behavior of the database (passed to Open).
type Options struct {
	Comparable cmp.Comparator
	WorkDir    string

	MemTableSize int64 // threshold to turn memTable into an immutable memTable
	SSTableMaxSz int64 // threshold to compact
	BlockSize    int32 // size of a data block in an sst

	TableCacheSize int64 // passed to cache.NewCache as its index size, which it does not use
	BlockCacheSize int64 // sizes both the table-handle and the data-block caches

	LogRotatesToFlush int32
	MaxTableSize      int64
	MaxLevelNum       int // number of levels

	BloomFalsePositive float64 // false-positive target for the reference filter policy

	// Filter cache tunables (see filterblock/multiqueue).
	FilterUnitsLoaded int  // k0: units loaded when a table is opened
	FilterUnitsTotal  int  // N: total units built per filter block
	FilterBaseLg      uint // log2 of the filter base granularity

	// FilterPolicy, FilterCache and FilterLoader are shared across every
	// table opened under this DB; nil FilterPolicy disables filter blocks
	// entirely (tableBuilder skips StartBlock/AddKey, Table.Seek always
	// reads the block).
	FilterPolicy filterpolicy.FilterPolicy
	FilterCache  *multiqueue.MultiQueue
	FilterLoader *filterblock.Loader

	ValueLogFileSize    int64
	ValueThreshold      int64 // value-log size threshold; the Set/Get path does not read it, so every value is stored inline
	VerifyValueChecksum bool
}

// DefaultOptions returns options tuned for local development and tests.
// Each call builds a fresh FilterCache and FilterLoader: every table opened
// with the returned Options shares that one adaptive multi-queue and one
// background loader goroutine. Neither is a process-wide singleton; each
// call creates its own loader.
func DefaultOptions(workDir string) *Options {
	unitsTotal := 6
	return &Options{
		Comparable:         cmp.ByteComparator{},
		WorkDir:            workDir,
		MemTableSize:       1 << 20,
		SSTableMaxSz:       1 << 26,
		BlockSize:          4 << 10,
		TableCacheSize:     1000,
		BlockCacheSize:     1000,
		LogRotatesToFlush:  2,
		MaxTableSize:       1 << 26,
		MaxLevelNum:        7,
		BloomFalsePositive: 0.01,
		FilterUnitsLoaded:  2,
		FilterUnitsTotal:   unitsTotal,
		FilterBaseLg:       11,
		FilterPolicy:       filterpolicy.NewBloomPolicy(0.01),
		FilterCache:        multiqueue.New(unitsTotal),
		FilterLoader:       filterblock.NewLoader(),
		ValueLogFileSize:   1 << 28,
		ValueThreshold:     1 << 10,
	}
}
