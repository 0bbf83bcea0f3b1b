package version

import (
	"sort"

	"filcache/sstable"
	"filcache/utils"
	"filcache/utils/cmp"
)

// MergeIterator walks several table iterators as one sorted stream, newest
// table first on key ties, so a compaction (or an ad-hoc cross-table scan)
// sees exactly one entry per key.
type MergeIterator struct {
	list []sstable.TableIterator
	it   utils.Item
	cmp  cmp.Comparator
}

func NewMergeIterator(iters []sstable.TableIterator, cmp cmp.Comparator) *MergeIterator {
	sort.Slice(iters, func(i, j int) bool {
		return iters[i].GetFID() > iters[j].GetFID()
	})
	return &MergeIterator{
		list: iters,
		cmp:  cmp,
	}
}

// advance parks iter.it on the smallest key currently held by any
// positioned sub-iterator (earliest in list order wins ties, i.e. the
// newest table), then steps every sub-iterator sitting on that key past it.
func (iter *MergeIterator) advance() {
	n := -1
	var key []byte
	for i := range iter.list {
		it := &iter.list[i]
		if !it.Valid() {
			continue
		}
		k := it.Item().Entry().Key
		if n == -1 || iter.cmp.Compare(k, key) < 0 {
			n = i
			key = k
		}
	}
	if n == -1 {
		iter.it = nil
		return
	}
	iter.it = iter.list[n].Item()
	for i := range iter.list {
		it := &iter.list[i]
		if it.Valid() && iter.cmp.Compare(it.Item().Entry().Key, key) == 0 {
			it.Next()
		}
	}
}

func (iter *MergeIterator) Next() {
	iter.advance()
}

func (iter *MergeIterator) Valid() bool {
	return iter.it != nil
}

func (iter *MergeIterator) Rewind() {
	for i := range iter.list {
		iter.list[i].Rewind()
	}
	iter.advance()
}

func (iter *MergeIterator) Item() utils.Item {
	return iter.it
}

func (iter *MergeIterator) Close() error {
	for i := range iter.list {
		iter.list[i].Close()
	}
	return nil
}

// Seek moves every sub-iterator to its first key >= key, then resynchronizes.
func (iter *MergeIterator) Seek(key []byte) {
	for i := range iter.list {
		iter.list[i].Seek(key)
	}
	iter.advance()
}
