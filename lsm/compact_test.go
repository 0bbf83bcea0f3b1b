package lsm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filcache/sstable"
	"filcache/utils"
	"filcache/utils/cmp"
	"filcache/version"
)

func TestCreateSSTable(t *testing.T) {
	clearDir()
	opt.Comparable = cmp.IntComparator{}
	lsm := NewLSM(opt)
	defer lsm.Close()

	for i := 0; i < 3; i++ {
		for j := 0; j <= 200; j++ {
			e := &utils.Entry{
				Key:   []byte(fmt.Sprintf("%d", j)),
				Value: []byte(fmt.Sprintf("%d", j+i*100)),
			}
			lsm.Set(e)
		}
	}

	for i := 0; i <= 200; i++ {
		e := &utils.Entry{
			Key:   []byte(fmt.Sprintf("%d", i)),
			Value: []byte(fmt.Sprintf("%d", i+200)),
		}
		v, err := lsm.Get(e.Key)
		require.NoError(t, err)
		assert.Equal(t, string(e.Value), string(v.Value))
	}
}

// TestMerge flushes two memtables to two distinct tables by hand (rather than
// waiting on MemTableSize to trip), then checks that a version.MergeIterator
// over both tables yields each key once, from the newer table.
func TestMerge(t *testing.T) {
	clearDir()
	opt.Comparable = cmp.IntComparator{}
	lsm := NewLSM(opt)
	defer lsm.Close()

	n := 50
	for i := 0; i < n; i++ {
		e := &utils.Entry{
			Key:   []byte(fmt.Sprintf("%d", i)),
			Value: []byte(fmt.Sprintf("%d", i)),
		}
		require.NoError(t, lsm.memTable.set(e))
	}
	lsm.Rotate()
	for i := 0; i < n; i++ {
		e := &utils.Entry{
			Key:   []byte(fmt.Sprintf("%d", i)),
			Value: []byte(fmt.Sprintf("%d", i+1000)),
		}
		require.NoError(t, lsm.memTable.set(e))
	}
	lsm.Rotate()

	require.Len(t, lsm.immutables, 2)
	for _, imm := range lsm.immutables {
		require.NoError(t, lsm.flushMemTable(imm))
	}

	var iters []sstable.TableIterator
	table1 := lsm.vs.FindTable(1)
	iters = append(iters, table1.NewIterator(lsm.option))
	table2 := lsm.vs.FindTable(2)
	iters = append(iters, table2.NewIterator(lsm.option))

	iter := version.NewMergeIterator(iters, opt.Comparable)
	defer iter.Close()

	count := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		entry := iter.Item().Entry()
		assert.Equal(t, fmt.Sprintf("%d", count), string(entry.Key))
		assert.Equal(t, fmt.Sprintf("%d", count+1000), string(entry.Value))
		count++
	}
	assert.Equal(t, n, count)
}
