package version

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filcache/file"
	"filcache/sstable"
	"filcache/utils"
	"filcache/utils/cmp"
)

func newTestOptions(t *testing.T) *utils.Options {
	t.Helper()
	dir := t.TempDir()
	opt := utils.DefaultOptions(dir)
	opt.Comparable = cmp.ByteComparator{}
	opt.BlockSize = 256
	opt.SSTableMaxSz = 1 << 20
	return opt
}

func buildTable(t *testing.T, opt *utils.Options, fid uint64, n int) *sstable.Table {
	t.Helper()
	b := sstable.NewTableBuiler(opt)
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key%04d", i))
		val := []byte(fmt.Sprintf("val%04d", i))
		b.Add(&utils.Entry{Key: key, Value: val}, false)
	}
	table, err := b.Flush(file.FileNameSSTable(opt.WorkDir, fid))
	require.NoError(t, err)
	return table
}

func TestVersionSetFindTableDrivesFilterCache(t *testing.T) {
	opt := newTestOptions(t)
	vs := NewVersionSet(opt)
	require.NotNil(t, vs)
	defer vs.Close()

	table := buildTable(t, opt, 1, 100)
	vs.AddFileMeta(0, table)

	entry, err := vs.Get([]byte("key0042"))
	require.NoError(t, err)
	assert.Equal(t, []byte("val0042"), entry.Value)

	found := vs.FindTable(1)
	assert.Same(t, table, found)
}

func TestVersionSetDeleteFileMetaRemovesCandidates(t *testing.T) {
	opt := newTestOptions(t)
	vs := NewVersionSet(opt)
	require.NotNil(t, vs)
	defer vs.Close()

	table := buildTable(t, opt, 1, 50)
	defer table.Close()
	vs.AddFileMeta(0, table)
	vs.DeleteFileMeta(0, table)

	_, err := vs.Get([]byte("key0005"))
	assert.Error(t, err)
}

func TestMergeIteratorYieldsEachKeyOnce(t *testing.T) {
	opt := newTestOptions(t)
	vs := NewVersionSet(opt)
	require.NotNil(t, vs)
	defer vs.Close()

	older := buildTable(t, opt, 1, 10)
	newer := buildTable(t, opt, 2, 10)
	vs.AddFileMeta(0, older)
	vs.AddFileMeta(0, newer)

	iters := []sstable.TableIterator{older.NewIterator(opt), newer.NewIterator(opt)}
	merged := NewMergeIterator(iters, opt.Comparable)
	defer merged.Close()

	count := 0
	for merged.Rewind(); merged.Valid(); merged.Next() {
		count++
	}
	assert.Equal(t, 10, count)
}
