package lsm

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filcache/utils"
	"filcache/utils/errs"
)

func newTestLSM(t *testing.T) *LSM {
	t.Helper()
	dir := t.TempDir()
	return NewLSM(utils.DefaultOptions(dir))
}

func TestMemTableCreate(t *testing.T) {
	l := newTestLSM(t)
	defer l.Close()

	mem := l.NewMemTable()
	defer mem.DecrRef()

	_, err := mem.Get([]byte{1})
	assert.Equal(t, errs.ErrKeyNotFound, err)
}

func TestMemTableCreateMore(t *testing.T) {
	l := newTestLSM(t)
	defer l.Close()

	mem := l.NewMemTable()
	defer mem.DecrRef()

	for i := 0; i < 3; i++ {
		for j := 0; j < 20; j++ {
			e := &utils.Entry{
				Key:   []byte(fmt.Sprintf("%d", j)),
				Value: []byte(fmt.Sprintf("%d", j+i*100)),
			}
			require.NoError(t, mem.set(e))
		}
	}

	it := mem.NewMemTableIterator()
	count := 0
	for it.Rewind(); it.Valid(); it.Next() {
		count++
	}
	assert.Equal(t, 20, count)
}

func TestMemTableDestroy(t *testing.T) {
	l := newTestLSM(t)
	defer l.Close()

	mem := l.NewMemTable()
	_, err := mem.Get([]byte{1})
	assert.Equal(t, errs.ErrKeyNotFound, err)
	mem.DecrRef()
}

func TestMemTableUpdate(t *testing.T) {
	l := newTestLSM(t)
	defer l.Close()

	mem := l.NewMemTable()
	defer mem.DecrRef()

	n := 2000
	for i := 1; i <= n; i++ {
		e := &utils.Entry{
			Key:   []byte(fmt.Sprintf("%05d", i)),
			Value: []byte(fmt.Sprintf("%d", i)),
		}
		require.NoError(t, mem.set(e))
		v, err := mem.Get(e.Key)
		require.NoError(t, err)
		assert.Equal(t, e.Value, v.Value)
	}
}

func TestMemTableUpdateDup(t *testing.T) {
	l := newTestLSM(t)
	defer l.Close()

	mem := l.NewMemTable()
	defer mem.DecrRef()

	key := []byte("dup-key")
	require.NoError(t, mem.set(&utils.Entry{Key: key, Value: []byte("v1")}))
	require.NoError(t, mem.set(&utils.Entry{Key: key, Value: []byte("v2")}))

	v, err := mem.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v.Value)
}

func TestMemTableIterator(t *testing.T) {
	l := newTestLSM(t)
	defer l.Close()

	mem := l.NewMemTable()
	defer mem.DecrRef()

	m := make(map[string]string)
	n := 1000
	for i := 1; i <= n; i++ {
		e := &utils.Entry{
			Key:   []byte(fmt.Sprintf("%05d", i)),
			Value: []byte(fmt.Sprintf("%d", i)),
		}
		require.NoError(t, mem.set(e))
		m[string(e.Key)] = string(e.Value)
	}

	iter := mem.NewMemTableIterator()
	defer iter.Close()
	for iter.Rewind(); iter.Valid(); iter.Next() {
		entry := iter.Item().Entry()
		v, ok := m[string(entry.Key)]
		assert.True(t, ok, string(entry.Key))
		assert.Equal(t, v, string(entry.Value))
	}
}

func TestConcurrentBasic(t *testing.T) {
	const n = 1000
	l := newTestLSM(t)
	defer l.Close()

	mem := l.NewMemTable()
	defer mem.DecrRef()

	key := func(i int) []byte {
		return []byte(fmt.Sprintf("%05d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, mem.set(&utils.Entry{Key: key(i), Value: key(i)}))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := mem.Get(key(i))
			require.NoError(t, err)
			require.EqualValues(t, key(i), v.Value)
		}(i)
	}
	wg.Wait()
}

func Benchmark_ConcurrentBasic(b *testing.B) {
	dir := b.TempDir()
	l := NewLSM(utils.DefaultOptions(dir))
	defer l.Close()

	mem := l.NewMemTable()
	defer mem.DecrRef()

	key := func(i int) []byte {
		return []byte(fmt.Sprintf("%05d", i))
	}

	var wg sync.WaitGroup
	const n = 1000
	const step = 50
	for i := 0; i < n; i += step {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < step; j++ {
				e := &utils.Entry{Key: key(i + j), Value: key(i + j)}
				assert.NoError(b, mem.set(e))
			}
		}(i)
	}
	wg.Wait()
}
