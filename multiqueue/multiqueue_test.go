package multiqueue

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filcache/filterblock"
	"filcache/filterpolicy"
	"filcache/utils/codec"
)

type byteFile []byte

func (b byteFile) ReadAt(buf []byte, offset int64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	n := copy(buf, b[offset:])
	return n, nil
}

// newTestReader builds a trailer+unit data pair over a single key and opens
// a reader against it, waiting for the initial load so tests see
// deterministic residency.
func newTestReader(t *testing.T, policy filterpolicy.FilterPolicy, loader *filterblock.Loader, k0, unitsN int, key string) *filterblock.Reader {
	t.Helper()
	b := filterblock.NewBuilder(policy, k0, unitsN, 11)
	b.StartBlock(0)
	b.AddKey([]byte(key))
	trailer := b.Finish(0)

	var data []byte
	for _, u := range b.ReturnFilters() {
		data = append(data, u...)
	}

	r, err := filterblock.NewReader(policy, trailer, byteFile(data), loader)
	require.NoError(t, err)
	r.WaitInitLoad()
	return r
}

func withSeq(key string, sn uint64) []byte {
	buf := make([]byte, 8)
	codec.PutFixed64(buf, sn)
	return append([]byte(key), buf...)
}

func TestInsertLookupErase(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.01)
	loader := filterblock.NewLoader()
	defer loader.Close()

	mq := New(4)
	reader := newTestReader(t, policy, loader, 1, 4, "a")
	h := mq.Insert("k1", reader)

	got := mq.Lookup("k1")
	assert.Equal(t, h, got)
	assert.Equal(t, reader, mq.Value(got))

	mq.Erase("k1")
	assert.Nil(t, mq.Lookup("k1"))
}

func TestInsertPlacesNodeInK0Queue(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.01)
	loader := filterblock.NewLoader()
	defer loader.Close()

	mq := New(4)
	reader := newTestReader(t, policy, loader, 2, 4, "a")
	mq.Insert("k1", reader)

	assert.Equal(t, 1, mq.queues[2].Len())
	for i, q := range mq.queues {
		if i != 2 {
			assert.Equal(t, 0, q.Len())
		}
	}
}

func TestUsageMatchesResidency(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.01)
	loader := filterblock.NewLoader()
	defer loader.Close()

	mq := New(4)
	r1 := newTestReader(t, policy, loader, 1, 4, "a")
	r2 := newTestReader(t, policy, loader, 2, 4, "b")
	mq.Insert("k1", r1)
	mq.Insert("k2", r2)

	want := uint64(r1.Residency())*uint64(r1.OneUnitSize()) + uint64(r2.Residency())*uint64(r2.OneUnitSize())
	assert.Equal(t, want, mq.TotalCharge())
}

// TestAdjustmentSwapsUnitFromColdToHot exercises the cost-model adjuster
// end-to-end: a heavily-probed hot reader with room to grow, and an
// untouched (hence maximally cold) cold reader with a unit to give up.
func TestAdjustmentSwapsUnitFromColdToHot(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.5) // high r: makes LoadIOs < IOs pronounced
	loader := filterblock.NewLoader()
	defer loader.Close()

	mq := New(4)
	hot := newTestReader(t, policy, loader, 1, 4, "hot-key")
	cold := newTestReader(t, policy, loader, 1, 4, "cold-key")

	hHot := mq.Insert("hot", hot)
	mq.Insert("cold", cold)

	require.Equal(t, 1, hot.Residency())
	require.Equal(t, 1, cold.Residency())
	totalBefore := hot.Residency() + cold.Residency()

	// Drive the hot reader's access_count up and its last_sn recent so
	// that canBeAdjusted sees a large IOs()/LoadIOs() gap. The cold reader
	// is left untouched: last_sn stays at its zero value, so it reads as
	// cold for any sn >= kLifeTime, and its access_count (hence IOs,
	// EvictIOs) stays zero.
	var sn uint64
	for i := 0; i < 500; i++ {
		sn++
		k := withSeq("hot-key", 20000+sn)
		hot.KeyMayMatch(0, k) // bumps access_count/last_sn, what a real lookup does
		mq.UpdateHandle(hHot, k)
	}

	assert.Equal(t, 2, hot.Residency(), "hot reader should have gained a unit")
	assert.Equal(t, 0, cold.Residency(), "cold reader should have given up its unit")
	assert.Equal(t, totalBefore, hot.Residency()+cold.Residency(), "unit count is conserved across the swap")
	assert.Equal(t, uint64(1), mq.Adjustments())

	assert.Equal(t, 2, mq.queues[2].Len()+mq.queues[0].Len()) // both moved to the expected buckets
	assert.Equal(t, 1, mq.queues[2].Len())
	assert.Equal(t, 1, mq.queues[0].Len())
}

func TestReleaseEvictsAllUnitsButKeepsEntry(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.01)
	loader := filterblock.NewLoader()
	defer loader.Close()

	mq := New(4)
	reader := newTestReader(t, policy, loader, 3, 4, "a")
	h := mq.Insert("k1", reader)
	require.Equal(t, 3, reader.Residency())

	mq.Release(h)
	assert.Equal(t, 0, reader.Residency())
	assert.NotNil(t, mq.Lookup("k1"))
	assert.Equal(t, 1, mq.queues[0].Len())
}

func TestCacheKeyFormat(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.01)
	key := CacheKey(policy, 7)
	assert.Equal(t, fmt.Sprintf("filter.%s", policy.Name()), key[:len(key)-8])
}
