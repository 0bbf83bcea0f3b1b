package filterblock

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"filcache/filterpolicy"
	"filcache/utils/codec"
	"filcache/utils/errs"
)

func TestEmptyBuilder(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.01)
	b := NewBuilder(policy, 1, 4, 11)
	trailer := b.Finish(0)

	want := []byte{
		0, 0, 0, 0, 0, 0, 0, 0, // disk_offset
		0, 0, 0, 0, // disk_size
		1, 0, 0, 0, // init_units_number
		4, 0, 0, 0, // all_units_number
		0x0b, // base_lg
	}
	assert.Equal(t, want, trailer)

	loader := NewLoader()
	defer loader.Close()
	r, err := NewReader(policy, trailer, memFile(nil), loader)
	assert.NoError(t, err)
	r.WaitInitLoad()
	assert.True(t, r.KeyMayMatch(0, []byte("foo")))
}

func buildAndOpen(t *testing.T, policy filterpolicy.FilterPolicy, k0, unitsN int, baseLg uint, fn func(b *Builder)) (*Reader, *Builder) {
	t.Helper()
	b := NewBuilder(policy, k0, unitsN, baseLg)
	fn(b)
	trailer := b.Finish(0)

	units := b.ReturnFilters()
	var data []byte
	for _, u := range units {
		data = append(data, u...)
	}

	loader := NewLoader()
	t.Cleanup(loader.Close)
	r, err := NewReader(policy, trailer, memFile(data), loader)
	assert.NoError(t, err)
	r.WaitInitLoad()
	return r, b
}

func TestSingleChunk(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.01)
	r, _ := buildAndOpen(t, policy, 4, 4, 11, func(b *Builder) {
		b.StartBlock(100)
		b.AddKey([]byte("foo"))
		b.AddKey([]byte("bar"))
		b.AddKey([]byte("box"))
		b.StartBlock(200)
		b.AddKey([]byte("box"))
		b.StartBlock(300)
		b.AddKey([]byte("hello"))
	})

	assert.True(t, r.KeyMayMatch(100, []byte("foo")))
	assert.True(t, r.KeyMayMatch(100, []byte("bar")))
	assert.True(t, r.KeyMayMatch(200, []byte("box")))
	assert.True(t, r.KeyMayMatch(300, []byte("hello")))
	assert.False(t, r.KeyMayMatch(100, []byte("missing")))
}

func TestMultiChunk(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.01)
	r, _ := buildAndOpen(t, policy, 4, 4, 11, func(b *Builder) {
		b.StartBlock(0)
		b.AddKey([]byte("a"))
		b.StartBlock(2000)
		b.AddKey([]byte("b"))
		b.StartBlock(3100)
		b.AddKey([]byte("c"))
		b.StartBlock(9000)
		b.AddKey([]byte("d"))
	})

	assert.True(t, r.KeyMayMatch(0, []byte("a")))
	assert.True(t, r.KeyMayMatch(2000, []byte("b")))
	assert.True(t, r.KeyMayMatch(3100, []byte("c")))
	assert.True(t, r.KeyMayMatch(9000, []byte("d")))

	assert.False(t, r.KeyMayMatch(0, []byte("c")))
	assert.False(t, r.KeyMayMatch(3100, []byte("a")))
}

func TestLoadAndEvict(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.01)
	r, _ := buildAndOpen(t, policy, 1, 4, 11, func(b *Builder) {
		b.StartBlock(0)
		b.AddKey([]byte("k"))
	})

	assert.Equal(t, 1, r.residency())

	assert.NoError(t, r.EvictFilter())
	assert.Equal(t, 0, r.residency())
	assert.ErrorIs(t, r.EvictFilter(), errs.ErrEmpty)

	assert.NoError(t, r.LoadFilter())
	assert.Equal(t, 1, r.residency())
	assert.NoError(t, r.LoadFilter())
	assert.Equal(t, 2, r.residency())
	assert.NoError(t, r.LoadFilter())
	assert.Equal(t, 3, r.residency())
	assert.NoError(t, r.LoadFilter())
	assert.Equal(t, 4, r.residency())
	assert.ErrorIs(t, r.LoadFilter(), errs.ErrExhausted)
}

func TestSize(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.01)
	r, _ := buildAndOpen(t, policy, 1, 4, 11, func(b *Builder) {
		b.StartBlock(0)
		for i := 0; i < 50; i++ {
			b.AddKey([]byte{byte(i)})
		}
	})

	u := r.OneUnitSize()
	for r.residency() > 0 {
		assert.NoError(t, r.EvictFilter())
	}
	assert.Equal(t, int64(0), r.Size())

	for i := 1; i <= 4; i++ {
		assert.NoError(t, r.LoadFilter())
		assert.Equal(t, int64(i)*u, r.Size())
	}
}

func TestHotness(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.01)
	r, _ := buildAndOpen(t, policy, 1, 4, 11, func(b *Builder) {
		b.StartBlock(0)
		b.AddKey([]byte("only-key"))
	})

	for sn := uint64(1); sn < 30000; sn++ {
		seq := make([]byte, 8)
		codec.PutFixed64(seq, sn)
		key := append(append([]byte{}, []byte("only-key")...), seq...)
		r.KeyMayMatch(0, key)
		assert.Equal(t, sn, r.AccessTime())
	}

	const lastSN = 29999
	assert.False(t, r.IsCold(lastSN+kLifeTime-1))
	assert.True(t, r.IsCold(lastSN+kLifeTime))
}
