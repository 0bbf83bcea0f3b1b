package filterblock

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"filcache/filterpolicy"
)

func TestRoundTripNoFalseNegatives(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.01)
	var allKeys [][]byte
	r, _ := buildAndOpen(t, policy, 4, 4, 11, func(b *Builder) {
		offset := uint64(0)
		for base := 0; base < 5; base++ {
			b.StartBlock(offset)
			for i := 0; i < 20; i++ {
				k := []byte(fmt.Sprintf("base%02d-key%03d", base, i))
				allKeys = append(allKeys, k)
				b.AddKey(k)
			}
			offset += 1 << 11
		}
	})

	offset := uint64(0)
	for base := 0; base < 5; base++ {
		for i := 0; i < 20; i++ {
			k := []byte(fmt.Sprintf("base%02d-key%03d", base, i))
			assert.True(t, r.KeyMayMatch(offset, k))
		}
		offset += 1 << 11
	}
}

func TestZeroResidentUnitsIsSuperset(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.01)
	r, _ := buildAndOpen(t, policy, 2, 4, 11, func(b *Builder) {
		b.StartBlock(0)
		b.AddKey([]byte("present"))
	})

	for r.residency() > 0 {
		assert.NoError(t, r.EvictFilter())
	}

	assert.True(t, r.KeyMayMatch(0, []byte("present")))
	assert.True(t, r.KeyMayMatch(0, []byte("definitely-absent")))
}

func TestCostModelMonotonicity(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.1)
	r, _ := buildAndOpen(t, policy, 1, 4, 11, func(b *Builder) {
		b.StartBlock(0)
		b.AddKey([]byte("k"))
	})
	for i := 0; i < 100; i++ {
		r.KeyMayMatch(0, []byte("k"))
	}

	// More resident units should mean a strictly lower IOs estimate, and
	// LoadIOs/EvictIOs should bracket the current IOs estimate.
	assert.Less(t, r.LoadIOs(), r.IOs())
	assert.Greater(t, r.EvictIOs(), r.IOs())
}

func TestCanBeLoadedAndEvicted(t *testing.T) {
	policy := filterpolicy.NewBloomPolicy(0.01)
	r, _ := buildAndOpen(t, policy, 0, 2, 11, func(b *Builder) {
		b.StartBlock(0)
		b.AddKey([]byte("k"))
	})

	assert.False(t, r.CanBeEvict())
	assert.True(t, r.CanBeLoaded())

	assert.NoError(t, r.LoadFilter())
	assert.True(t, r.CanBeEvict())
	assert.True(t, r.CanBeLoaded())

	assert.NoError(t, r.LoadFilter())
	assert.False(t, r.CanBeLoaded())
}
