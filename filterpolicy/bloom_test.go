package filterpolicy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func keys(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte(fmt.Sprintf("key-%06d", i))
	}
	return out
}

func TestBloomPolicyNoFalseNegatives(t *testing.T) {
	p := NewBloomPolicy(0.01)
	ks := keys(500)
	filter := p.CreateFilter(ks, 0)
	for _, k := range ks {
		assert.True(t, p.KeyMayMatch(k, filter, 0))
	}
}

func TestBloomPolicyFalsePositiveRateIsBounded(t *testing.T) {
	p := NewBloomPolicy(0.01)
	ks := keys(1000)
	filter := p.CreateFilter(ks, 0)

	falsePositives := 0
	trials := 10000
	for i := 0; i < trials; i++ {
		probe := []byte(fmt.Sprintf("absent-%08d", i))
		if p.KeyMayMatch(probe, filter, 0) {
			falsePositives++
		}
	}
	rate := float64(falsePositives) / float64(trials)
	assert.Less(t, rate, 0.05)
}

func TestBloomPolicyUnitsAreIndependent(t *testing.T) {
	p := NewBloomPolicy(0.02)
	ks := keys(200)
	filterA := p.CreateFilter(ks, 0)
	filterB := p.CreateFilter(ks, 1)
	assert.NotEqual(t, filterA, filterB)

	for _, k := range ks {
		assert.True(t, p.KeyMayMatch(k, filterA, 0))
		assert.True(t, p.KeyMayMatch(k, filterB, 1))
	}
}

func TestBloomPolicyName(t *testing.T) {
	p := NewBloomPolicy(0.01)
	assert.Equal(t, "filcache.BuiltinBloomFilter", p.Name())
	assert.Equal(t, 0.01, p.FalsePositiveRate())
}
