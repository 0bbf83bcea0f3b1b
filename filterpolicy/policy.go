// Package filterpolicy defines the FilterPolicy interface that the filter
// block builder and reader are parameterized over, plus a Bloom filter
// implementation of it.
//
// Every policy method that builds or tests a filter takes a unit index.
// The filter cache core splits a table's filter into FilterUnitsTotal
// independent bitmaps, one per index, so that residency of k of them
// yields an effective false-positive rate of about r^k rather than r.
// Independence only holds if CreateFilter/KeyMayMatch mix index into the
// hash; a policy that ignores index defeats the whole cost model.
package filterpolicy

// FilterPolicy builds and tests probabilistic filters over a set of keys.
type FilterPolicy interface {
	// Name identifies the policy and is part of the filter cache key
	// (multiqueue.CacheKey); filter blocks do not record it and readers
	// do not check it.
	Name() string

	// FalsePositiveRate is the per-unit false positive rate r used by the
	// filter cache's cost model.
	FalsePositiveRate() float64

	// CreateFilter builds the unit-index'th independent filter over keys.
	CreateFilter(keys [][]byte, index int) []byte

	// KeyMayMatch reports whether key may be a member of the set encoded
	// in filter, which was built by CreateFilter with the same index.
	KeyMayMatch(key []byte, filter []byte, index int) bool
}
