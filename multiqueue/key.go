package multiqueue

import (
	"filcache/filterblock"
	"filcache/filterpolicy"
	"filcache/utils/codec"
)

// CacheKey derives the multi-queue key for a table's filter block:
// "filter." || policy name || fixed64_le(table id).
func CacheKey(policy filterpolicy.FilterPolicy, tableID uint64) string {
	buf := make([]byte, 8)
	codec.PutFixed64(buf, tableID)
	return "filter." + policy.Name() + string(buf)
}

// Open parses trailer into a new filterblock.Reader bound to f, schedules
// its initial load on loader, and registers it in mq under the table's
// cache key. This is the entry point the table-open path calls.
func Open(mq *MultiQueue, policy filterpolicy.FilterPolicy, trailer []byte, f filterblock.RandomAccessFile, tableID uint64, loader *filterblock.Loader) (*Handle, error) {
	reader, err := filterblock.NewReader(policy, trailer, f, loader)
	if err != nil {
		return nil, err
	}
	key := CacheKey(policy, tableID)
	return mq.Insert(key, reader), nil
}
