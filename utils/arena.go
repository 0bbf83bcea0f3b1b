package utils

import "sync/atomic"

// Arena is a bump allocator used only to track how many bytes a memtable's
// skip list has committed to entries, so LSM.Set can decide when to rotate
// to a new memtable. It does not back the skip list's node storage: Go's
// GC makes the teacher's raw-pointer arena unnecessary here.
type Arena struct {
	cap    int64
	offset int64
}

func NewArena(capacity int64) *Arena {
	return &Arena{cap: capacity}
}

// Allocate records n more bytes of usage and returns the new total.
func (a *Arena) Allocate(n int64) int64 {
	return atomic.AddInt64(&a.offset, n)
}

func (a *Arena) Size() int64 {
	return atomic.LoadInt64(&a.offset)
}

func (a *Arena) Capacity() int64 {
	return a.cap
}
