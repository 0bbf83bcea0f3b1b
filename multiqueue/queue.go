package multiqueue

import "filcache/filterblock"

// node is one entry in a SingleQueue: the cache key and the reader it owns,
// plus the list pointers that place it within one residency bucket.
type node struct {
	key     string
	reader  *filterblock.Reader
	deleter func(key string, reader *filterblock.Reader)
	prev    *node
	next    *node
}

// SingleQueue is a sentinel-delimited doubly linked list of nodes whose
// readers all currently have the same resident-unit count. It has no
// synchronization of its own; the owning MultiQueue's mutex protects it.
// Grounded in the teacher's cache/replacer.go List: a head/tail sentinel
// pair, MRU right after head, LRU right before tail.
type SingleQueue struct {
	head *node
	tail *node
	sz   int
}

func NewSingleQueue() *SingleQueue {
	head := &node{}
	tail := &node{}
	head.next = tail
	tail.prev = head
	return &SingleQueue{head: head, tail: tail}
}

func (q *SingleQueue) Len() int { return q.sz }

// Insert appends a brand-new node for key/reader at the MRU end.
func (q *SingleQueue) Insert(key string, reader *filterblock.Reader, deleter func(string, *filterblock.Reader)) *node {
	n := &node{key: key, reader: reader, deleter: deleter}
	q.Append(n)
	return n
}

// Append places an existing node at the MRU end.
func (q *SingleQueue) Append(n *node) {
	next := q.head.next
	n.next = next
	next.prev = n
	n.prev = q.head
	q.head.next = n
	q.sz++
}

// Remove unlinks n without deleting its reader.
func (q *SingleQueue) Remove(n *node) {
	prev, next := n.prev, n.next
	prev.next = next
	next.prev = prev
	n.prev, n.next = nil, nil
	q.sz--
}

// MoveToMRU promotes an already-linked node to the MRU end.
func (q *SingleQueue) MoveToMRU(n *node) {
	q.Remove(n)
	q.Append(n)
}

// Erase unlinks n and invokes its deleter.
func (q *SingleQueue) Erase(n *node) {
	q.Remove(n)
	if n.deleter != nil {
		n.deleter(n.key, n.reader)
	}
}

func (q *SingleQueue) lru() *node {
	if q.tail.prev == q.head {
		return nil
	}
	return q.tail.prev
}

// FindColdFilter walks LRU->MRU, collecting nodes whose reader is cold
// (IsCold(sn)) and evictable (CanBeEvict()), subtracting OneUnitSize from
// *memory for each one collected. It stops as soon as *memory drops to or
// below zero, or the list is exhausted. hot is excluded from consideration
// even if it happens to sit in this queue and reads as cold: it is the node
// being loaded this round, and a caller that invokes UpdateHandle without a
// preceding KeyMayMatch bump to its lastSN would otherwise make hot both the
// load target and its own evicted candidate.
func (q *SingleQueue) FindColdFilter(memory *int64, sn uint64, hot *node, out *[]*node) {
	for n := q.lru(); n != nil; n = n.prev {
		if n == q.head {
			break
		}
		if n == hot {
			continue
		}
		if n.reader.IsCold(sn) && n.reader.CanBeEvict() {
			*memory -= n.reader.OneUnitSize()
			*out = append(*out, n)
			if *memory <= 0 {
				return
			}
		}
	}
}
