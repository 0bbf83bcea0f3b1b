package utils

import (
	"bytes"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const kMaxHeight = 20

// SkipList is the memtable's backing structure: a probabilistic ordered
// map keyed by Entry.Key, ordered by a cheap prefix score first and the
// raw key as a tiebreaker. Arena tracks approximate byte usage so the
// owning memtable knows when to rotate.
type SkipList struct {
	head      *Node
	maxHeight int
	rand      *rand.Rand
	lock      sync.RWMutex
	Arena     *Arena
}

type Node struct {
	Entry *Entry
	next  []*Node
	score float64
}

func NewNode(entry *Entry, height int) *Node {
	return &Node{
		Entry: entry,
		next:  make([]*Node, height),
		score: calcScore(entry.Key),
	}
}

func NewSkipList(arenaSize int64) *SkipList {
	return &SkipList{
		head:      NewNode(&Entry{Key: []byte{0}}, kMaxHeight),
		maxHeight: 1,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		Arena:     NewArena(arenaSize),
	}
}

func (list *SkipList) FindGreaterOrEqual(entry *Entry, prev []*Node) *Node {
	p := list.head
	level := list.GetMaxHeight() - 1

	for i := level; i >= 0; i-- {
		for next := p.next[i]; next != nil; next = p.next[i] {
			if list.KeyIsAfterNode(entry.Key, next) {
				if list.compare(calcScore(entry.Key), entry.Key, next) == 0 {
					next.Entry.Value = entry.Value
				}
				break
			}
			p = next
		}
		if prev != nil {
			prev[i] = p
		}
	}
	return p
}

func (list *SkipList) Add(entry *Entry) error {
	list.lock.Lock()
	defer list.lock.Unlock()

	prev := make([]*Node, kMaxHeight)
	p := list.FindGreaterOrEqual(entry, prev)
	if p.next[0] != nil && bytes.Equal(entry.Key, p.next[0].Entry.Key) {
		p.next[0].Entry.Value = entry.Value
		p.next[0].Entry.Seq = entry.Seq
		return nil
	}

	height := list.randomHeight()
	if height > list.GetMaxHeight() {
		for i := list.GetMaxHeight(); i < height; i++ {
			prev[i] = list.head
		}
		list.maxHeight = height
	}

	node := NewNode(entry, height)
	for i := 0; i < height; i++ {
		node.next[i] = prev[i].next[i]
		prev[i].next[i] = node
	}

	list.Arena.Allocate(int64(len(entry.Key) + len(entry.Value) + 16))
	return nil
}

func (list *SkipList) Search(key []byte) *Node {
	list.lock.RLock()
	defer list.lock.RUnlock()

	p := list.head
	level := list.GetMaxHeight() - 1
	for i := level; i >= 0; i-- {
		for next := p.next[i]; next != nil; next = p.next[i] {
			if list.KeyIsAfterNode(key, next) {
				if list.compare(calcScore(key), key, next) == 0 {
					return next
				}
				break
			}
			p = next
		}
	}
	return nil
}

func (list *SkipList) GetMaxHeight() int {
	return list.maxHeight
}

func (list *SkipList) KeyIsAfterNode(key []byte, next *Node) bool {
	return next != nil && list.compare(calcScore(key), key, next) <= 0
}

func (list *SkipList) compare(score float64, key []byte, next *Node) int {
	if score == next.score {
		return bytes.Compare(key, next.Entry.Key)
	}
	if score < next.score {
		return -1
	}
	return 1
}

func calcScore(key []byte) float64 {
	var hash uint64
	l := len(key)
	if l > 8 {
		l = 8
	}
	for i := 0; i < l; i++ {
		shift := uint(64 - 8 - i*8)
		hash |= uint64(key[i]) << shift
	}
	return float64(hash)
}

func (list *SkipList) randomHeight() int {
	h := 1
	for h < kMaxHeight && list.rand.Intn(2) == 0 {
		h++
	}
	return h
}

func (list *SkipList) MemSize() int64 {
	return list.Arena.Size()
}

// Close is a no-op: the skip list owns no resources beyond Go-managed
// memory tracked through Arena. Kept so callers that treat MemTable
// components uniformly (wal, table) can Close() them all the same way.
func (list *SkipList) Close() error {
	return nil
}

// SkipListIterator walks the level-0 chain in key order.
type SkipListIterator struct {
	list *SkipList
	node *Node
}

func (list *SkipList) NewIterator() *SkipListIterator {
	return &SkipListIterator{list: list}
}

func (it *SkipListIterator) Rewind() {
	it.node = it.list.head.next[0]
}

func (it *SkipListIterator) Valid() bool {
	return it.node != nil
}

func (it *SkipListIterator) Next() {
	it.node = it.node.next[0]
}

func (it *SkipListIterator) Item() Item {
	return it.node.Entry
}

func (it *SkipListIterator) Seek(key []byte) {
	it.list.lock.RLock()
	defer it.list.lock.RUnlock()

	p := it.list.head
	level := it.list.GetMaxHeight() - 1
	for i := level; i >= 0; i-- {
		for next := p.next[i]; next != nil; next = p.next[i] {
			if it.list.KeyIsAfterNode(key, next) {
				break
			}
			p = next
		}
	}
	it.node = p.next[0]
}

func (it *SkipListIterator) Close() error {
	return nil
}

func (list *SkipList) PrintSkipList() {
	p := list.head
	level := list.GetMaxHeight() - 1
	for i := level; i >= 0; i-- {
		for next := p.next[i]; next != nil; next = next.next[i] {
			fmt.Printf("(%s, %s) -> ", next.Entry.Key, next.Entry.Value)
		}
		fmt.Println()
	}
}
