package lsm

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"filcache/file"
	"filcache/utils"
	"filcache/utils/errs"
)

type Table = utils.SkipList

type MemTable struct {
	table *Table
	wal   *WalFile
	ref   int32
	state int32
}

// NewMemtable _
func (lsm *LSM) NewMemTable() *MemTable {
	newFid := lsm.IncreaseFid(1)
	fileOpt := &file.Options{
		FID:      newFid,
		FileName: mtFilePath(lsm.option.WorkDir, newFid),
		Dir:      lsm.option.WorkDir,
		Flag:     os.O_CREATE | os.O_RDWR,
		MaxSz:    int(lsm.option.MemTableSize),
	}
	m := &MemTable{
		table: utils.NewSkipList(lsm.option.MemTableSize),
		wal:   OpenWalFile(fileOpt),
		state: NORMAL,
	}
	m.IncrRef()
	return m
}

func (mem *MemTable) set(entry *utils.Entry) error {
	if err := mem.wal.Write(entry); err != nil {
		return err
	}
	return mem.table.Add(entry)
}

func (mem *MemTable) Get(key []byte) (*utils.Entry, error) {
	node := mem.table.Search(key)
	if node == nil {
		return nil, errs.ErrKeyNotFound
	}
	return node.Entry, nil
}

func (m *MemTable) Size() int64 {
	return m.table.MemSize()
}

// Close
func (m *MemTable) close() error {
	// close wal first
	if err := m.wal.Close(); err != nil {
		return err
	}
	return m.table.Close()
}

func mtFilePath(dir string, fid uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%05d%s", fid, walFileExt))
}

func (m *MemTable) recoveryMemTable() func(*utils.Entry) error {
	return func(e *utils.Entry) error {
		return m.table.Add(e)
	}
}

// IncrRef increase the ref by 1
func (m *MemTable) IncrRef() {
	atomic.AddInt32(&m.ref, 1)
}

// DecrRef decrease the ref by 1. If the ref is 0, close the skip list
func (m *MemTable) DecrRef() {
	newRef := atomic.AddInt32(&m.ref, -1)
	if newRef <= 0 {
		m.close()
	}
}

type MemTableIterator struct {
	list *utils.SkipListIterator
	mem  *MemTable
}

func (m *MemTable) NewMemTableIterator() *MemTableIterator {
	return &MemTableIterator{list: m.table.NewIterator(), mem: m}
}

func (m MemTableIterator) Next() {
	m.list.Next()
}

func (m MemTableIterator) Valid() bool {
	return m.list.Valid()
}

func (m MemTableIterator) Rewind() {
	m.list.Rewind()
}

func (m MemTableIterator) Item() utils.Item {
	return m.list.Item()
}

func (m MemTableIterator) Close() error {
	return nil
}

func (m MemTableIterator) Seek(key []byte) {
	m.list.Seek(key)
}
