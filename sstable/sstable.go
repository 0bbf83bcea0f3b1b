package sstable

import (
	"sync"

	"filcache/file"
	"filcache/utils/errs"
)

// SSTable 文件的内存封装
type SSTable struct {
	lock       *sync.RWMutex
	f          *file.MmapFile
	indexBlock *IndexBlock

	fid      uint64
	minKey   []byte
	maxKey   []byte
	fileSize uint64
}

// Bytes returns data starting from offset off of size sz. If there's not enough data, it would
// return nil slice and io.EOF.
func (ss *SSTable) Bytes(off, sz int) ([]byte, error) {
	return ss.f.Bytes(off, sz)
}

// OpenSStable 打开一个 sst文件
func OpenSStable(opt *file.Options) *SSTable {
	omf, err := file.OpenMmapFile(opt.FileName, opt.Flag, opt.MaxSz)
	errs.Err(err)
	sz := uint64(0)
	if fi, statErr := omf.Fd.Stat(); statErr == nil {
		sz = uint64(fi.Size())
	}
	return &SSTable{f: omf, fid: opt.FID, lock: &sync.RWMutex{}, fileSize: sz}
}

// readCheckError reads sz bytes at off and panics on a short read: every
// field read this way is a fixed-width footer entry written by the same
// process, so a short read means file corruption, not a recoverable
// condition.
func (ss *SSTable) readCheckError(off, sz int) []byte {
	buf, err := ss.f.Bytes(off, sz)
	errs.WrapCondPanic(err != nil, err, "sstable: footer read")
	return buf
}

// Indexs _
func (ss *SSTable) Indexs() *IndexBlock {
	return ss.indexBlock
}

// Close 关闭
func (ss *SSTable) Close() error {
	return ss.f.Close()
}

// Delete closes the SSTable and removes its backing file, used when a
// table is dropped by compaction.
func (ss *SSTable) Delete() error {
	return ss.f.Delete()
}

func (ss *SSTable) SetIndex(index *IndexBlock) {
	ss.indexBlock = index
}

func (ss *SSTable) SetMin(key []byte) {
	ss.minKey = key
}

func (ss *SSTable) GetMin() []byte {
	return ss.minKey
}

func (ss *SSTable) SetMax(key []byte) {
	ss.maxKey = key
}
func (ss *SSTable) GetMax() []byte {
	return ss.maxKey
}

func (ss *SSTable) GetName() string {
	return ss.f.Fd.Name()
}

func (ss *SSTable) GetFid() uint64 {
	return ss.fid
}
