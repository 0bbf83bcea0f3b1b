package sstable

import (
	"io"
	"os"

	"filcache/file"
	"filcache/multiqueue"
	"filcache/utils"
	"filcache/utils/codec"
	"filcache/utils/convert"
	"filcache/utils/errs"
	"github.com/pkg/errors"
)

// sst 的内存形式
type Table struct {
	ss *SSTable
	//lm     *levelManager
	fid    uint64
	opt    *utils.Options
	MinKey []byte
	MaxKey []byte

	// filterHandle is nil when the table was opened without a filter
	// policy; every lookup through it falls back to a plain block scan.
	filterHandle *multiqueue.Handle
}

func newTable(opt *utils.Options, fid uint64) *Table {
	return &Table{
		fid: fid,
		opt: opt,
	}
}

func OpenTable(opt *utils.Options, fid uint64) *Table {
	fileName := file.FileNameSSTable(opt.WorkDir, fid)
	t := &Table{fid: fid, opt: opt}
	t.ss = OpenSStable(&file.Options{
		FID:      fid,
		FileName: fileName,
		Dir:      opt.WorkDir,
		Flag:     os.O_CREATE | os.O_RDWR,
		MaxSz:    0,
	})
	index, trailer, err := t.readIndexAndTrailer()
	errs.Err(err)
	t.ss.SetIndex(index)
	if len(t.ss.Indexs().BlockOffsets) > 0 {
		t.MinKey = t.ss.Indexs().BlockOffsets[0].Key
	}
	t.registerFilter(trailer)
	return t
}

// registerFilter opens (or reopens) the table's filter block reader
// against the filter cache shared through t.opt, a no-op when the table
// was built without a filter policy.
func (t *Table) registerFilter(trailer []byte) {
	if t.opt.FilterPolicy == nil || t.opt.FilterCache == nil || len(trailer) == 0 {
		return
	}
	handle, err := multiqueue.Open(t.opt.FilterCache, t.opt.FilterPolicy, trailer, t.ss.f, t.fid, t.opt.FilterLoader)
	errs.Err(err)
	t.filterHandle = handle
}

func (t *Table) Close() error {
	if t.opt.FilterCache != nil && t.filterHandle != nil {
		t.opt.FilterCache.Value(t.filterHandle).WaitInitLoad()
		t.opt.FilterCache.Erase(multiqueue.CacheKey(t.opt.FilterPolicy, t.fid))
	}
	return t.ss.Close()
}

func (t *Table) Delete() error {
	if t.opt.FilterCache != nil && t.filterHandle != nil {
		t.opt.FilterCache.Value(t.filterHandle).WaitInitLoad()
		t.opt.FilterCache.Erase(multiqueue.CacheKey(t.opt.FilterPolicy, t.fid))
	}
	return t.ss.Delete()
}

func (t *Table) Search(key []byte) (entry *utils.Entry, err error) {
	iter := t.NewIterator(t.opt)
	iter.Seek(key)
	if !iter.Valid() {
		return nil, errs.ErrKeyNotFound
	}
	if t.Compare(iter.Item().Entry().Key, key) == 0 {
		return iter.Item().Entry(), nil
	}
	return nil, errs.ErrKeyNotFound
}

// findGreater returns the index of the last block whose first key is <= key,
// or -1 when key sorts before every block.
func (t *Table) findGreater(index *IndexBlock, key []byte) int {
	low, high := 0, len(index.BlockOffsets)-1

	for low < high {
		mid := (high-low)/2 + low
		if t.Compare(index.BlockOffsets[mid].Key, key) >= 0 {
			high = mid
		} else {
			low = mid + 1
		}

	}
	if t.Compare(index.BlockOffsets[low].Key, key) > 0 {
		return low - 1
	}

	return low
}

func (t *Table) Compare(key, key2 []byte) int {
	return t.opt.Comparable.Compare(key, key2)
}

func (t *Table) Fid() uint64 {
	return t.fid
}

func (t *Table) Index() *IndexBlock {
	return t.ss.Indexs()
}

func (t *Table) SetIndex(index *IndexBlock) {
	t.ss.indexBlock = index
}

func (t *Table) ReadBlock(idx int) (*Block, error) {
	if idx < 0 {
		return nil, nil
	}
	block := &Block{}

	f := t.ss.f
	index := t.ss.Indexs()

	blockOffset := index.BlockOffsets[idx]
	offset := blockOffset.Offset
	size := blockOffset.Len

	buf, err := f.Bytes(int(offset), int(size))
	if err != nil {
		return nil, err
	}

	block.Offset = int(offset)
	block.Data = buf

	off := block.readEntryOffsets(buf)
	block.entriesIndexStart = int(off)

	// TODO cache block

	return block, nil
}

// readIndexAndTrailer reads the table's footer and peels off, in order
// from the end of the file: checksum+len, index+len, filter trailer+len.
// The filter trailer is returned as-is for the caller to hand to
// multiqueue.Open; it is nil when the table has no filter block.
func (t *Table) readIndexAndTrailer() (*IndexBlock, []byte, error) {
	readPos := len(t.ss.f.Data) - 4
	checksumLen := convert.BytesToU32(t.ss.readCheckError(readPos, 4))
	readPos -= int(checksumLen)
	checksum := t.ss.readCheckError(readPos, int(checksumLen))

	readPos -= 4
	indexLen := convert.BytesToU32(t.ss.readCheckError(readPos, 4))
	readPos -= int(indexLen)

	data := t.ss.readCheckError(readPos, int(indexLen))
	if err := codec.VerifyChecksum(data, checksum); err != nil {
		return nil, nil, errors.Wrapf(err, "failed to verify checksum for table: %s", t.ss.f.Fd.Name())
	}
	index := decodeIndexBlock(data)

	readPos -= 4
	trailerLen := convert.BytesToU32(t.ss.readCheckError(readPos, 4))
	if trailerLen == 0 {
		return index, nil, nil
	}
	readPos -= int(trailerLen)
	trailer := t.ss.readCheckError(readPos, int(trailerLen))
	trailerCopy := make([]byte, len(trailer))
	copy(trailerCopy, trailer)

	return index, trailerCopy, nil
}

func (t *Table) ReadIndex() (*IndexBlock, error) {
	index, _, err := t.readIndexAndTrailer()
	return index, err
}

func (t *Table) Size() uint64 {
	return t.ss.fileSize
}

type TableIterator struct {
	it        utils.Item
	opt       *utils.Options
	t         *Table
	blockPos  int
	blockIter *BlockIterator
	err       error
}

func (iter *TableIterator) GetFID() uint64 {
	return iter.t.fid
}

func (t *Table) NewIterator(options *utils.Options) TableIterator {
	return TableIterator{
		opt:       options,
		t:         t,
		blockIter: &BlockIterator{},
	}
}

func (iter *TableIterator) Next() {
	if iter.blockPos >= len(iter.t.ss.Indexs().BlockOffsets) {
		iter.err = io.EOF
		return
	}
	if len(iter.blockIter.data) == 0 {
		block, err := iter.t.ReadBlock(iter.blockPos)
		if err != nil {
			iter.err = err
			return
		}
		iter.blockIter.setBlock(block, iter.t.opt.Comparable)
		iter.blockIter.seekToFirst()
		iter.err = iter.blockIter.Error()
		return
	}
	iter.blockIter.Next()
	if !iter.blockIter.Valid() {
		// read next block
		iter.blockPos++
		iter.blockIter.data = nil
		iter.Next()
		return
	}
	iter.it = iter.blockIter.it
}

func (iter *TableIterator) Valid() bool {
	return iter.err != io.EOF
}

func (iter *TableIterator) Rewind() {
	iter.seekToFirst()
}

func (iter *TableIterator) Item() utils.Item {
	return iter.it
}

func (iter *TableIterator) Close() error {
	iter.blockIter.Close()
	return nil
}

// Seek consults the table's filter block, when present, before touching
// any data block: a miss short-circuits straight to io.EOF, and a match
// (or the absence of a filter) falls through to the ordinary block scan.
// Every probe promotes the reader's multi-queue entry, driving the
// cost-model adjuster that may swap a unit between readers.
func (iter *TableIterator) Seek(key []byte) {
	t := iter.t
	idx := t.findGreater(t.ss.Indexs(), key)
	if idx < 0 {
		iter.err = io.EOF
		return
	}

	if t.filterHandle != nil && t.opt.FilterCache != nil {
		reader := t.opt.FilterCache.Value(t.filterHandle)
		blockOffset := t.ss.Indexs().BlockOffsets[idx].Offset
		mayMatch := reader.KeyMayMatch(uint64(blockOffset), key)
		t.opt.FilterCache.UpdateHandle(t.filterHandle, key)
		if !mayMatch {
			iter.err = io.EOF
			return
		}
	}

	// search block
	block, err := t.ReadBlock(idx)
	if err != nil {
		iter.err = err
		return
	}
	iter.blockIter.setBlock(block, iter.t.opt.Comparable)
	iter.blockIter.seekToFirst()
	iter.blockIter.Seek(key)
	iter.it = iter.blockIter.it
}

func (iter *TableIterator) seekToFirst() {
	numBlocks := len(iter.t.ss.Indexs().BlockOffsets)
	if numBlocks == 0 {
		iter.err = io.EOF
		return
	}
	iter.blockPos = 0
	block, err := iter.t.ReadBlock(iter.blockPos)
	if err != nil {
		iter.err = err
		return
	}
	iter.blockIter.setBlock(block, iter.t.opt.Comparable)
	iter.blockIter.seekToFirst()
	iter.it = iter.blockIter.Item()
	iter.err = iter.blockIter.Error()
}
