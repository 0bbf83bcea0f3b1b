package sstable

import (
	"errors"
	"fmt"
	"math"
	"os"

	"filcache/file"
	"filcache/filterblock"
	"filcache/utils"
	"filcache/utils/codec"
	"filcache/utils/convert"
	"filcache/utils/errs"
)

type tableBuilder struct {
	sstSize       int64
	curBlock      *Block
	opt           *utils.Options
	blockList     []*Block
	index         *IndexBlock
	keyCount      uint32
	maxVersion    uint64
	baseKey       []byte
	staleDataSize int
	estimateSz    int64

	filter     *filterblock.Builder
	dataOffset int64 // running byte offset of the block currently being filled
	lastKey    []byte
}

type buildData struct {
	blockList     []*Block
	filterUnits   [][]byte
	filterTrailer []byte
	index         []byte
	checksum      []byte
	size          int
}

func NewTableBuiler(opt *utils.Options) *tableBuilder {
	return &tableBuilder{
		opt:     opt,
		sstSize: opt.SSTableMaxSz,
		filter:  newFilterBuilder(opt),
	}
}

func newTableBuilerWithSSTSize(opt *utils.Options, size int64) *tableBuilder {
	return &tableBuilder{
		opt:     opt,
		sstSize: size,
		filter:  newFilterBuilder(opt),
	}
}

// newFilterBuilder returns nil when the DB was opened without a filter
// policy, in which case every filter-related call below is a guarded no-op.
func newFilterBuilder(opt *utils.Options) *filterblock.Builder {
	if opt.FilterPolicy == nil {
		return nil
	}
	return filterblock.NewBuilder(opt.FilterPolicy, opt.FilterUnitsLoaded, opt.FilterUnitsTotal, opt.FilterBaseLg)
}

func (tb *tableBuilder) Add(e *utils.Entry, isStale bool) {
	key := e.Key
	val := e.Value
	// 检查是否需要分配一个新的 Block
	if tb.tryFinishBlock(e) {
		if isStale {
			// This key will be added to tableIndex and it is stale.
			tb.staleDataSize += len(key) + 4 /* len */ + 4 /* offset */
		}
		tb.finishBlock()
		if tb.filter != nil {
			tb.filter.StartBlock(uint64(tb.dataOffset))
		}
		// Create a new Block and start writing.
		tb.curBlock = &Block{
			Data: make([]byte, tb.opt.BlockSize),
		}
	}

	// Append kv data
	// +---------------------------------+
	// | header | diff key | seq | value |
	// +---------------------------------+

	var differKey []byte
	if len(tb.curBlock.BaseKey) == 0 {
		tb.curBlock.BaseKey = append(tb.curBlock.BaseKey[:0], key...)
		differKey = key
	} else {
		differKey = tb.keyDiff(key)
	}

	h := Header{
		Overlap: uint16(len(key) - len(differKey)),
		Diff:    uint16(len(differKey)),
	}

	tb.curBlock.EntryOffsets = append(tb.curBlock.EntryOffsets, uint32(tb.curBlock.End))

	tb.append(h.encode())
	tb.append(differKey)
	tb.append(convert.U64ToBytes(e.Seq))

	dst := tb.allocate(len(val))
	copy(dst, val)

	if tb.filter != nil {
		tb.filter.AddKey(key)
	}

	tb.lastKey = append(tb.lastKey[:0], key...)
}

// flush flush data to sst file.
func (tb *tableBuilder) Flush(tableName string) (t *Table, err error) {
	bd := tb.done()
	t = newTable(tb.opt, file.FID(tableName))

	t.ss = OpenSStable(&file.Options{
		FileName: tableName,
		Flag:     os.O_CREATE | os.O_RDWR,
		MaxSz:    int(bd.size)})
	t.ss.SetIndex(tb.index)
	t.ss.SetMin(tb.blockList[0].BaseKey)
	buf := make([]byte, bd.size)

	// copy data that needed
	written := bd.Copy(buf)
	errs.CondPanic(written != len(buf), fmt.Errorf("tableBuilder.flush written != len(buf)"))

	// write to file
	dst, err := t.ss.Bytes(0, bd.size)
	if err != nil {
		return nil, err
	}
	copy(dst, buf)
	t.MinKey = tb.blockList[0].BaseKey
	t.MaxKey = tb.lastKey

	// Register the just-built filter block with the shared cache right
	// away: a freshly flushed table is searched immediately (L0 lookups),
	// well before anything would otherwise reopen it.
	t.registerFilter(bd.filterTrailer)
	return t, nil
}

// Copy write data of sst to dst. e.g. data blocks, filter units, filter
// trailer, index, checksum
func (bd *buildData) Copy(dst []byte) int {
	var written int
	// copy data blocks
	for _, blk := range bd.blockList {
		written += copy(dst[written:], blk.Data[:blk.End])
	}

	// copy filter units, one contiguous region per unit index
	for _, unit := range bd.filterUnits {
		written += copy(dst[written:], unit)
	}

	// copy filter trailer and its length
	written += copy(dst[written:], bd.filterTrailer)
	written += copy(dst[written:], convert.U32ToBytes(uint32(len(bd.filterTrailer))))

	// copy index and length
	written += copy(dst[written:], bd.index)
	written += copy(dst[written:], convert.U32ToBytes(uint32(len(bd.index))))

	// copy checksum and length
	written += copy(dst[written:], bd.checksum)
	written += copy(dst[written:], convert.U32ToBytes(uint32(len(bd.checksum))))

	return written
}

// append appends to curBlock.data
func (tb *tableBuilder) append(data []byte) {
	dst := tb.allocate(len(data))
	errs.CondPanic(len(data) != copy(dst, data), errors.New("tableBuilder.append data"))
}

func (tb *tableBuilder) keyDiff(newKey []byte) []byte {
	var i int
	for i = 0; i < len(newKey) && i < len(tb.curBlock.BaseKey); i++ {
		if newKey[i] != tb.curBlock.BaseKey[i] {
			break
		}
	}
	return newKey[i:]
}

func (tb *tableBuilder) tryFinishBlock(e *utils.Entry) bool {
	if tb.curBlock == nil {
		return true
	}
	if len(tb.curBlock.EntryOffsets) <= 0 {
		return false
	}

	errs.CondPanic(!((uint32(len(tb.curBlock.EntryOffsets))+1)*4+4+8+4 < math.MaxUint32), errors.New("Integer overflow"))

	entryOffSz := int64((len(tb.curBlock.EntryOffsets) + 1)) * 4
	entriesOffsetsSize := entryOffSz + // entry offsets list
		4 + // size of list
		8 + // Sum64 in checksum proto
		4 // checksum length
	kvSize := int64(6 /*header size for entry*/) +
		int64(len(e.Key)) + int64(len(e.Value))
	tb.curBlock.EstimateSz = int64(tb.curBlock.End) + kvSize + entriesOffsetsSize

	errs.CondPanic(!(uint64(tb.curBlock.End)+uint64(tb.curBlock.EstimateSz) < math.MaxUint32), errors.New("Integer overflow"))

	return tb.curBlock.EstimateSz > int64(tb.opt.BlockSize)
}

// finishBlock write other info to Block, e.g. entry offsets, checksum
//
//	+------------------------ --------------------------------------+
//	|  kv_data | entryOffsets | entryOff len | checksum | check len |
//	+---------------------------------------------------------------+
func (tb *tableBuilder) finishBlock() {
	if tb.curBlock == nil || len(tb.curBlock.EntryOffsets) == 0 {
		return
	}
	// Append the entryOffsets and its length.
	tb.append(convert.U32SliceToBytes(tb.curBlock.EntryOffsets))
	tb.append(convert.U32ToBytes(uint32(len(tb.curBlock.EntryOffsets))))

	// Append the Block checksum and its length.
	checksum := tb.calculateChecksum(tb.curBlock.Data[:tb.curBlock.End])
	tb.append(checksum)
	tb.append(convert.U32ToBytes(uint32(len(checksum))))

	tb.estimateSz += tb.curBlock.EstimateSz
	tb.dataOffset += int64(tb.curBlock.End)
	tb.blockList = append(tb.blockList, tb.curBlock)
	tb.keyCount += uint32(len(tb.curBlock.EntryOffsets))
	tb.curBlock = nil // 表示当前block 已经被序列化到内存
	return
}

func (tb *tableBuilder) allocate(need int) []byte {
	bb := tb.curBlock
	if len(bb.Data[bb.End:]) < need {
		// We need to reallocate.
		sz := 2 * len(bb.Data)
		if bb.End+need > sz {
			sz = bb.End + need
		}
		tmp := make([]byte, sz) // todo 这里可以使用内存分配器来提升性能
		copy(tmp, bb.Data)
		bb.Data = tmp
	}
	bb.End += need
	return bb.Data[bb.End-need : bb.End]
}

func (tb *tableBuilder) calculateChecksum(data []byte) []byte {
	checkSum := codec.CalculateChecksum(data)
	return convert.U64ToBytes(checkSum)
}

func (tb *tableBuilder) done() buildData {
	tb.finishBlock()
	if len(tb.blockList) == 0 {
		return buildData{}
	}

	bd := buildData{blockList: tb.blockList}

	var dataSize uint32
	for _, blk := range tb.blockList {
		dataSize += uint32(blk.End)
	}

	if tb.filter != nil {
		bd.filterTrailer = tb.filter.Finish(uint64(dataSize))
		bd.filterUnits = tb.filter.ReturnFilters()
	}

	index, _ := tb.buildIndex()
	checksum := tb.calculateChecksum(index)
	bd.index = index
	bd.checksum = checksum

	unitsSize := 0
	for _, u := range bd.filterUnits {
		unitsSize += len(u)
	}

	bd.size = int(dataSize) + unitsSize + len(bd.filterTrailer) + 4 /* trailer len */ +
		len(index) + 4 /* index len */ + len(checksum) + 4 /* checksum len */

	return bd
}

func (tb *tableBuilder) buildIndex() ([]byte, uint32) {
	index := &IndexBlock{
		BlockOffsets: make([]*BlockOffset, len(tb.blockList)),
		KeyCount:     tb.keyCount,
	}
	var indexSize int
	var offset uint32
	var dataSize uint32
	for i, blk := range tb.blockList {
		index.BlockOffsets[i] = &BlockOffset{
			Key:    blk.BaseKey,
			Offset: offset,
			Len:    uint32(blk.End),
		}
		indexSize += 4 /* offset */ + 4 /* key len */ + len(blk.BaseKey) + 4 /* block len */
		offset += uint32(blk.End)
		dataSize += uint32(blk.End)
	}
	index.KeyCount = tb.keyCount
	indexSize += 8 /* maxVersion */ + 4 /* keyCount */

	tb.index = index
	return tb.finishIndexBlock(index, indexSize), dataSize
}

// finishIndexBlock serializes index into a flat, self-describing buffer:
// per block, (offset, key length, key, block length), followed by the
// table's max version and key count.
func (tb *tableBuilder) finishIndexBlock(index *IndexBlock, size int) []byte {
	buf := make([]byte, size)
	off := 0
	for _, bo := range index.BlockOffsets {
		off += copy(buf[off:], convert.U32ToBytes(bo.Offset))
		off += copy(buf[off:], convert.U32ToBytes(uint32(len(bo.Key))))
		off += copy(buf[off:], bo.Key)
		off += copy(buf[off:], convert.U32ToBytes(bo.Len))
	}

	off += copy(buf[off:], convert.U64ToBytes(tb.maxVersion))
	off += copy(buf[off:], convert.U32ToBytes(tb.keyCount))

	return buf
}

// decodeIndexBlock parses the buffer finishIndexBlock produces.
func decodeIndexBlock(data []byte) *IndexBlock {
	index := &IndexBlock{}
	off := 0
	for len(data)-off > 12 {
		blockOffset := convert.BytesToU32(data[off : off+4])
		off += 4
		keyLen := int(convert.BytesToU32(data[off : off+4]))
		off += 4
		key := data[off : off+keyLen]
		off += keyLen
		blockLen := convert.BytesToU32(data[off : off+4])
		off += 4
		index.BlockOffsets = append(index.BlockOffsets, &BlockOffset{Key: key, Offset: blockOffset, Len: blockLen})
	}
	index.KeyCount = convert.BytesToU32(data[off+8 : off+12])
	return index
}
