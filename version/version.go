package version

import (
	"encoding/binary"
	"os"
	"sync"

	"filcache/utils"
)

const (
	L0_CompactionTrigger = 5
)

// Version is one generation of the level/file layout: which SSTables
// belong to which level, plus the append-only manifest log backing it.
type Version struct {
	opt *utils.Options
	f   *os.File

	vset *VersionSet
	next *Version
	prev *Version
	files [][]*FileMetaData
	sync.RWMutex
}

func NewVersion(opt *utils.Options) *Version {
	files := make([][]*FileMetaData, opt.MaxLevelNum)
	for i := 0; i < opt.MaxLevelNum; i++ {
		files[i] = make([]*FileMetaData, 0)
	}
	return &Version{
		opt:     opt,
		files:   files,
		RWMutex: sync.RWMutex{},
	}
}

// log appends one add/delete record to the manifest log:
// | op(2) | level(2) | fid(8) | smallestLen(4) | smallest | largestLen(4) | largest |
func (v *Version) log(level int, fileMetaData *FileMetaData, op uint16) {
	ssz := len(fileMetaData.smallest)
	lsz := len(fileMetaData.largest)

	head := make([]byte, 16)
	binary.LittleEndian.PutUint16(head[0:2], op)
	binary.LittleEndian.PutUint16(head[2:4], uint16(level))
	binary.LittleEndian.PutUint64(head[4:12], fileMetaData.id)
	binary.LittleEndian.PutUint32(head[12:16], uint32(ssz))
	if _, err := v.f.Write(head); err != nil {
		panic(err)
	}
	if _, err := v.f.Write(fileMetaData.smallest); err != nil {
		panic(err)
	}

	tail := make([]byte, 4+lsz)
	binary.LittleEndian.PutUint32(tail[0:4], uint32(lsz))
	copy(tail[4:], fileMetaData.largest)
	if _, err := v.f.Write(tail); err != nil {
		panic(err)
	}
}

func (v *Version) deleteFile(level uint16, meta *FileMetaData) {
	numFiles := len(v.files[level])
	for i := 0; i < numFiles; i++ {
		if v.files[level][i].id == meta.id {
			v.files[level] = append(v.files[level][:i], v.files[level][i+1:]...)
			break
		}
	}
}

// pickCompactionLevel picks the level with the highest compaction score:
// for L0, len(files)/L0_CompactionTrigger; for Li, totalFileSize/maxBytesForLevel.
// Nothing in this tree triggers a background compaction from it yet — the
// score is surfaced to callers that log it alongside each flush.
func (v *Version) pickCompactionLevel() int {
	baseLevel := 0
	var score float64
	var bestScore float64
	var maxLevelScore float64
	for i := 0; i < v.opt.MaxLevelNum; i++ {
		if i == 0 {
			score = float64(len(v.files[0])) / float64(L0_CompactionTrigger)
		} else {
			score = float64(totalFileSize(v.files[i])) / maxBytesForLevel(i)
		}
		maxLevelScore = score
		if score > bestScore {
			bestScore = score
			baseLevel = i
		}
	}
	if bestScore < 0.6 {
		if maxLevelScore > 0.5 {
			return v.opt.MaxLevelNum - 1
		} else if len(v.files[0]) > L0_CompactionTrigger/2 {
			return 0
		}
	}
	return baseLevel
}

func maxBytesForLevel(level int) float64 {
	result := 1. * 1048576.0
	for level > 1 {
		result *= 10
		level--
	}
	return result
}

func totalFileSize(files []*FileMetaData) uint64 {
	var size uint64
	for _, file := range files {
		size += file.fileSize
	}
	return size
}
