package filterpolicy

import (
	"math"

	"github.com/dgryski/go-metro"
)

// BloomFilterMaxHashes caps the number of hash probes per key: past this
// point more hashes cost more without meaningfully improving the false
// positive rate.
const BloomFilterMaxHashes = 30

// BloomPolicy is the reference FilterPolicy: a standard k-hash Bloom filter
// per unit, sized from a target false positive rate. Each unit gets its
// own seed derived from its index so that two units built over the same
// key set are statistically independent.
type BloomPolicy struct {
	bitsPerKey int
	fp         float64
}

// NewBloomPolicy returns a policy tuned for fp (e.g. 0.01 for ~1%).
func NewBloomPolicy(fp float64) *BloomPolicy {
	if fp <= 0 || fp >= 1 {
		fp = 0.01
	}
	bitsPerKey := bitsPerKeyForFP(fp)
	return &BloomPolicy{bitsPerKey: bitsPerKey, fp: fp}
}

func (p *BloomPolicy) Name() string {
	return "filcache.BuiltinBloomFilter"
}

func (p *BloomPolicy) FalsePositiveRate() float64 {
	return p.fp
}

func (p *BloomPolicy) CreateFilter(keys [][]byte, index int) []byte {
	bf := newBloomBitmap(len(keys), p.bitsPerKey)
	seed := unitSeed(index)
	for _, key := range keys {
		bf.insert(metro.Hash64(key, seed))
	}
	return bf.bitmap
}

func (p *BloomPolicy) KeyMayMatch(key []byte, filter []byte, index int) bool {
	bf := bloomBitmap{bitmap: filter}
	return bf.mayContain(metro.Hash64(key, unitSeed(index)))
}

// unitSeed turns a unit index into a hash seed far enough apart from its
// neighbours that go-metro's avalanche mixing decorrelates the resulting
// bitmaps.
func unitSeed(index int) uint64 {
	return uint64(index)*0x9E3779B97F4A7C15 + 1
}

type bloomBitmap struct {
	bitmap []byte
}

func newBloomBitmap(numEntries, bitsPerKey int) bloomBitmap {
	if bitsPerKey < 0 {
		bitsPerKey = 0
	}
	k := uint32(float64(bitsPerKey) * 0.69)
	if k < 1 {
		k = 1
	}
	if k > BloomFilterMaxHashes {
		k = BloomFilterMaxHashes
	}

	nBits := numEntries * bitsPerKey
	if nBits < 64 {
		nBits = 64
	}
	nBytes := (nBits + 7) / 8
	nBits = nBytes * 8

	filter := make([]byte, nBytes+1)
	filter[nBytes] = byte(k)
	return bloomBitmap{bitmap: filter}
}

func (f *bloomBitmap) insert(h uint64) {
	k := uint32(f.bitmap[len(f.bitmap)-1])
	if k > BloomFilterMaxHashes {
		return
	}
	nBits := uint32(8 * (len(f.bitmap) - 1))
	h32 := uint32(h)
	delta := h32>>17 | h32<<15
	for j := uint32(0); j < k; j++ {
		bitPos := h32 % nBits
		f.bitmap[bitPos/8] |= 1 << (bitPos % 8)
		h32 += delta
	}
}

func (f *bloomBitmap) mayContain(h uint64) bool {
	if len(f.bitmap) < 2 {
		return false
	}
	k := uint32(f.bitmap[len(f.bitmap)-1])
	if k > BloomFilterMaxHashes {
		return true
	}
	nBits := uint32(8 * (len(f.bitmap) - 1))
	h32 := uint32(h)
	delta := h32>>17 | h32<<15
	for j := uint32(0); j < k; j++ {
		bitPos := h32 % nBits
		if f.bitmap[bitPos/8]&(1<<(bitPos%8)) == 0 {
			return false
		}
		h32 += delta
	}
	return true
}

func bitsPerKeyForFP(fp float64) int {
	size := -1 * math.Log(fp) / math.Pow(0.69314718056, 2)
	return int(math.Ceil(size))
}
