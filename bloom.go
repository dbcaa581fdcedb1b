package lsm

import (
	"math"

	"github.com/zeebo/xxh3"
)

// BloomFilter is a space-efficient probabilistic set membership test.
// False positives are possible, false negatives are not.
//
// Double hashing derives k hash functions from a single 128-bit xxh3
// hash split into two 64-bit halves: h(i) = h1 + i*h2 (mod m).
type BloomFilter struct {
	bits    []byte
	numBits uint64
	numHash uint32
}

// NewBloomFilter sizes a filter for expectedItems entries at the
// given target false-positive rate.
//
//	m = -n * ln(p) / (ln2)^2
//	k = (m/n) * ln2
func NewBloomFilter(expectedItems int, fpRate float64) *BloomFilter {
	if expectedItems < 1 {
		expectedItems = 1
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.01
	}

	n := float64(expectedItems)
	m := -n * math.Log(fpRate) / (math.Ln2 * math.Ln2)
	k := (m / n) * math.Ln2

	numBits := uint64(math.Ceil(m))
	if numBits < 8 {
		numBits = 8
	}
	numHash := uint32(math.Ceil(k))
	if numHash < 1 {
		numHash = 1
	}

	return &BloomFilter{
		bits:    make([]byte, (numBits+7)/8),
		numBits: numBits,
		numHash: numHash,
	}
}

// Add inserts a key into the filter.
func (bf *BloomFilter) Add(key []byte) {
	h1, h2 := bf.hash(key)
	for i := uint32(0); i < bf.numHash; i++ {
		pos := (h1 + uint64(i)*h2) % bf.numBits
		bf.bits[pos/8] |= 1 << (pos % 8)
	}
}

// MayContain returns true if key might be present. A false result
// guarantees key is absent.
func (bf *BloomFilter) MayContain(key []byte) bool {
	h1, h2 := bf.hash(key)
	for i := uint32(0); i < bf.numHash; i++ {
		pos := (h1 + uint64(i)*h2) % bf.numBits
		if bf.bits[pos/8]&(1<<(pos%8)) == 0 {
			return false
		}
	}
	return true
}

// hash derives two 64-bit values from a single 128-bit xxh3 digest.
func (bf *BloomFilter) hash(key []byte) (uint64, uint64) {
	sum := xxh3.Hash128(key)
	h1, h2 := sum.Hi, sum.Lo
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}
