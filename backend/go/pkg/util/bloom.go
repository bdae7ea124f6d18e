package util

import (
	"hash/fnv"
	"math"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// BloomFilter 是一个线程安全的布隆过滤器。
// Test 返回 false 时元素一定不存在；返回 true 时元素可能存在，需要再查询数据库确认。
type BloomFilter struct {
	m     uint
	k     uint
	bits  *bitset.BitSet
	count uint
	lock  sync.RWMutex
}

// NewBloomFilter 创建一个布隆过滤器。
// capacity: 预估要存储的元素数量。
// errorRate: 期望的误报率 (例如 0.01 表示 1%)。
func NewBloomFilter(capacity uint, errorRate float64) *BloomFilter {
	if capacity == 0 {
		capacity = 1
	}
	if errorRate <= 0 || errorRate >= 1 {
		errorRate = 0.01
	}
	m := optimalM(capacity, errorRate)
	return &BloomFilter{
		m:    m,
		k:    optimalK(capacity, m),
		bits: bitset.New(m),
	}
}

// Add 向布隆过滤器中添加一个元素。
func (bf *BloomFilter) Add(data []byte) {
	h1, h2 := baseHashes(data)
	bf.lock.Lock()
	defer bf.lock.Unlock()
	for i := uint(0); i < bf.k; i++ {
		bf.bits.Set(bf.location(h1, h2, i))
	}
	bf.count++
}

// AddString 是 Add 的字符串版本。
func (bf *BloomFilter) AddString(s string) {
	bf.Add([]byte(s))
}

// Test 检查一个元素是否可能存在。
func (bf *BloomFilter) Test(data []byte) bool {
	h1, h2 := baseHashes(data)
	bf.lock.RLock()
	defer bf.lock.RUnlock()
	for i := uint(0); i < bf.k; i++ {
		if !bf.bits.Test(bf.location(h1, h2, i)) {
			return false
		}
	}
	return true
}

// TestString 是 Test 的字符串版本。
func (bf *BloomFilter) TestString(s string) bool {
	return bf.Test([]byte(s))
}

// Count 返回已添加的元素数量。
func (bf *BloomFilter) Count() uint {
	bf.lock.RLock()
	defer bf.lock.RUnlock()
	return bf.count
}

func (bf *BloomFilter) location(h1, h2 uint64, i uint) uint {
	return uint((h1 + uint64(i)*h2) % uint64(bf.m))
}

// baseHashes 用两个 FNV 哈希做双重哈希，生成 k 个位置。
func baseHashes(data []byte) (uint64, uint64) {
	a := fnv.New64a()
	a.Write(data)
	b := fnv.New64()
	b.Write(data)
	return a.Sum64(), b.Sum64()
}

// m = - (n * ln(p)) / (ln(2)^2)
func optimalM(n uint, p float64) uint {
	return uint(math.Ceil(-(float64(n) * math.Log(p)) / (math.Ln2 * math.Ln2)))
}

// k = (m / n) * ln(2)
func optimalK(n, m uint) uint {
	k := uint(math.Ceil(float64(m) / float64(n) * math.Ln2))
	if k < 1 {
		return 1
	}
	return k
}
