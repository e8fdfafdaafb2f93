package sdfcache

import (
	"context"
	"sync"
	"sync/atomic"
)

// Default configuration constants.
const (
	// DefaultShardCount is the number of shards for reduced lock contention.
	// Must be a power of 2 for fast modulo via bitwise AND.
	DefaultShardCount = 16

	// DefaultCapacity is the default maximum entries per shard.
	DefaultCapacity = 256

	// shardMask is used for fast shard selection (DefaultShardCount - 1).
	shardMask = DefaultShardCount - 1
)

// Backend stores rasterized fields by key.
type Backend interface {
	// Get returns the stored bytes. A miss is (nil, false, nil).
	Get(ctx context.Context, key Key) ([]byte, bool, error)

	// Set stores data under key.
	Set(ctx context.Context, key Key, data []byte) error
}

// Memory is a thread-safe, sharded LRU backend.
//
// Keys are already FNV hashes, so the low bits pick the shard directly.
// Stored slices are kept as-is; callers must not modify them.
type Memory struct {
	shards   [DefaultShardCount]*memoryShard
	capacity int // Per-shard capacity

	// Statistics (atomic for zero-allocation reads)
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// memoryShard is a single shard with its own mutex.
type memoryShard struct {
	mu      sync.Mutex
	entries map[Key]*lruNode
	lru     lruList
}

// NewMemory creates a backend holding up to capacity entries per shard.
// If capacity <= 0, DefaultCapacity is used.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	m := &Memory{capacity: capacity}
	for i := range m.shards {
		m.shards[i] = &memoryShard{entries: make(map[Key]*lruNode)}
	}
	return m
}

func (m *Memory) shard(key Key) *memoryShard {
	return m.shards[uint64(key)&shardMask]
}

// Get implements Backend. On a hit the entry becomes most recently used.
func (m *Memory) Get(_ context.Context, key Key) ([]byte, bool, error) {
	s := m.shard(key)

	s.mu.Lock()
	node, ok := s.entries[key]
	if ok {
		s.lru.moveToFront(node)
	}
	s.mu.Unlock()

	if !ok {
		m.misses.Add(1)
		return nil, false, nil
	}
	m.hits.Add(1)
	return node.value, true, nil
}

// Set implements Backend, evicting the oldest entries of the shard when it
// is full.
func (m *Memory) Set(_ context.Context, key Key, data []byte) error {
	s := m.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if node, ok := s.entries[key]; ok {
		s.lru.unlink(node)
		node.value = data
		s.lru.link(node)
		return nil
	}

	for s.lru.len >= m.capacity {
		oldest := s.lru.removeOldest()
		if oldest == nil {
			break
		}
		delete(s.entries, oldest.key)
		m.evictions.Add(1)
	}

	s.entries[key] = s.lru.pushFront(key, data)
	return nil
}

// Delete removes an entry. Returns true if it was present.
func (m *Memory) Delete(key Key) bool {
	s := m.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.entries[key]
	if !ok {
		return false
	}
	s.lru.unlink(node)
	delete(s.entries, key)
	return true
}

// Clear removes all entries.
func (m *Memory) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		s.entries = make(map[Key]*lruNode)
		s.lru.clear()
		s.mu.Unlock()
	}
}

// Len returns the total number of entries across all shards.
func (m *Memory) Len() int {
	total := 0
	for _, s := range m.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// MemoryStats holds Memory counters.
type MemoryStats struct {
	Len           int
	Bytes         int
	TotalCapacity int
	Hits          uint64
	Misses        uint64
	HitRate       float64
	Evictions     uint64
}

// Stats returns current cache statistics.
func (m *Memory) Stats() MemoryStats {
	st := MemoryStats{
		TotalCapacity: m.capacity * DefaultShardCount,
		Hits:          m.hits.Load(),
		Misses:        m.misses.Load(),
		Evictions:     m.evictions.Load(),
	}
	for _, s := range m.shards {
		s.mu.Lock()
		st.Len += s.lru.len
		st.Bytes += s.lru.bytes
		s.mu.Unlock()
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}
	return st
}
