package atlas

import (
	"sort"
	"strconv"
	"sync"
)

// Key identifies one atlas: a resolved font URL and an SDF glyph size.
type Key struct {
	FontURL   string
	GlyphSize int
}

// String returns a compact representation of the key.
func (k Key) String() string {
	return k.FontURL + "@" + strconv.Itoa(k.GlyphSize)
}

// Store is the process-wide map from atlas keys to atlases. Atlases are
// created lazily on first use and live until the store is dropped.
//
// Thread safety: Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	atlases map[Key]*Atlas
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{atlases: make(map[Key]*Atlas)}
}

// Get returns the atlas for key if one exists.
func (s *Store) Get(key Key) (*Atlas, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.atlases[key]
	return a, ok
}

// GetOrCreate returns the atlas for key, creating it with config if it does
// not exist yet. config.GlyphSize is taken from the key. Concurrent callers
// for the same key always get the same atlas.
func (s *Store) GetOrCreate(key Key, config Config) (*Atlas, error) {
	// Fast path: read lock
	s.mu.RLock()
	a, ok := s.atlases[key]
	s.mu.RUnlock()
	if ok {
		return a, nil
	}

	// Slow path: write lock
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if a, ok := s.atlases[key]; ok {
		return a, nil
	}

	a, err := New(key, config)
	if err != nil {
		return nil, err
	}
	s.atlases[key] = a
	return a, nil
}

// Len returns the number of atlases.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.atlases)
}

// Keys returns all atlas keys in a stable order.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	keys := make([]Key, 0, len(s.atlases))
	for k := range s.atlases {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].FontURL != keys[j].FontURL {
			return keys[i].FontURL < keys[j].FontURL
		}
		return keys[i].GlyphSize < keys[j].GlyphSize
	})
	return keys
}

// Each calls fn for every atlas in key order. Iteration stops if fn
// returns false.
func (s *Store) Each(fn func(*Atlas) bool) {
	for _, k := range s.Keys() {
		a, ok := s.Get(k)
		if !ok {
			continue
		}
		if !fn(a) {
			return
		}
	}
}

// Stats returns statistics for every atlas in key order.
func (s *Store) Stats() []Stats {
	var out []Stats
	s.Each(func(a *Atlas) bool {
		out = append(out, a.Stats())
		return true
	})
	return out
}
