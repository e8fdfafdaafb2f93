package atlas

import (
	"sync"
	"testing"
)

func TestStoreGetOrCreate(t *testing.T) {
	s := NewStore()
	cfg := testConfig()

	k1 := Key{FontURL: "builtin:goregular", GlyphSize: 32}
	k2 := Key{FontURL: "builtin:goregular", GlyphSize: 64}

	a1, err := s.GetOrCreate(k1, cfg)
	if err != nil {
		t.Fatalf("GetOrCreate(k1) error = %v", err)
	}
	again, _ := s.GetOrCreate(k1, cfg)
	if a1 != again {
		t.Error("GetOrCreate returned a different atlas for the same key")
	}

	a2, err := s.GetOrCreate(k2, cfg)
	if err != nil {
		t.Fatalf("GetOrCreate(k2) error = %v", err)
	}
	if a1 == a2 {
		t.Error("different glyph sizes share an atlas")
	}
	if a2.Config().GlyphSize != 64 {
		t.Errorf("GlyphSize = %d, want 64 from key", a2.Config().GlyphSize)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	keys := s.Keys()
	if len(keys) != 2 || keys[0] != k1 || keys[1] != k2 {
		t.Errorf("Keys() = %v, want [%v %v]", keys, k1, k2)
	}
}

func TestStoreInvalidConfig(t *testing.T) {
	s := NewStore()
	_, err := s.GetOrCreate(Key{FontURL: "x", GlyphSize: 48}, testConfig())
	if err == nil {
		t.Fatal("GetOrCreate with non power of two glyph size succeeded")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after failed create, want 0", s.Len())
	}
}

func TestStoreConcurrent(t *testing.T) {
	s := NewStore()
	key := Key{FontURL: "builtin:goregular", GlyphSize: 32}

	var wg sync.WaitGroup
	results := make([]*Atlas, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := s.GetOrCreate(key, testConfig())
			if err != nil {
				t.Errorf("GetOrCreate() error = %v", err)
				return
			}
			results[i] = a
		}(i)
	}
	wg.Wait()

	for i, a := range results {
		if a != results[0] {
			t.Fatalf("result %d differs", i)
		}
	}
}

func TestKeyString(t *testing.T) {
	k := Key{FontURL: "https://example.com/a.ttf", GlyphSize: 64}
	if got := k.String(); got != "https://example.com/a.ttf@64" {
		t.Errorf("String() = %q", got)
	}
}

func TestStoreStats(t *testing.T) {
	s := NewStore()
	a, _ := s.GetOrCreate(Key{FontURL: "f", GlyphSize: 32}, testConfig())
	path, bounds := squarePath()
	a.AllocateSlot(1, path, bounds)

	stats := s.Stats()
	if len(stats) != 1 {
		t.Fatalf("len(Stats()) = %d, want 1", len(stats))
	}
	if stats[0].Glyphs != 1 || stats[0].Width != 128 || stats[0].Height != 32 {
		t.Errorf("Stats() = %+v", stats[0])
	}
}
