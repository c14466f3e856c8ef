package fragcache

import (
	"fmt"
	"sync"
	"testing"
)

func TestBasicOperations(t *testing.T) {
	c := New[int](3)

	c.Put(KeyOf([]byte("a")), 1)
	c.Put(KeyOf([]byte("b")), 2)
	c.Put(KeyOf([]byte("c")), 3)

	if v, ok := c.Get(KeyOf([]byte("a"))); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if _, ok := c.Get(KeyOf([]byte("missing"))); ok {
		t.Error("Get(missing) should return false")
	}
}

func TestKeyStability(t *testing.T) {
	a := KeyOf([]byte("fragment body"))
	b := KeyOf([]byte("fragment body"))
	if a != b {
		t.Errorf("same bytes hashed to different keys: %s vs %s", a, b)
	}
	if a == KeyOf([]byte("fragment body.")) {
		t.Error("different bytes hashed to the same key")
	}
}

func TestEviction(t *testing.T) {
	c := New[int](2)

	c.Put(KeyOf([]byte("a")), 1)
	c.Put(KeyOf([]byte("b")), 2)
	c.Get(KeyOf([]byte("a"))) // refresh a; b becomes oldest
	c.Put(KeyOf([]byte("c")), 3)

	if _, ok := c.Get(KeyOf([]byte("b"))); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := c.Get(KeyOf([]byte("a"))); !ok {
		t.Error("recently used entry was evicted")
	}

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
}

func TestUnlimited(t *testing.T) {
	c := New[int](0)
	for i := 0; i < 500; i++ {
		c.Put(KeyOf([]byte(fmt.Sprintf("k%d", i))), i)
	}
	if c.Len() != 500 {
		t.Errorf("Len = %d, want 500", c.Len())
	}
	if c.Stats().Evictions != 0 {
		t.Error("unlimited cache must not evict")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int](100)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := KeyOf([]byte(fmt.Sprintf("%d-%d", g, i%20)))
				c.Put(k, i)
				c.Get(k)
			}
		}(g)
	}
	wg.Wait()
}
