package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"docqa/internal/domain"
)

func TestKeyNormalizesQuestion(t *testing.T) {
	a := Key("What  is   RAG?", []string{"d1:0"}, "gpt-4o-mini")
	b := Key("what is rag?", []string{"d1:0"}, "gpt-4o-mini")
	if a != b {
		t.Error("case and whitespace differences should produce the same key")
	}
}

func TestKeyIgnoresChunkOrder(t *testing.T) {
	a := Key("q", []string{"d1:0", "d2:1"}, "m")
	b := Key("q", []string{"d2:1", "d1:0"}, "m")
	if a != b {
		t.Error("chunk id order should not affect the key")
	}
}

func TestKeyVariesWithContextAndGenerator(t *testing.T) {
	base := Key("q", []string{"d1:0"}, "m")
	if Key("q", []string{"d1:1"}, "m") == base {
		t.Error("different context must produce a different key")
	}
	if Key("q", []string{"d1:0"}, "other") == base {
		t.Error("different generator must produce a different key")
	}
}

func TestCachePutGet(t *testing.T) {
	c := NewAnswerCache(10, time.Minute)
	key := Key("q", []string{"d1:0"}, "m")

	if _, hit := c.Get(key); hit {
		t.Fatal("unexpected hit on empty cache")
	}

	record := domain.AnswerRecord{Question: "q", Answer: "a", Citations: []string{"d1:0"}}
	c.Put(key, record, []string{"d1"})

	got, hit := c.Get(key)
	if !hit {
		t.Fatal("expected cache hit")
	}
	if got.Answer != "a" {
		t.Errorf("expected answer 'a', got %q", got.Answer)
	}
}

func TestCacheInvalidateDoc(t *testing.T) {
	c := NewAnswerCache(10, time.Minute)

	k1 := Key("q1", []string{"d1:0"}, "m")
	k2 := Key("q2", []string{"d2:0"}, "m")
	c.Put(k1, domain.AnswerRecord{Answer: "a1"}, []string{"d1"})
	c.Put(k2, domain.AnswerRecord{Answer: "a2"}, []string{"d2"})

	c.InvalidateDoc("d1")

	if _, hit := c.Get(k1); hit {
		t.Error("entry citing d1 should have been invalidated")
	}
	if _, hit := c.Get(k2); !hit {
		t.Error("entry citing d2 should have survived")
	}
}

func TestCacheChurnLeavesNoGhostOrderKeys(t *testing.T) {
	c := NewAnswerCache(8, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := Key(strconv.Itoa(i%8), []string{"d:0"}, "m")
				c.Put(key, domain.AnswerRecord{}, []string{"d"})
				c.Get(key)
				c.InvalidateDoc("d")
			}
		}()
	}
	wg.Wait()

	// Every key in the eviction order must still have an entry;
	// otherwise eviction passes silently do nothing.
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.order {
		if _, ok := c.entries[k]; !ok {
			t.Fatalf("order holds key %q with no entry", k)
		}
	}
	if len(c.order) != len(c.entries) {
		t.Fatalf("order has %d keys, entries has %d", len(c.order), len(c.entries))
	}
}

func TestCacheEviction(t *testing.T) {
	c := NewAnswerCache(2, time.Minute)

	c.Put("k1", domain.AnswerRecord{}, nil)
	c.Put("k2", domain.AnswerRecord{}, nil)
	c.Put("k3", domain.AnswerRecord{}, nil)

	if c.Size() != 2 {
		t.Errorf("expected size 2 after eviction, got %d", c.Size())
	}
	if _, hit := c.Get("k1"); hit {
		t.Error("oldest entry should have been evicted")
	}
}
