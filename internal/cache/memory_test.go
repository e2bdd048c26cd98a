package cache

import (
	"context"
	"testing"
	"time"

	"nftvault/internal/config"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("unexpected hit")
	}
	_ = s.Set(ctx, "k", []byte("v"), 0)
	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("got=%q ok=%v err=%v", v, ok, err)
	}
	v[0] = 'x'
	again, _, _ := s.Get(ctx, "k")
	if string(again) != "v" {
		t.Fatalf("returned slice aliases stored value")
	}
	_ = s.Delete(ctx, "k")
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestMemoryStore_TTLExpires(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	_ = s.Set(ctx, "k", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("expected expiry")
	}
}

func TestMemoryStore_EvictsOldestWhenBounded(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	_ = s.Set(ctx, "a", []byte("1"), 0)
	_ = s.Set(ctx, "b", []byte("2"), 0)
	_ = s.Set(ctx, "a", []byte("1b"), 0)
	_ = s.Set(ctx, "c", []byte("3"), 0)

	if s.Len() != 2 {
		t.Fatalf("len=%d want 2", s.Len())
	}
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Fatalf("oldest key a should be evicted")
	}
	if _, ok, _ := s.Get(ctx, "c"); !ok {
		t.Fatalf("newest key missing")
	}
}

func TestMemoryStore_DeleteThenSetIsFreshInsert(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	_ = s.Set(ctx, "a", []byte("1"), 0)
	_ = s.Set(ctx, "b", []byte("2"), 0)
	_ = s.Delete(ctx, "a")
	_ = s.Set(ctx, "a", []byte("1b"), 0)
	_ = s.Set(ctx, "c", []byte("3"), 0)

	if _, ok, _ := s.Get(ctx, "b"); ok {
		t.Fatalf("b is the oldest live key and should be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok, _ := s.Get(ctx, k); !ok {
			t.Fatalf("%s missing", k)
		}
	}
	if len(s.order) != s.Len() {
		t.Fatalf("order=%v len=%d", s.order, s.Len())
	}
}

func TestOpen_Backends(t *testing.T) {
	s, err := Open(context.Background(), config.CacheConfig{Backend: "memory"}, 10)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("got %T", s)
	}
	if _, err := Open(context.Background(), config.CacheConfig{Backend: "redis"}, 10); err == nil {
		t.Fatalf("redis without addr should fail")
	}
	if _, err := Open(context.Background(), config.CacheConfig{Backend: "memcached"}, 10); err == nil {
		t.Fatalf("unknown backend should fail")
	}
}
