package fetch

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestCachingFetcherDeduplicates(t *testing.T) {
	var calls int32
	inner := FetcherFunc[string, int](func(ctx context.Context, key string) (int, error) {
		atomic.AddInt32(&calls, 1)
		return len(key), nil
	})
	cf := NewCachingFetcher[string, int](inner)

	v1, err := cf.Fetch(context.Background(), "hello")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	v2, err := cf.Fetch(context.Background(), "hello")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if v1 != v2 || v1 != 5 {
		t.Fatalf("got %d, %d, want 5, 5", v1, v2)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("underlying fetch called %d times, want 1", calls)
	}
}

func TestCachingFetcherDistinctKeys(t *testing.T) {
	inner := FetcherFunc[string, int](func(ctx context.Context, key string) (int, error) {
		return len(key), nil
	})
	cf := NewCachingFetcher[string, int](inner)

	a, _ := cf.Fetch(context.Background(), "a")
	bb, _ := cf.Fetch(context.Background(), "bb")
	if a != 1 || bb != 2 {
		t.Fatalf("got %d, %d, want 1, 2", a, bb)
	}
}
