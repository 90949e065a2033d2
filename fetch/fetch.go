// Package fetch provides the generic-typed capability abstraction the
// engine uses to resolve remote definitions (functions, profiles,
// ensembles, cached votes, retry tokens) by content-addressed id or key,
// per spec.md §4.4/§9 "Concurrent definition fetches" and §6 "Fetcher
// capabilities".
//
// Grounded on the teacher's loader package (loader/load.go's
// read-then-validate-then-compile pipeline shape, generalized from
// file-backed loading to an arbitrary key/value capability), promoted with
// golang.org/x/sync/singleflight for in-flight request coalescing instead
// of the teacher's single-caller file read.
package fetch

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Fetcher resolves a value of type V for a key of type K, typically by a
// network or storage round trip. Implementations must be safe for
// concurrent use.
type Fetcher[K comparable, V any] interface {
	Fetch(ctx context.Context, key K) (V, error)
}

// FetcherFunc adapts a plain function to a Fetcher.
type FetcherFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

func (f FetcherFunc[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	return f(ctx, key)
}

// CachingFetcher wraps a Fetcher, deduplicating concurrent Fetch calls for
// the same key via singleflight and caching resolved values for the
// lifetime of the CachingFetcher. Used where the engine must not issue two
// upstream round trips for the same ensemble/function/profile id within a
// single request's dependency resolution (spec.md §9 "Concurrent
// definition fetches").
type CachingFetcher[K comparable, V any] struct {
	underlying Fetcher[K, V]
	group      singleflight.Group

	mu    chan struct{} // binary semaphore guarding cache
	cache map[K]V
}

// NewCachingFetcher wraps underlying with request coalescing and a
// process-lifetime value cache.
func NewCachingFetcher[K comparable, V any](underlying Fetcher[K, V]) *CachingFetcher[K, V] {
	c := &CachingFetcher[K, V]{
		underlying: underlying,
		mu:         make(chan struct{}, 1),
		cache:      make(map[K]V),
	}
	c.mu <- struct{}{}
	return c
}

func (c *CachingFetcher[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	c.lock()
	if v, ok := c.cache[key]; ok {
		c.unlock()
		return v, nil
	}
	c.unlock()

	// singleflight.Group is keyed by string; fmt-free stringification is
	// avoided by using %v only at the boundary where K must become a map
	// key for the group.
	groupKey := keyString(key)
	v, err, _ := c.group.Do(groupKey, func() (any, error) {
		return c.underlying.Fetch(ctx, key)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	result := v.(V)

	c.lock()
	c.cache[key] = result
	c.unlock()

	return result, nil
}

func (c *CachingFetcher[K, V]) lock()   { <-c.mu }
func (c *CachingFetcher[K, V]) unlock() { c.mu <- struct{}{} }

func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", k)
}
