package services

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"co2gdp-api/internal/worldbank"
)

const economiesKey = "economies"

type cacheEntry struct {
	value   any
	expires time.Time
}

// CachedProvider memoizes provider responses for a fixed TTL. Concurrent
// misses for the same key share one upstream call. Cached tables and
// economy slices are shared between callers and must not be mutated.
type CachedProvider struct {
	next   Provider
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

func NewCachedProvider(next Provider, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProvider{
		next:    next,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedProvider) Economies(ctx context.Context) ([]worldbank.Economy, error) {
	v, err := c.load(ctx, economiesKey, func(ctx context.Context) (any, error) {
		return c.next.Economies(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]worldbank.Economy), nil
}

func (c *CachedProvider) Indicator(ctx context.Context, q worldbank.Query) (*worldbank.Table, error) {
	v, err := c.load(ctx, queryKey(q), func(ctx context.Context) (any, error) {
		return c.next.Indicator(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return v.(*worldbank.Table), nil
}

// Len reports the number of live entries.
func (c *CachedProvider) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Run evicts expired entries until ctx is cancelled.
func (c *CachedProvider) Run(ctx context.Context) {
	ticker := time.NewTicker(max(c.ttl/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.evictExpired(); n > 0 {
				c.logger.Debug("evicted cached upstream responses", "count", n)
			}
		}
	}
}

func (c *CachedProvider) evictExpired() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *CachedProvider) lookup(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		return nil, false
	}
	return e.value, true
}

func (c *CachedProvider) load(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	// The shared call must not die with whichever caller happened to start it.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		v, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{value: v, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func queryKey(q worldbank.Query) string {
	known := "-"
	if q.Countries != nil {
		known = strings.Join(slices.Sorted(maps.Keys(q.Countries)), ";")
	}
	return fmt.Sprintf("indicator|%s|%s|%d|%d|%t|%t|%s",
		q.Code, strings.Join(q.Economies, ";"), q.Start, q.End, q.SkipAggregates, q.SkipBlanks, known)
}
