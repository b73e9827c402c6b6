// Package readthrough serves values from a cache, loading and storing them on miss.
package readthrough

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/lucaslnrr/v0-response-monitor/pkg/cache"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultSetTimeout   = 5 * time.Second
	defaultTTL          = 5 * time.Second
	maxRefreshDelay     = time.Second
)

// Group coordinates cache lookups for one cache. Concurrent loads of the same key
// share a single fetch.
type Group struct {
	cache  Cacher
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group

	// refreshDelay spreads background refreshes of hot keys.
	refreshDelay func() time.Duration
	wg           sync.WaitGroup
}

// NewGroup builds a Group. A nil cache disables caching: every call fetches.
func NewGroup(c Cacher, ttl time.Duration, logger *zap.Logger) *Group {
	if c == nil {
		c = Nop{}
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Group{
		cache:  c,
		ttl:    ttl,
		logger: logger.Named("readthrough"),
		refreshDelay: func() time.Duration {
			return time.Duration(rand.Int63n(int64(maxRefreshDelay)))
		},
	}
}

// TTL is the nominal expiration applied to stored values.
func (g *Group) TTL() time.Duration { return g.ttl }

// Wait blocks until background refreshes and stores have finished.
func (g *Group) Wait() { g.wg.Wait() }

// addTTLJitter moves ttl by up to ±10% so keys written together expire apart.
func addTTLJitter(ttl time.Duration) time.Duration {
	spread := int64(ttl / 10)
	if spread <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(2*spread+1)-spread)
}

func (g *Group) store(key string, value any, reason string) {
	setCtx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
	defer cancel()

	ttl := addTTLJitter(g.ttl)
	if err := g.cache.Set(setCtx, key, value, ttl); err != nil {
		g.logger.Warn("failed to update cache",
			zap.String("key", key),
			zap.String("reason", reason),
			zap.Error(err))
		return
	}
	g.logger.Debug("cache updated",
		zap.String("key", key),
		zap.String("reason", reason),
		zap.Duration("ttl", ttl))
}

func triggerBackgroundRefresh[T any](g *Group, key string, fn FetchFunc[T]) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		time.Sleep(g.refreshDelay())

		_, _, _ = g.sf.Do(key+":refresh", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
			defer cancel()

			value, err := fn(ctx)
			if err != nil {
				g.logger.Warn("background refresh failed",
					zap.String("key", key),
					zap.Error(err))
				return nil, err
			}
			g.store(key, value, "refresh")
			return value, nil
		})
	}()
}

func fetchAndStore[T any](ctx context.Context, g *Group, key string, fn FetchFunc[T]) (T, error) {
	var zero T

	value, err := fn(ctx)
	if err != nil {
		g.logger.Debug("fetch failed", zap.String("key", key), zap.Error(err))
		return zero, err
	}

	g.wg.Add(1)
	go func(v T) {
		defer g.wg.Done()
		g.store(key, v, "miss")
	}(value)

	return value, nil
}

// FindAndCache implements read-through caching with singleflight and refresh-ahead
// logic. Errors are never cached.
func FindAndCache[T any](ctx context.Context, g *Group, key string, fn FetchFunc[T]) (T, error) {
	var zero T

	var cached T
	err := g.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		g.logger.Debug("cache hit", zap.String("key", key))
		triggerBackgroundRefresh(g, key, fn)
		return cached, nil
	case errors.Is(err, cache.ErrMiss):
		g.logger.Debug("cache miss", zap.String("key", key))
	default:
		g.logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, shared := g.sf.Do(key, func() (any, error) {
		return fetchAndStore(ctx, g, key, fn)
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		g.logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}
	if shared {
		g.logger.Debug("singleflight shared result", zap.String("key", key))
	}
	return value, nil
}

// Nop is a Cacher that stores nothing.
type Nop struct{}

func (Nop) Get(context.Context, string, any) error                { return cache.ErrMiss }
func (Nop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Nop) Close() error                                          { return nil }
