package ratelimiter

import (
	"fmt"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/util"
)

// RateLimiter is the interface for rate limiting a single caller.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// Factory builds a fresh limiter for a newly seen key.
type Factory func() RateLimiter

// Keyed holds one limiter per key (usually a user id or client IP).
// Idle keys are dropped by the underlying LRU so memory stays bounded.
type Keyed struct {
	factory  Factory
	limiters *util.LRUCache[string, RateLimiter]
}

// NewKeyed creates a Keyed limiter tracking at most maxKeys keys.
func NewKeyed(factory Factory, maxKeys int) (*Keyed, error) {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	cache, err := util.NewWithConfig(util.CacheConfig[string, RateLimiter]{Capacity: maxKeys})
	if err != nil {
		return nil, err
	}
	return &Keyed{factory: factory, limiters: cache}, nil
}

// Allow reports whether a request for key is allowed.
func (k *Keyed) Allow(key string) bool {
	limiter, ok := k.limiters.Get(key)
	if !ok {
		limiter = k.factory()
		k.limiters.Put(key, limiter, 1)
	}
	return limiter.Allow()
}

// Tracked returns the number of keys currently held.
func (k *Keyed) Tracked() int {
	return k.limiters.Len()
}

// NewFactory builds a Factory from the middleware configuration.
func NewFactory(cfg config.RateLimiterConfig) (Factory, error) {
	switch cfg.Algorithm {
	case "", "tokenBucket":
		conf := cfg.TokenBucket
		if conf.Rate <= 0 || conf.Capacity <= 0 {
			return nil, fmt.Errorf("tokenBucket requires positive rate and capacity")
		}
		return func() RateLimiter { return NewTokenBucket(conf.Rate, conf.Capacity) }, nil
	case "fixedWindow":
		conf := cfg.FixedWindow
		window, err := time.ParseDuration(conf.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid fixedWindow duration: %w", err)
		}
		return func() RateLimiter { return NewFixedWindowCounter(conf.Limit, window) }, nil
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm: %s", cfg.Algorithm)
	}
}
