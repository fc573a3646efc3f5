// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package toolserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter enforces a per-client sliding one-minute window. With a
// Redis client the window is shared across replicas; without one each
// replica falls back to a local in-memory window. Redis errors fail
// open so a cache outage never takes the tool servers down.
type RateLimiter struct {
	limitPerMinute int
	client         *redis.Client

	mu    sync.Mutex
	local map[string][]time.Time
}

// NewRateLimiter builds a limiter. client may be nil for local mode.
func NewRateLimiter(limitPerMinute int, client *redis.Client) *RateLimiter {
	return &RateLimiter{
		limitPerMinute: limitPerMinute,
		client:         client,
		local:          make(map[string][]time.Time),
	}
}

// Allow records a request for the client and returns an error when the
// window is exhausted.
func (rl *RateLimiter) Allow(ctx context.Context, clientID string) error {
	if rl.limitPerMinute <= 0 {
		return nil
	}
	if rl.client == nil {
		return rl.allowLocal(clientID)
	}

	now := time.Now()
	key := fmt.Sprintf("ratelimit:%s", clientID)

	pipe := rl.client.Pipeline()
	minScore := now.Add(-time.Minute).UnixNano()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", minScore))
	card := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, key, 2*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open on cache errors.
		return nil
	}

	if card.Val() >= int64(rl.limitPerMinute) {
		return fmt.Errorf("rate limit exceeded: %d requests/minute", rl.limitPerMinute)
	}
	return nil
}

func (rl *RateLimiter) allowLocal(clientID string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-time.Minute)
	kept := rl.local[clientID][:0]
	for _, ts := range rl.local[clientID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= rl.limitPerMinute {
		rl.local[clientID] = kept
		return fmt.Errorf("rate limit exceeded: %d requests/minute", rl.limitPerMinute)
	}
	rl.local[clientID] = append(kept, now)
	return nil
}
