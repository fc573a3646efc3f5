// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// pendingMarker is the value a claimed-but-unfinished key holds.
const pendingMarker = "__pending__"

// idempotencyTTL keeps keys long enough to cover the daily submission
// window plus a margin.
const idempotencyTTL = 48 * time.Hour

// IdempotencyGuard suppresses duplicate processing of resubmitted jobs.
type IdempotencyGuard interface {
	// Claim marks the key in flight. When the key has already completed,
	// claimed is false and prior holds the stored result; when another
	// worker holds the claim, both are zero.
	Claim(ctx context.Context, key string) (claimed bool, prior []byte, err error)
	// Complete stores the result against the key.
	Complete(ctx context.Context, key string, result []byte) error
	// Release frees a claim after a failure so a retry can reclaim it.
	Release(ctx context.Context, key string) error
}

// RedisGuard is the production guard: SETNX claims shared across worker
// replicas.
type RedisGuard struct {
	client *redis.Client
}

// NewRedisGuard wraps a Redis client.
func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

func guardKey(key string) string {
	return "risk:idem:" + key
}

func (g *RedisGuard) Claim(ctx context.Context, key string) (bool, []byte, error) {
	set, err := g.client.SetNX(ctx, guardKey(key), pendingMarker, idempotencyTTL).Result()
	if err != nil {
		return false, nil, err
	}
	if set {
		return true, nil, nil
	}
	val, err := g.client.Get(ctx, guardKey(key)).Bytes()
	if err == redis.Nil {
		// Key expired between SETNX and GET; treat as claimed by nobody.
		return g.Claim(ctx, key)
	}
	if err != nil {
		return false, nil, err
	}
	if string(val) == pendingMarker {
		return false, nil, nil
	}
	return false, val, nil
}

func (g *RedisGuard) Complete(ctx context.Context, key string, result []byte) error {
	return g.client.Set(ctx, guardKey(key), result, idempotencyTTL).Err()
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, guardKey(key)).Err()
}

// MemoryGuard is an in-process guard for tests and local mode.
type MemoryGuard struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewMemoryGuard creates an empty in-memory guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{entries: make(map[string][]byte)}
}

func (g *MemoryGuard) Claim(ctx context.Context, key string) (bool, []byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	val, exists := g.entries[key]
	if !exists {
		g.entries[key] = []byte(pendingMarker)
		return true, nil, nil
	}
	if string(val) == pendingMarker {
		return false, nil, nil
	}
	return false, val, nil
}

func (g *MemoryGuard) Complete(ctx context.Context, key string, result []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[key] = result
	return nil
}

func (g *MemoryGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
	return nil
}
