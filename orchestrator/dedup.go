// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
)

// AlertDeduper limits agent invocations to one per contract, metric,
// and day so a flapping metric cannot storm the agent.
type AlertDeduper interface {
	// FirstToday reports whether this is the first alert for the key
	// today, claiming it if so.
	FirstToday(ctx context.Context, contractID, metric string) (bool, error)
}

func dedupKey(contractID, metric string) string {
	return fmt.Sprintf("risk:alert:%s:%s:%s", contractID, metric, contracts.Today())
}

// RedisDeduper shares alert claims across orchestrator replicas.
type RedisDeduper struct {
	client *redis.Client
}

// NewRedisDeduper wraps a Redis client.
func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) FirstToday(ctx context.Context, contractID, metric string) (bool, error) {
	return d.client.SetNX(ctx, dedupKey(contractID, metric), "1", 48*time.Hour).Result()
}

// MemoryDeduper is an in-process deduper for tests and local mode.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryDeduper creates an empty deduper.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]struct{})}
}

func (d *MemoryDeduper) FirstToday(ctx context.Context, contractID, metric string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := dedupKey(contractID, metric)
	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = struct{}{}
	return true, nil
}
