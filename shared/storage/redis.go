// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package storage

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// DialRedis connects to Redis from a redis:// URL and verifies the
// connection with a short ping.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, NewStoreError("redis", "dial", "invalid redis url", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, NewStoreError("redis", "dial", "ping failed", err)
	}
	return client, nil
}
