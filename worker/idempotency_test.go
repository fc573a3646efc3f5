// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisGuard(t *testing.T) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisGuard(client), mr
}

func TestRedisGuardClaim(t *testing.T) {
	guard, _ := newRedisGuard(t)
	ctx := context.Background()

	claimed, prior, err := guard.Claim(ctx, "ctr-fx-001|fx_var|2026-03-02")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Nil(t, prior)

	claimed, prior, err = guard.Claim(ctx, "ctr-fx-001|fx_var|2026-03-02")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Nil(t, prior)
}

func TestRedisGuardCompleteAndReplay(t *testing.T) {
	guard, _ := newRedisGuard(t)
	ctx := context.Background()

	_, _, err := guard.Claim(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, guard.Complete(ctx, "k", []byte(`{"job_id":"job-1"}`)))

	claimed, prior, err := guard.Claim(ctx, "k")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.JSONEq(t, `{"job_id":"job-1"}`, string(prior))
}

func TestRedisGuardRelease(t *testing.T) {
	guard, _ := newRedisGuard(t)
	ctx := context.Background()

	_, _, err := guard.Claim(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, guard.Release(ctx, "k"))

	claimed, _, err := guard.Claim(ctx, "k")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestRedisGuardKeyExpiry(t *testing.T) {
	guard, mr := newRedisGuard(t)
	ctx := context.Background()

	_, _, err := guard.Claim(ctx, "k")
	require.NoError(t, err)

	mr.FastForward(idempotencyTTL * 2)

	claimed, _, err := guard.Claim(ctx, "k")
	require.NoError(t, err)
	assert.True(t, claimed)
}
