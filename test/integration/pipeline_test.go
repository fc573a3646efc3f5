// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package integration exercises the full risk pipeline in-process: tool
// servers over httptest, the in-memory broker, a worker pool, and the
// orchestrator's breach detector.
package integration

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/broker"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/market"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/orchestrator"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/registry"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/risk"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/toolserver"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/worker"
)

type captureAgent struct {
	mu    sync.Mutex
	tasks []string
}

func (a *captureAgent) Invoke(ctx context.Context, task string, eventContext map[string]interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tasks = append(a.tasks, task)
	return nil
}

func (a *captureAgent) invoked() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.tasks...)
}

func startToolServer(t *testing.T, name string, reg *toolserver.Registry) *httptest.Server {
	t.Helper()
	srv := toolserver.NewServer(toolserver.Options{Name: name}, reg)
	srv.SetReady(true)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// TestPipelineJobToBreachMemo drives a job from submission through the
// worker to the breach detector and verifies the memo lands back on the
// contract.
func TestPipelineJobToBreachMemo(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := registry.NewSeededStore()
	contractsSrv := startToolServer(t, "mcp-contracts", registry.BuildRegistry(store))
	marketSrv := startToolServer(t, "mcp-market", market.BuildRegistry(market.NewStoreWithSeed(7)))

	bus := broker.NewMemoryBroker()
	require.NoError(t, bus.DeclareTopology(ctx))

	jobs := risk.NewMemoryJobStore()
	svc := risk.NewService(jobs, bus, nil)
	go func() { _ = svc.ConsumeResults(ctx, bus) }()

	engine := worker.NewEngine(
		worker.NewHTTPContractSource(contractsSrv.URL),
		worker.NewHTTPMarketSource(marketSrv.URL),
	)
	w := worker.New(bus, engine, worker.Options{
		Guard:          worker.NewMemoryGuard(),
		RetryBaseDelay: time.Millisecond,
		Registry:       prometheus.NewRegistry(),
	})
	go func() { _ = w.Run(ctx) }()

	agent := &captureAgent{}
	detector := orchestrator.NewBreachDetector(
		// Low thresholds so the sample book breaches immediately.
		orchestrator.Thresholds{FXVaR: 1000, IRDv01: 1000},
		agent,
		orchestrator.NewHTTPMemoWriter(contractsSrv.URL),
		orchestrator.NewMemoryDeduper(),
		nil,
	)
	go func() { _ = detector.Run(ctx, bus) }()

	rec, err := svc.Submit(ctx, contracts.JobTypeFXVaR, "ctr-fx-001", map[string]interface{}{
		"horizon_days": 1,
		"confidence":   0.99,
		"sims":         20000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec.JobID)

	require.Eventually(t, func() bool {
		got, err := jobs.Get(ctx, rec.JobID)
		return err == nil && got.Status == contracts.JobStatusSucceeded
	}, 10*time.Second, 20*time.Millisecond, "job never completed")

	got, err := jobs.Get(ctx, rec.JobID)
	require.NoError(t, err)
	varValue, ok := got.Result["var"].(float64)
	require.True(t, ok, "result missing var: %v", got.Result)
	assert.Greater(t, varValue, 0.0)

	require.Eventually(t, func() bool {
		memos, err := store.Memos(ctx, "ctr-fx-001")
		return err == nil && len(memos) > 0
	}, 10*time.Second, 20*time.Millisecond, "breach memo never written")

	memos, err := store.Memos(ctx, "ctr-fx-001")
	require.NoError(t, err)
	assert.True(t, memos[0].BreachAlert)

	assert.Contains(t, agent.invoked(), orchestrator.TaskThresholdBreach)

	stamped, err := store.Get(ctx, "ctr-fx-001")
	require.NoError(t, err)
	assert.NotNil(t, stamped.LastRiskMemoDate)
}

// TestPipelineDV01Job covers the swap path end to end without the
// orchestrator in the loop.
func TestPipelineDV01Job(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := registry.NewSeededStore()
	contractsSrv := startToolServer(t, "mcp-contracts", registry.BuildRegistry(store))
	marketSrv := startToolServer(t, "mcp-market", market.BuildRegistry(market.NewStoreWithSeed(7)))

	bus := broker.NewMemoryBroker()
	require.NoError(t, bus.DeclareTopology(ctx))

	jobs := risk.NewMemoryJobStore()
	svc := risk.NewService(jobs, bus, nil)
	go func() { _ = svc.ConsumeResults(ctx, bus) }()

	engine := worker.NewEngine(
		worker.NewHTTPContractSource(contractsSrv.URL),
		worker.NewHTTPMarketSource(marketSrv.URL),
	)
	w := worker.New(bus, engine, worker.Options{
		Guard:          worker.NewMemoryGuard(),
		RetryBaseDelay: time.Millisecond,
		Registry:       prometheus.NewRegistry(),
	})
	go func() { _ = w.Run(ctx) }()

	rec, err := svc.Submit(ctx, contracts.JobTypeIRDv01, "ctr-irs-001", map[string]interface{}{
		"shift_bps": 1.0,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := jobs.Get(ctx, rec.JobID)
		return err == nil && got.Status == contracts.JobStatusSucceeded
	}, 10*time.Second, 20*time.Millisecond, "job never completed")

	got, err := jobs.Get(ctx, rec.JobID)
	require.NoError(t, err)
	// 5M notional, 5y duration, 1bp shift.
	assert.InDelta(t, 2500.0, got.Result["dv01"], 0.01)
}
