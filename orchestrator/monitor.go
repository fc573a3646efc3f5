// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/logger"
)

// MarketSnapshot is the market server's snapshot payload.
type MarketSnapshot struct {
	Pairs map[string]PairQuote `json:"pairs"`
	AsOf  time.Time            `json:"as_of"`
}

// PairQuote is one pair's quoted state in a snapshot.
type PairQuote struct {
	Spot       float64 `json:"spot"`
	Volatility float64 `json:"volatility"`
}

// SnapshotSource fetches the current market snapshot.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*MarketSnapshot, error)
}

// HTTPSnapshotSource polls the mcp-market server.
type HTTPSnapshotSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSnapshotSource points at the market tool server.
func NewHTTPSnapshotSource(baseURL string) *HTTPSnapshotSource {
	return &HTTPSnapshotSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSnapshotSource) Snapshot(ctx context.Context) (*MarketSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/market_snapshot", nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("snapshot request failed: %s", env.Error)
	}
	var snap MarketSnapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot payload: %w", err)
	}
	return &snap, nil
}

// Shock is one detected market anomaly.
type Shock struct {
	CurrencyPair string  `json:"currency_pair"`
	Type         string  `json:"type"`
	MovePct      float64 `json:"move_pct,omitempty"`
	Volatility   float64 `json:"volatility,omitempty"`
}

// MarketMonitor polls the market snapshot and escalates shocks: a spot
// move against the previous snapshot beyond the threshold, or a
// volatility level above the spike limit.
type MarketMonitor struct {
	source SnapshotSource
	agent  AgentInvoker
	log    *logger.Logger

	shockThresholdPct float64
	volSpikeLimit     float64
	interval          time.Duration

	previous *MarketSnapshot
}

// MonitorOptions configures a MarketMonitor.
type MonitorOptions struct {
	// ShockThresholdPct is the spot move, in percent, that counts as a
	// shock.
	ShockThresholdPct float64
	// VolSpikeLimit is the absolute volatility level that counts as a
	// spike.
	VolSpikeLimit float64
	// Interval is the polling period.
	Interval time.Duration
	Logger   *logger.Logger
}

// NewMarketMonitor builds a monitor over a snapshot source.
func NewMarketMonitor(source SnapshotSource, agent AgentInvoker, opts MonitorOptions) *MarketMonitor {
	if opts.ShockThresholdPct <= 0 {
		opts.ShockThresholdPct = 2.0
	}
	if opts.VolSpikeLimit <= 0 {
		opts.VolSpikeLimit = 0.15
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logger.New("orchestrator")
	}
	return &MarketMonitor{
		source:            source,
		agent:             agent,
		log:               opts.Logger,
		shockThresholdPct: opts.ShockThresholdPct,
		volSpikeLimit:     opts.VolSpikeLimit,
		interval:          opts.Interval,
	}
}

// Run polls until ctx is cancelled. Poll failures are logged and the
// next tick tries again.
func (m *MarketMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Poll(ctx); err != nil {
				m.log.ErrorWithErr("", "", "market poll failed", err, nil)
			}
		}
	}
}

// Poll fetches a snapshot, compares it against the previous one, and
// escalates any shocks found.
func (m *MarketMonitor) Poll(ctx context.Context) error {
	snap, err := m.source.Snapshot(ctx)
	if err != nil {
		return err
	}

	shocks := m.detect(snap)
	m.previous = snap

	if len(shocks) == 0 {
		return nil
	}
	m.log.Warn("", "", "market shock detected", map[string]interface{}{
		"shocks": len(shocks),
	})

	if m.agent == nil {
		return nil
	}
	err = m.agent.Invoke(ctx, TaskMarketShock, map[string]interface{}{
		"shocks":          shocks,
		"market_snapshot": snap,
	})
	if err != nil {
		m.log.ErrorWithErr("", "", "agent invocation failed", err, nil)
	}
	return nil
}

// detect compares the snapshot to the previous poll. The first poll has
// no baseline, so only volatility spikes can fire.
func (m *MarketMonitor) detect(snap *MarketSnapshot) []Shock {
	var shocks []Shock
	for pair, quote := range snap.Pairs {
		if quote.Volatility > m.volSpikeLimit {
			shocks = append(shocks, Shock{
				CurrencyPair: pair,
				Type:         "volatility_spike",
				Volatility:   quote.Volatility,
			})
		}
		if m.previous == nil {
			continue
		}
		prev, ok := m.previous.Pairs[pair]
		if !ok || prev.Spot == 0 {
			continue
		}
		movePct := (quote.Spot - prev.Spot) / prev.Spot * 100
		if math.Abs(movePct) >= m.shockThresholdPct {
			shocks = append(shocks, Shock{
				CurrencyPair: pair,
				Type:         "spot_move",
				MovePct:      movePct,
			})
		}
	}
	return shocks
}
