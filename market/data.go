// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package market

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
)

// PairQuote is the quoted state of one currency pair.
type PairQuote struct {
	Spot       float64 `json:"spot"`
	Volatility float64 `json:"volatility"`
}

// Snapshot is a point-in-time view of every quoted pair.
type Snapshot struct {
	Pairs map[string]PairQuote `json:"pairs"`
	AsOf  time.Time            `json:"as_of"`
}

// baseline spot rates and annualized volatilities for the demo book.
func baselineQuotes() map[contracts.CurrencyPair]PairQuote {
	return map[contracts.CurrencyPair]PairQuote{
		contracts.EURUSD: {Spot: 1.0850, Volatility: 0.08},
		contracts.GBPUSD: {Spot: 1.2650, Volatility: 0.09},
		contracts.USDJPY: {Spot: 148.50, Volatility: 0.10},
		contracts.AUDUSD: {Spot: 0.6580, Volatility: 0.11},
		contracts.USDCAD: {Spot: 1.3920, Volatility: 0.07},
		contracts.USDCHF: {Spot: 0.8850, Volatility: 0.08},
	}
}

// snapshotHistory is the number of snapshots retained for delta checks.
const snapshotHistory = 24

// Store holds simulated market data. Reads add a small amount of noise to
// mimic a live feed; shocks applied through SimulateShock persist until
// Reset.
type Store struct {
	mu       sync.RWMutex
	quotes   map[contracts.CurrencyPair]PairQuote
	history  []Snapshot
	rng      *rand.Rand
	now      func() time.Time
}

// NewStore creates a market data store at baseline.
func NewStore() *Store {
	return &Store{
		quotes: baselineQuotes(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewStoreWithSeed creates a store with a deterministic noise source.
func NewStoreWithSeed(seed int64) *Store {
	s := NewStore()
	s.rng = rand.New(rand.NewSource(seed))
	return s
}

// noise returns a multiplicative factor in [0.999, 1.001].
func (s *Store) noise() float64 {
	return 1 + (s.rng.Float64()*2-1)*0.001
}

// Spot returns the current spot rate for a pair with feed noise applied.
func (s *Store) Spot(pair contracts.CurrencyPair) (float64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[pair]
	if !ok {
		return 0, time.Time{}, fmt.Errorf("currency pair %s not supported", pair)
	}
	return round6(q.Spot * s.noise()), s.now(), nil
}

// Volatility returns the annualized volatility for a pair.
func (s *Store) Volatility(pair contracts.CurrencyPair) (float64, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[pair]
	if !ok {
		return 0, time.Time{}, fmt.Errorf("currency pair %s not supported", pair)
	}
	return q.Volatility, s.now(), nil
}

// TakeSnapshot captures the current state of every pair, records it in
// the history ring, and returns it.
func (s *Store) TakeSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Pairs: make(map[string]PairQuote, len(s.quotes)), AsOf: s.now()}
	for pair, q := range s.quotes {
		snap.Pairs[string(pair)] = PairQuote{Spot: round6(q.Spot * s.noise()), Volatility: q.Volatility}
	}

	s.history = append(s.history, snap)
	if len(s.history) > snapshotHistory {
		s.history = s.history[len(s.history)-snapshotHistory:]
	}
	return snap
}

// History returns the retained snapshots, oldest first.
func (s *Store) History() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, len(s.history))
	copy(out, s.history)
	return out
}

// ShockResult reports an applied spot shock.
type ShockResult struct {
	CurrencyPair  string    `json:"currency_pair"`
	OriginalSpot  float64   `json:"original_spot"`
	ShockedSpot   float64   `json:"shocked_spot"`
	ShockPct      float64   `json:"shock_pct"`
	ShockAbsolute float64   `json:"shock_absolute"`
	AsOf          time.Time `json:"as_of"`
}

// SimulateShock applies a percentage shock to a pair's spot rate. The
// shocked rate persists until Reset.
func (s *Store) SimulateShock(pair contracts.CurrencyPair, shockPct float64) (*ShockResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[pair]
	if !ok {
		return nil, fmt.Errorf("currency pair %s not supported", pair)
	}

	original := q.Spot
	shocked := original * (1 + shockPct/100)
	q.Spot = shocked
	s.quotes[pair] = q

	return &ShockResult{
		CurrencyPair:  string(pair),
		OriginalSpot:  round6(original),
		ShockedSpot:   round6(shocked),
		ShockPct:      shockPct,
		ShockAbsolute: round6(shocked - original),
		AsOf:          s.now(),
	}, nil
}

// Reset restores every pair to its baseline quote. The snapshot history
// is kept so shock detection can still see the move.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes = baselineQuotes()
}

func round6(v float64) float64 {
	return float64(int64(v*1e6+sign(v)*0.5)) / 1e6
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
