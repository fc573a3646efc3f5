// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
)

const (
	// defaultVolatility backstops FX VaR when market data is unreachable.
	defaultVolatility = 0.10
	// tradingDaysPerYear scales annualized volatility to the horizon.
	tradingDaysPerYear = 252
	// defaultDuration approximates swap duration in years.
	defaultDuration = 5.0
)

// ContractSource resolves contract details for a job.
type ContractSource interface {
	GetContract(ctx context.Context, contractID string) (*contracts.Contract, error)
}

// MarketSource resolves market data for a job.
type MarketSource interface {
	Spot(ctx context.Context, pair contracts.CurrencyPair) (float64, error)
	Volatility(ctx context.Context, pair contracts.CurrencyPair) (float64, error)
}

// Engine computes risk figures for jobs. The random source seed is fixed
// so reruns of the same job reproduce the same VaR.
type Engine struct {
	contracts ContractSource
	market    MarketSource
	seed      int64

	now func() time.Time
}

// NewEngine builds a compute engine over contract and market sources.
func NewEngine(cs ContractSource, ms MarketSource) *Engine {
	return &Engine{
		contracts: cs,
		market:    ms,
		seed:      42,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Compute runs the calculation a job asks for and returns its payload.
func (e *Engine) Compute(ctx context.Context, job *contracts.RiskJob) (map[string]interface{}, error) {
	contract, err := e.contracts.GetContract(ctx, job.ContractID)
	if err != nil {
		return nil, fmt.Errorf("resolve contract %s: %w", job.ContractID, err)
	}

	switch job.JobType {
	case contracts.JobTypeFXVaR:
		return e.fxVaR(ctx, job, contract)
	case contracts.JobTypeIRDv01:
		return e.irDv01(job, contract), nil
	case contracts.JobTypeStressTest:
		return e.stressTest(ctx, contract)
	default:
		return nil, fmt.Errorf("unknown job type %q", job.JobType)
	}
}

// fxVaR runs a Monte Carlo Value-at-Risk: simulated horizon returns
// applied to the base notional, VaR read off the loss percentile.
func (e *Engine) fxVaR(ctx context.Context, job *contracts.RiskJob, contract *contracts.Contract) (map[string]interface{}, error) {
	if !contract.ContractType.IsFX() {
		return nil, fmt.Errorf("contract %s has no FX exposure", contract.ContractID)
	}

	horizonDays := job.IntParam("horizon_days", 1)
	confidence := job.FloatParam("confidence", 0.99)
	sims := job.IntParam("sims", 20000)
	if confidence <= 0 || confidence >= 1 {
		return nil, fmt.Errorf("confidence %v out of range (0, 1)", confidence)
	}
	if sims < 1 {
		return nil, fmt.Errorf("simulations must be at least 1, got %d", sims)
	}
	if horizonDays < 1 {
		return nil, fmt.Errorf("horizon_days must be at least 1, got %d", horizonDays)
	}

	vol := defaultVolatility
	if v, err := e.market.Volatility(ctx, contract.CurrencyPair); err == nil {
		vol = v
	}
	horizonVol := vol * math.Sqrt(float64(horizonDays)/tradingDaysPerYear)

	rng := rand.New(rand.NewSource(e.seed))
	pnl := make([]float64, sims)
	for i := range pnl {
		pnl[i] = contract.NotionalBase * rng.NormFloat64() * horizonVol
	}

	v := -percentile(pnl, (1-confidence)*100)
	payload := contracts.FXVaRResult{
		VaR:         round2(v),
		Confidence:  confidence,
		HorizonDays: horizonDays,
		Simulations: sims,
		AsOf:        e.now(),
	}
	return map[string]interface{}{
		"var":          payload.VaR,
		"confidence":   payload.Confidence,
		"horizon_days": payload.HorizonDays,
		"simulations":  payload.Simulations,
		"as_of":        payload.AsOf.Format(time.RFC3339Nano),
	}, nil
}

// irDv01 approximates DV01 as notional x duration x shift.
func (e *Engine) irDv01(job *contracts.RiskJob, contract *contracts.Contract) map[string]interface{} {
	shiftBps := job.FloatParam("shift_bps", 1.0)

	notional := contract.Notional
	if notional == 0 {
		notional = contract.NotionalBase
	}
	dv01 := notional * defaultDuration * (shiftBps / 10000)

	currency := contract.Currency
	if currency == "" {
		currency = "USD"
	}
	return map[string]interface{}{
		"dv01":      round2(dv01),
		"shift_bps": shiftBps,
		"currency":  currency,
		"as_of":     e.now().Format(time.RFC3339Nano),
	}
}

// fxShockGrid and irShockGrid are the standard stress scenarios.
var (
	fxShockGrid = []float64{-5, -2, -1, 1, 2, 5}
	irShockGrid = []float64{-100, -50, -25, 25, 50, 100}
)

// stressTest revalues the contract across the shock grid and reports the
// worst case.
func (e *Engine) stressTest(ctx context.Context, contract *contracts.Contract) (map[string]interface{}, error) {
	var scenarios []contracts.StressScenario

	if contract.ContractType.IsFX() {
		spot, err := e.market.Spot(ctx, contract.CurrencyPair)
		if err != nil {
			spot = contract.StrikeRate
		}
		for _, pct := range fxShockGrid {
			pnl := contract.NotionalBase * spot * pct / 100
			scenarios = append(scenarios, contracts.StressScenario{
				Name:     fmt.Sprintf("spot%+.0f%%", pct),
				ShockPct: pct,
				PnL:      round2(pnl),
			})
		}
	} else {
		notional := contract.Notional
		if notional == 0 {
			notional = contract.NotionalBase
		}
		for _, bps := range irShockGrid {
			// A receiver position loses value as rates rise.
			pnl := -notional * defaultDuration * (bps / 10000)
			scenarios = append(scenarios, contracts.StressScenario{
				Name:     fmt.Sprintf("rate%+.0fbp", bps),
				ShockBps: bps,
				PnL:      round2(pnl),
			})
		}
	}

	worst := scenarios[0]
	for _, s := range scenarios[1:] {
		if s.PnL < worst.PnL {
			worst = s
		}
	}

	return map[string]interface{}{
		"scenarios":  scenarios,
		"worst_case": worst,
		"as_of":      e.now().Format(time.RFC3339Nano),
	}, nil
}

// percentile computes the p-th percentile with linear interpolation.
func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
