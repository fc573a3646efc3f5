// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
)

func testBook() StaticContractSource {
	return StaticContractSource{
		"ctr-fx-001": {
			ContractID:    "ctr-fx-001",
			ContractType:  contracts.ContractTypeFXForward,
			Counterparty:  "ABC Bank",
			CurrencyPair:  contracts.EURUSD,
			NotionalBase:  1_000_000,
			NotionalQuote: 1_085_000,
			StrikeRate:    1.0850,
			TradeDate:     contracts.NewDate(2026, time.January, 15),
			MaturityDate:  contracts.NewDate(2026, time.July, 15),
		},
		"ctr-irs-001": {
			ContractID:   "ctr-irs-001",
			ContractType: contracts.ContractTypeIRS,
			Counterparty: "DEF Financial",
			Notional:     5_000_000,
			FixedRate:    0.045,
			Currency:     "USD",
			TradeDate:    contracts.NewDate(2025, time.December, 1),
			MaturityDate: contracts.NewDate(2030, time.December, 1),
		},
	}
}

func testMarket() StaticMarketSource {
	return StaticMarketSource{
		Spots: map[contracts.CurrencyPair]float64{contracts.EURUSD: 1.0850},
		Vols:  map[contracts.CurrencyPair]float64{contracts.EURUSD: 0.10},
	}
}

func fxVaRJob(params map[string]interface{}) *contracts.RiskJob {
	return &contracts.RiskJob{
		JobID:          "job-aaaaaaaaaaaa",
		JobType:        contracts.JobTypeFXVaR,
		ContractID:     "ctr-fx-001",
		Params:         params,
		IdempotencyKey: "ctr-fx-001|fx_var|2026-03-02",
	}
}

func TestFXVaRDeterministic(t *testing.T) {
	engine := NewEngine(testBook(), testMarket())
	job := fxVaRJob(map[string]interface{}{
		"horizon_days": 1,
		"confidence":   0.99,
		"sims":         20000,
	})

	first, err := engine.Compute(context.Background(), job)
	require.NoError(t, err)
	second, err := engine.Compute(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, first["var"], second["var"])

	v := first["var"].(float64)
	assert.Greater(t, v, 0.0)
	// 1-day 99% VaR on $1M at 10% annualized vol lands in the low
	// tens of thousands.
	assert.Less(t, v, 50_000.0)
	assert.Greater(t, v, 5_000.0)
}

func TestFXVaRConfidenceMonotonic(t *testing.T) {
	engine := NewEngine(testBook(), testMarket())

	high, err := engine.Compute(context.Background(), fxVaRJob(map[string]interface{}{"confidence": 0.99}))
	require.NoError(t, err)
	low, err := engine.Compute(context.Background(), fxVaRJob(map[string]interface{}{"confidence": 0.95}))
	require.NoError(t, err)

	assert.Greater(t, high["var"].(float64), low["var"].(float64))
}

func TestFXVaRHorizonScaling(t *testing.T) {
	engine := NewEngine(testBook(), testMarket())

	oneDay, err := engine.Compute(context.Background(), fxVaRJob(map[string]interface{}{"horizon_days": 1}))
	require.NoError(t, err)
	tenDay, err := engine.Compute(context.Background(), fxVaRJob(map[string]interface{}{"horizon_days": 10}))
	require.NoError(t, err)

	assert.Greater(t, tenDay["var"].(float64), oneDay["var"].(float64))
}

func TestFXVaRFallsBackToDefaultVol(t *testing.T) {
	// Market source with no data: the default 10% vol applies.
	engine := NewEngine(testBook(), StaticMarketSource{})

	out, err := engine.Compute(context.Background(), fxVaRJob(nil))
	require.NoError(t, err)
	assert.Greater(t, out["var"].(float64), 0.0)
}

func TestFXVaRValidation(t *testing.T) {
	engine := NewEngine(testBook(), testMarket())

	tests := []struct {
		name   string
		params map[string]interface{}
	}{
		{"confidence too high", map[string]interface{}{"confidence": 1.5}},
		{"zero sims", map[string]interface{}{"sims": 0}},
		{"zero horizon", map[string]interface{}{"horizon_days": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Compute(context.Background(), fxVaRJob(tt.params))
			assert.Error(t, err)
		})
	}

	// FX VaR on a rates contract has no meaning.
	job := fxVaRJob(nil)
	job.ContractID = "ctr-irs-001"
	_, err := engine.Compute(context.Background(), job)
	assert.ErrorContains(t, err, "no FX exposure")
}

func TestIRDv01(t *testing.T) {
	engine := NewEngine(testBook(), testMarket())
	job := &contracts.RiskJob{
		JobID:          "job-bbbbbbbbbbbb",
		JobType:        contracts.JobTypeIRDv01,
		ContractID:     "ctr-irs-001",
		Params:         map[string]interface{}{"shift_bps": 1.0},
		IdempotencyKey: "ctr-irs-001|ir_dv01|2026-03-02",
	}

	out, err := engine.Compute(context.Background(), job)
	require.NoError(t, err)

	// 5M x 5y duration x 1bp = 2500.
	assert.Equal(t, 2500.0, out["dv01"])
	assert.Equal(t, "USD", out["currency"])

	job.Params["shift_bps"] = 2.0
	out, err = engine.Compute(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, out["dv01"])
}

func TestStressTestFX(t *testing.T) {
	engine := NewEngine(testBook(), testMarket())
	job := &contracts.RiskJob{
		JobID:          "job-cccccccccccc",
		JobType:        contracts.JobTypeStressTest,
		ContractID:     "ctr-fx-001",
		IdempotencyKey: "ctr-fx-001|stress_test|2026-03-02",
	}

	out, err := engine.Compute(context.Background(), job)
	require.NoError(t, err)

	scenarios := out["scenarios"].([]contracts.StressScenario)
	require.Len(t, scenarios, 6)

	worst := out["worst_case"].(contracts.StressScenario)
	// Worst case is the -5% spot move: 1M x 1.085 x -5%.
	assert.Equal(t, -5.0, worst.ShockPct)
	assert.Equal(t, -54250.0, worst.PnL)
}

func TestStressTestIR(t *testing.T) {
	engine := NewEngine(testBook(), testMarket())
	job := &contracts.RiskJob{
		JobID:          "job-dddddddddddd",
		JobType:        contracts.JobTypeStressTest,
		ContractID:     "ctr-irs-001",
		IdempotencyKey: "ctr-irs-001|stress_test|2026-03-02",
	}

	out, err := engine.Compute(context.Background(), job)
	require.NoError(t, err)

	worst := out["worst_case"].(contracts.StressScenario)
	// Receiver swap: +100bp is the loss case, 5M x 5y x 100bp.
	assert.Equal(t, 100.0, worst.ShockBps)
	assert.Equal(t, -250000.0, worst.PnL)
}

func TestComputeUnknownJobType(t *testing.T) {
	engine := NewEngine(testBook(), testMarket())
	job := &contracts.RiskJob{
		JobID:      "job-eeeeeeeeeeee",
		JobType:    "cva",
		ContractID: "ctr-fx-001",
	}
	_, err := engine.Compute(context.Background(), job)
	assert.ErrorContains(t, err, "unknown job type")
}

func TestComputeMissingContract(t *testing.T) {
	engine := NewEngine(testBook(), testMarket())
	job := fxVaRJob(nil)
	job.ContractID = "ctr-nope"
	_, err := engine.Compute(context.Background(), job)
	assert.ErrorContains(t, err, "ctr-nope")
}

func TestPercentile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}
	assert.Equal(t, 10.0, percentile(values, 0))
	assert.Equal(t, 30.0, percentile(values, 50))
	assert.Equal(t, 50.0, percentile(values, 100))
	assert.Equal(t, 14.0, percentile(values, 10))
}
