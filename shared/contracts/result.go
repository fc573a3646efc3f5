// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package contracts

import (
	"fmt"
	"strings"
	"time"
)

// RiskResult is the outcome of a risk job, published to the results queue
// by the worker and fanned out to every bound result consumer.
type RiskResult struct {
	JobID      string        `json:"job_id" bson:"job_id"`
	Status     RiskJobStatus `json:"status" bson:"status"`
	ContractID string        `json:"contract_id" bson:"contract_id"`

	// Result holds the calculation payload (FXVaRResult, IRDv01Result, or
	// StressTestResult rendered as a map) when Status is succeeded.
	Result map[string]interface{} `json:"result,omitempty" bson:"result,omitempty"`

	Error       string    `json:"error,omitempty" bson:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// Validate checks the result identifies its job and carries a terminal status.
func (r *RiskResult) Validate() error {
	if strings.TrimSpace(r.JobID) == "" {
		return fmt.Errorf("job_id is required")
	}
	if !r.Status.Terminal() {
		return fmt.Errorf("result status %q is not terminal", r.Status)
	}
	if r.Status == JobStatusFailed && r.Error == "" {
		return fmt.Errorf("failed result must carry an error message")
	}
	return nil
}

// FXVaRResult is the payload of a completed FX Value-at-Risk calculation.
type FXVaRResult struct {
	VaR         float64   `json:"var"`
	Confidence  float64   `json:"confidence"`
	HorizonDays int       `json:"horizon_days"`
	Simulations int       `json:"simulations"`
	AsOf        time.Time `json:"as_of"`
}

// IRDv01Result is the payload of a completed interest-rate DV01 calculation.
type IRDv01Result struct {
	DV01     float64   `json:"dv01"`
	ShiftBps float64   `json:"shift_bps"`
	Currency string    `json:"currency"`
	AsOf     time.Time `json:"as_of"`
}

// StressScenario is a single revaluation under a shocked market.
type StressScenario struct {
	Name     string  `json:"name"`
	ShockPct float64 `json:"shock_pct,omitempty"`
	ShockBps float64 `json:"shock_bps,omitempty"`
	PnL      float64 `json:"pnl"`
}

// StressTestResult is the payload of a completed stress test: contract
// P&L across a grid of market shocks plus the worst case.
type StressTestResult struct {
	Scenarios []StressScenario `json:"scenarios"`
	WorstCase StressScenario   `json:"worst_case"`
	AsOf      time.Time        `json:"as_of"`
}
