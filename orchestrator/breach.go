// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/broker"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/logger"
)

// resultPrefetch widens the consumer window; breach checks are cheap.
const resultPrefetch = 10

// Metric names used for dedup keys and breach memos.
const (
	MetricFXVaR  = "fx_var"
	MetricIRDv01 = "ir_dv01"
)

// Thresholds are the breach limits in dollars.
type Thresholds struct {
	FXVaR  float64
	IRDv01 float64
}

// MemoWriter records a breach memo against a contract.
type MemoWriter interface {
	WriteBreachMemo(ctx context.Context, contractID, title, content string, metrics map[string]interface{}) error
}

// Breach is one threshold violation found in a risk result.
type Breach struct {
	Metric    string
	Value     float64
	Threshold float64
}

func (b Breach) describe() string {
	switch b.Metric {
	case MetricFXVaR:
		return fmt.Sprintf("FX VaR $%.2f exceeds threshold $%.2f", b.Value, b.Threshold)
	case MetricIRDv01:
		return fmt.Sprintf("IR DV01 $%.2f exceeds threshold $%.2f", b.Value, b.Threshold)
	}
	return fmt.Sprintf("%s %.2f exceeds threshold %.2f", b.Metric, b.Value, b.Threshold)
}

// BreachDetector consumes risk results and escalates threshold
// violations to the agent and the contract registry.
type BreachDetector struct {
	thresholds Thresholds
	agent      AgentInvoker
	memos      MemoWriter
	dedup      AlertDeduper
	log        *logger.Logger
}

// NewBreachDetector wires the detector's collaborators.
func NewBreachDetector(thresholds Thresholds, agent AgentInvoker, memos MemoWriter, dedup AlertDeduper, log *logger.Logger) *BreachDetector {
	if log == nil {
		log = logger.New("orchestrator")
	}
	if dedup == nil {
		dedup = NewMemoryDeduper()
	}
	return &BreachDetector{
		thresholds: thresholds,
		agent:      agent,
		memos:      memos,
		dedup:      dedup,
		log:        log,
	}
}

// Run consumes the orchestrator result queue until ctx is cancelled.
func (d *BreachDetector) Run(ctx context.Context, consumer broker.Consumer) error {
	deliveries, err := consumer.Consume(ctx, broker.OrchestratorResultQueue, resultPrefetch)
	if err != nil {
		return err
	}
	for delivery := range deliveries {
		d.handle(ctx, delivery)
	}
	return nil
}

func (d *BreachDetector) handle(ctx context.Context, delivery broker.Delivery) {
	var res contracts.RiskResult
	if err := json.Unmarshal(delivery.Body, &res); err != nil {
		d.log.ErrorWithErr("", "", "dropping unparsable result", err, nil)
		_ = delivery.Ack()
		return
	}

	// Breach checks are advisory; the delivery is settled regardless of
	// how escalation goes, and dedup prevents double alerts.
	d.Inspect(ctx, &res)
	_ = delivery.Ack()
}

// Inspect checks a single result for threshold breaches and escalates
// any it finds.
func (d *BreachDetector) Inspect(ctx context.Context, res *contracts.RiskResult) {
	if res.Status != contracts.JobStatusSucceeded {
		return
	}

	breaches := detectBreaches(res.Result, d.thresholds)
	if len(breaches) == 0 {
		return
	}

	for _, b := range breaches {
		first, err := d.dedup.FirstToday(ctx, res.ContractID, b.Metric)
		if err != nil {
			// Fail open: a broken deduper must not hide breaches.
			d.log.Warn(res.JobID, res.ContractID, "alert dedup unavailable", map[string]interface{}{
				"error": err.Error(),
			})
			first = true
		}
		if !first {
			d.log.Info(res.JobID, res.ContractID, "breach already alerted today", map[string]interface{}{
				"metric": b.Metric,
			})
			continue
		}
		d.escalate(ctx, res, b)
	}
}

func (d *BreachDetector) escalate(ctx context.Context, res *contracts.RiskResult, b Breach) {
	detail := b.describe()
	d.log.Warn(res.JobID, res.ContractID, "threshold breach detected", map[string]interface{}{
		"metric":    b.Metric,
		"value":     b.Value,
		"threshold": b.Threshold,
	})

	if d.agent != nil {
		err := d.agent.Invoke(ctx, TaskThresholdBreach, map[string]interface{}{
			"contract_id":    res.ContractID,
			"risk_result":    res.Result,
			"breach_details": []string{detail},
		})
		if err != nil {
			d.log.ErrorWithErr(res.JobID, res.ContractID, "agent invocation failed", err, nil)
		}
	}

	if d.memos != nil {
		err := d.memos.WriteBreachMemo(ctx, res.ContractID,
			fmt.Sprintf("Threshold breach: %s", b.Metric),
			detail,
			res.Result,
		)
		if err != nil {
			d.log.ErrorWithErr(res.JobID, res.ContractID, "failed to write breach memo", err, nil)
		}
	}
}

// detectBreaches applies the thresholds to a result payload. DV01 is
// compared by magnitude; payer and receiver exposure breach alike.
func detectBreaches(result map[string]interface{}, t Thresholds) []Breach {
	var out []Breach
	if v, ok := numeric(result["var"]); ok && v > t.FXVaR {
		out = append(out, Breach{Metric: MetricFXVaR, Value: v, Threshold: t.FXVaR})
	}
	if v, ok := numeric(result["dv01"]); ok && math.Abs(v) > t.IRDv01 {
		out = append(out, Breach{Metric: MetricIRDv01, Value: math.Abs(v), Threshold: t.IRDv01})
	}
	return out
}

func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
