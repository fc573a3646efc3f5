// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/logger"
)

// Scan schedules, in UTC.
const (
	dailyScanSpec    = "0 8 * * *"
	intradayScanSpec = "0 */4 * * *"
)

// Scheduler runs the portfolio scans on a cron cadence: the full daily
// scan at 08:00 UTC plus intraday scans every four hours.
type Scheduler struct {
	cron  *cron.Cron
	agent AgentInvoker
	log   *logger.Logger
}

// NewScheduler builds the scan scheduler.
func NewScheduler(agent AgentInvoker, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.New("orchestrator")
	}
	s := &Scheduler{
		cron:  cron.New(cron.WithLocation(time.UTC)),
		agent: agent,
		log:   log,
	}

	if _, err := s.cron.AddFunc(dailyScanSpec, func() { s.runScan("daily") }); err != nil {
		return nil, fmt.Errorf("schedule daily scan: %w", err)
	}
	if _, err := s.cron.AddFunc(intradayScanSpec, func() { s.runScan("intraday") }); err != nil {
		return nil, fmt.Errorf("schedule intraday scan: %w", err)
	}
	return s, nil
}

// Start begins the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("", "", "scan scheduler started", map[string]interface{}{
		"daily":    dailyScanSpec,
		"intraday": intradayScanSpec,
	})
}

// Stop halts scheduling and waits for a running scan to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runScan invokes the portfolio scan task; scan failures are logged,
// the next scheduled run retries.
func (s *Scheduler) runScan(kind string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s.log.Info("", "", "starting portfolio scan", map[string]interface{}{"kind": kind})
	err := s.agent.Invoke(ctx, TaskPortfolioScan, map[string]interface{}{
		"scan_type": "comprehensive",
		"trigger":   kind,
	})
	if err != nil {
		s.log.ErrorWithErr("", "", "portfolio scan failed", err, map[string]interface{}{"kind": kind})
	}
}
