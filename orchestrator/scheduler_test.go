// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"io"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/logger"
)

func TestScheduleSpecsParse(t *testing.T) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for _, spec := range []string{dailyScanSpec, intradayScanSpec} {
		_, err := parser.Parse(spec)
		assert.NoError(t, err, spec)
	}
}

func TestSchedulerLifecycle(t *testing.T) {
	agent := &fakeAgent{}
	s, err := NewScheduler(agent, logger.NewWithWriter("orchestrator", io.Discard))
	require.NoError(t, err)

	s.Start()
	s.Stop()

	// Cron never fired in this window; the scan runs only on schedule.
	assert.Empty(t, agent.calls())
}

func TestRunScanInvokesAgent(t *testing.T) {
	agent := &fakeAgent{}
	s, err := NewScheduler(agent, logger.NewWithWriter("orchestrator", io.Discard))
	require.NoError(t, err)

	s.runScan("daily")

	calls := agent.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, TaskPortfolioScan, calls[0].Task)
	assert.Equal(t, "comprehensive", calls[0].Context["scan_type"])
	assert.Equal(t, "daily", calls[0].Context["trigger"])
}
