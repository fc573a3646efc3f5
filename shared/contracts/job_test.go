// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyKey(t *testing.T) {
	day := NewDate(2026, time.March, 2)
	key := IdempotencyKey("ctr-fx-001", JobTypeFXVaR, day)
	assert.Equal(t, "ctr-fx-001|fx_var|2026-03-02", key)
}

func TestRiskJobValidate(t *testing.T) {
	job := RiskJob{
		JobID:          "job-abc123def456",
		JobType:        JobTypeFXVaR,
		ContractID:     "ctr-fx-001",
		IdempotencyKey: "ctr-fx-001|fx_var|2026-03-02",
	}
	require.NoError(t, job.Validate())

	tests := []struct {
		name    string
		mutate  func(*RiskJob)
		wantErr string
	}{
		{"missing job id", func(j *RiskJob) { j.JobID = "" }, "job_id"},
		{"unknown job type", func(j *RiskJob) { j.JobType = "cva" }, "job_type"},
		{"missing contract id", func(j *RiskJob) { j.ContractID = " " }, "contract_id"},
		{"missing idempotency key", func(j *RiskJob) { j.IdempotencyKey = "" }, "idempotency_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := job
			tt.mutate(&j)
			err := j.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJobParamReaders(t *testing.T) {
	job := RiskJob{Params: map[string]interface{}{
		"confidence":   0.99,
		"horizon":      float64(10),
		"simulations":  json.Number("50000"),
		"shift_bps":    json.Number("1.5"),
		"not_a_number": "ten",
	}}

	assert.Equal(t, 0.99, job.FloatParam("confidence", 0.95))
	assert.Equal(t, 1.5, job.FloatParam("shift_bps", 1.0))
	assert.Equal(t, 0.95, job.FloatParam("missing", 0.95))
	assert.Equal(t, 0.95, job.FloatParam("not_a_number", 0.95))

	assert.Equal(t, 10, job.IntParam("horizon", 1))
	assert.Equal(t, 50000, job.IntParam("simulations", 10000))
	assert.Equal(t, 1, job.IntParam("missing", 1))
	assert.Equal(t, 1, job.IntParam("not_a_number", 1))
}

func TestJobStatusLifecycle(t *testing.T) {
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusProcessing.Terminal())
	assert.True(t, JobStatusSucceeded.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.False(t, RiskJobStatus("queued").Valid())
}

func TestRiskResultValidate(t *testing.T) {
	res := RiskResult{JobID: "job-abc123def456", Status: JobStatusSucceeded, ContractID: "ctr-fx-001"}
	require.NoError(t, res.Validate())

	res.JobID = ""
	assert.ErrorContains(t, res.Validate(), "job_id")

	res = RiskResult{JobID: "job-abc123def456", Status: JobStatusProcessing}
	assert.ErrorContains(t, res.Validate(), "not terminal")

	res = RiskResult{JobID: "job-abc123def456", Status: JobStatusFailed}
	assert.ErrorContains(t, res.Validate(), "error message")

	res.Error = "market data unavailable"
	assert.NoError(t, res.Validate())
}
