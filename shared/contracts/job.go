// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package contracts

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RiskJobType identifies a risk calculation.
type RiskJobType string

const (
	JobTypeFXVaR      RiskJobType = "fx_var"
	JobTypeIRDv01     RiskJobType = "ir_dv01"
	JobTypeStressTest RiskJobType = "stress_test"
)

// Valid reports whether the job type is a supported calculation.
func (t RiskJobType) Valid() bool {
	switch t {
	case JobTypeFXVaR, JobTypeIRDv01, JobTypeStressTest:
		return true
	}
	return false
}

// RiskJobStatus is the lifecycle state of a risk job.
type RiskJobStatus string

const (
	JobStatusPending    RiskJobStatus = "pending"
	JobStatusProcessing RiskJobStatus = "processing"
	JobStatusSucceeded  RiskJobStatus = "succeeded"
	JobStatusFailed     RiskJobStatus = "failed"
)

// Valid reports whether the status is a known lifecycle state.
func (s RiskJobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusSucceeded, JobStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status is final.
func (s RiskJobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// RiskJob is an asynchronous risk calculation request published to the job
// queue and consumed by the risk worker pool.
type RiskJob struct {
	JobID      string                 `json:"job_id" bson:"job_id"`
	JobType    RiskJobType            `json:"job_type" bson:"job_type"`
	ContractID string                 `json:"contract_id" bson:"contract_id"`
	Params     map[string]interface{} `json:"params" bson:"params"`

	// IdempotencyKey prevents duplicate processing of resubmitted jobs.
	// Format: "<contract_id>|<job_type>|<submission date>".
	IdempotencyKey string `json:"idempotency_key" bson:"idempotency_key"`

	SubmittedAt time.Time     `json:"submitted_at,omitempty" bson:"submitted_at,omitempty"`
	Status      RiskJobStatus `json:"status,omitempty" bson:"status,omitempty"`
}

// IdempotencyKey builds the canonical duplicate-suppression key for a
// contract, calculation type, and submission date.
func IdempotencyKey(contractID string, jobType RiskJobType, day Date) string {
	return fmt.Sprintf("%s|%s|%s", contractID, jobType, day)
}

// Validate checks the job is well formed enough to enqueue.
func (j *RiskJob) Validate() error {
	if strings.TrimSpace(j.JobID) == "" {
		return fmt.Errorf("job_id is required")
	}
	if !j.JobType.Valid() {
		return fmt.Errorf("unknown job_type %q", j.JobType)
	}
	if strings.TrimSpace(j.ContractID) == "" {
		return fmt.Errorf("contract_id is required")
	}
	if strings.TrimSpace(j.IdempotencyKey) == "" {
		return fmt.Errorf("idempotency_key is required")
	}
	return nil
}

// FloatParam reads a numeric job parameter, tolerating the types JSON
// decoding can produce, and falls back to def when absent.
func (j *RiskJob) FloatParam(name string, def float64) float64 {
	v, ok := j.Params[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return def
		}
		return f
	}
	return def
}

// IntParam reads an integer job parameter with a default.
func (j *RiskJob) IntParam(name string, def int) int {
	v, ok := j.Params[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return def
		}
		return int(i)
	}
	return def
}
