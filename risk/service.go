// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package risk

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/broker"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/logger"
)

// resultPrefetch is the consumer window on the results queue. Results
// are cheap to apply, so the window is wider than the workers' job
// prefetch.
const resultPrefetch = 10

// NewJobID mints a job identifier.
func NewJobID() string {
	return "job-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Service submits risk jobs and tracks their lifecycle.
type Service struct {
	store JobStore
	pub   broker.Publisher
	log   *logger.Logger

	now func() time.Time
}

// NewService wires a job store and a publisher into a submission service.
func NewService(store JobStore, pub broker.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.New("risk")
	}
	return &Service{
		store: store,
		pub:   pub,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Submit mints a job, records it as pending, and publishes it to the job
// queue. The record is written before the publish so a result can never
// arrive for an unknown job.
func (s *Service) Submit(ctx context.Context, jobType contracts.RiskJobType, contractID string, params map[string]interface{}) (*JobRecord, error) {
	now := s.now()
	day := contracts.NewDate(now.Year(), now.Month(), now.Day())

	rec := &JobRecord{
		RiskJob: contracts.RiskJob{
			JobID:          NewJobID(),
			JobType:        jobType,
			ContractID:     contractID,
			Params:         params,
			IdempotencyKey: contracts.IdempotencyKey(contractID, jobType, day),
			SubmittedAt:    now,
			Status:         contracts.JobStatusPending,
		},
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, rec); err != nil {
		return nil, err
	}
	if err := broker.PublishJob(ctx, s.pub, &rec.RiskJob); err != nil {
		return nil, err
	}

	s.log.Info(rec.JobID, contractID, "risk job submitted", map[string]interface{}{
		"job_type": string(jobType),
	})
	return rec, nil
}

// ConsumeResults folds worker results into the job store until ctx is
// cancelled. Results for unknown jobs are acknowledged and dropped; store
// failures nack for redelivery.
func (s *Service) ConsumeResults(ctx context.Context, consumer broker.Consumer) error {
	deliveries, err := consumer.Consume(ctx, broker.ResultQueue, resultPrefetch)
	if err != nil {
		return err
	}

	for d := range deliveries {
		s.applyResult(ctx, d)
	}
	return nil
}

func (s *Service) applyResult(ctx context.Context, d broker.Delivery) {
	var res contracts.RiskResult
	if err := json.Unmarshal(d.Body, &res); err != nil {
		s.log.ErrorWithErr("", "", "dropping unparsable result", err, nil)
		_ = d.Ack()
		return
	}

	err := s.store.ApplyResult(ctx, &res)
	switch {
	case errors.Is(err, ErrJobNotFound):
		// Another replica owns this job when the store is not shared.
		s.log.Warn(res.JobID, res.ContractID, "result for unknown job", nil)
		_ = d.Ack()
	case err != nil:
		s.log.ErrorWithErr(res.JobID, res.ContractID, "failed to apply result, requeueing", err, nil)
		_ = d.Nack(true)
	default:
		s.log.Info(res.JobID, res.ContractID, "result applied", map[string]interface{}{
			"status": string(res.Status),
		})
		_ = d.Ack()
	}
}
