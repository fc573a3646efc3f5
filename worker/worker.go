// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/broker"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/logger"
)

// jobPrefetch keeps each consumer to one unacked job so queue depth
// reflects real backlog for the autoscaler.
const jobPrefetch = 1

// Options configures a worker pool.
type Options struct {
	// Concurrency is the number of parallel processors. Each holds at
	// most one job.
	Concurrency int
	// MaxAttempts bounds deliveries per job before dead-lettering.
	MaxAttempts int
	// JobTimeout bounds a single computation.
	JobTimeout time.Duration
	// RetryBaseDelay seeds the exponential backoff between attempts.
	RetryBaseDelay time.Duration

	Guard  IdempotencyGuard
	Logger *logger.Logger

	// Registry receives the worker metrics; nil uses the default.
	Registry prometheus.Registerer
}

// Metrics counts job outcomes.
type Metrics struct {
	consumed     prometheus.Counter
	succeeded    prometheus.Counter
	failed       prometheus.Counter
	deadLettered prometheus.Counter
	duplicates   prometheus.Counter
	duration     prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "risk_jobs_consumed_total",
			Help: "Jobs taken off the queue",
		}),
		succeeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "risk_jobs_succeeded_total",
			Help: "Jobs that produced a result",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "risk_jobs_failed_total",
			Help: "Job attempts that failed",
		}),
		deadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "risk_jobs_dead_lettered_total",
			Help: "Jobs routed to the dead-letter queue",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "risk_jobs_duplicate_total",
			Help: "Jobs suppressed by the idempotency guard",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "risk_job_duration_seconds",
			Help:    "Job computation time",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.consumed, m.succeeded, m.failed, m.deadLettered, m.duplicates, m.duration)
	return m
}

// Worker consumes risk jobs and publishes results.
type Worker struct {
	broker  broker.Broker
	engine  *Engine
	guard   IdempotencyGuard
	log     *logger.Logger
	metrics *Metrics

	concurrency    int
	maxAttempts    int
	jobTimeout     time.Duration
	retryBaseDelay time.Duration
}

// New assembles a worker pool.
func New(b broker.Broker, engine *Engine, opts Options) *Worker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 60 * time.Second
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = time.Second
	}
	if opts.Guard == nil {
		opts.Guard = NewMemoryGuard()
	}
	if opts.Logger == nil {
		opts.Logger = logger.New("risk-worker")
	}
	return &Worker{
		broker:         b,
		engine:         engine,
		guard:          opts.Guard,
		log:            opts.Logger,
		metrics:        newMetrics(opts.Registry),
		concurrency:    opts.Concurrency,
		maxAttempts:    opts.MaxAttempts,
		jobTimeout:     opts.JobTimeout,
		retryBaseDelay: opts.RetryBaseDelay,
	}
}

// Run consumes jobs until ctx is cancelled. In-flight jobs finish before
// Run returns.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		deliveries, err := w.broker.Consume(ctx, broker.JobQueue, jobPrefetch)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				w.process(ctx, d)
			}
		}()
	}
	wg.Wait()
	return nil
}

func (w *Worker) process(ctx context.Context, d broker.Delivery) {
	w.metrics.consumed.Inc()

	var job contracts.RiskJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		// Unparsable bodies can never succeed; dead-letter immediately.
		w.deadLetter(ctx, d.Body, fmt.Sprintf("unparsable job: %v", err), d.Attempt())
		_ = d.Ack()
		return
	}
	if err := job.Validate(); err != nil {
		w.deadLetter(ctx, d.Body, fmt.Sprintf("invalid job: %v", err), d.Attempt())
		w.publishFailure(ctx, &job, err)
		_ = d.Ack()
		return
	}

	claimed, prior, err := w.guard.Claim(ctx, job.IdempotencyKey)
	if err != nil {
		// Guard unavailable: compute anyway rather than stall the queue.
		w.log.Warn(job.JobID, job.ContractID, "idempotency guard unavailable, computing without it", map[string]interface{}{
			"error": err.Error(),
		})
		claimed = true
	}
	if !claimed {
		w.metrics.duplicates.Inc()
		if prior != nil {
			// Resubmission of a finished job: republish the prior result
			// under the new job ID.
			w.republishPrior(ctx, &job, prior)
		} else {
			w.log.Info(job.JobID, job.ContractID, "duplicate job in flight elsewhere, dropping", nil)
		}
		_ = d.Ack()
		return
	}

	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	payload, err := w.engine.Compute(jobCtx, &job)
	cancel()
	w.metrics.duration.Observe(time.Since(start).Seconds())

	if err != nil {
		w.metrics.failed.Inc()
		_ = w.guard.Release(ctx, job.IdempotencyKey)
		w.retryOrDeadLetter(ctx, d, &job, err)
		return
	}

	result := &contracts.RiskResult{
		JobID:       job.JobID,
		Status:      contracts.JobStatusSucceeded,
		ContractID:  job.ContractID,
		Result:      payload,
		CompletedAt: time.Now().UTC(),
	}
	if err := broker.PublishResult(ctx, w.broker, result); err != nil {
		w.metrics.failed.Inc()
		_ = w.guard.Release(ctx, job.IdempotencyKey)
		w.retryOrDeadLetter(ctx, d, &job, err)
		return
	}

	if body, merr := json.Marshal(result); merr == nil {
		_ = w.guard.Complete(ctx, job.IdempotencyKey, body)
	}
	w.metrics.succeeded.Inc()
	w.log.InfoWithDuration(job.JobID, job.ContractID, "job completed", float64(time.Since(start).Microseconds())/1000, map[string]interface{}{
		"job_type": string(job.JobType),
	})
	_ = d.Ack()
}

// retryOrDeadLetter republishes the job with an incremented attempt
// header after a backoff, or dead-letters it once the budget is spent.
func (w *Worker) retryOrDeadLetter(ctx context.Context, d broker.Delivery, job *contracts.RiskJob, cause error) {
	attempt := d.Attempt()
	if attempt >= w.maxAttempts {
		w.deadLetter(ctx, d.Body, cause.Error(), attempt)
		w.publishFailure(ctx, job, cause)
		_ = d.Ack()
		return
	}

	w.log.Warn(job.JobID, job.ContractID, "job attempt failed, retrying", map[string]interface{}{
		"attempt": attempt,
		"error":   cause.Error(),
	})

	delay := backoff(w.retryBaseDelay, attempt)
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		// Shutting down: return the delivery so another worker retries.
		_ = d.Nack(true)
		return
	}

	err := w.broker.Publish(ctx, broker.JobRoutingKey, broker.Message{
		Body:    d.Body,
		Headers: map[string]interface{}{broker.AttemptHeader: attempt + 1},
	})
	if err != nil {
		// Could not republish; requeue the original instead.
		_ = d.Nack(true)
		return
	}
	_ = d.Ack()
}

func (w *Worker) deadLetter(ctx context.Context, body []byte, reason string, attempts int) {
	w.metrics.deadLettered.Inc()
	dl := &broker.DeadLetter{
		Job:      json.RawMessage(body),
		Error:    reason,
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	}
	if err := broker.PublishDeadLetter(ctx, w.broker, dl); err != nil {
		w.log.ErrorWithErr("", "", "failed to publish dead letter", err, nil)
	}
}

func (w *Worker) publishFailure(ctx context.Context, job *contracts.RiskJob, cause error) {
	result := &contracts.RiskResult{
		JobID:       job.JobID,
		Status:      contracts.JobStatusFailed,
		ContractID:  job.ContractID,
		Error:       cause.Error(),
		CompletedAt: time.Now().UTC(),
	}
	if err := broker.PublishResult(ctx, w.broker, result); err != nil {
		w.log.ErrorWithErr(job.JobID, job.ContractID, "failed to publish failure result", err, nil)
	}
}

// republishPrior reissues a stored result under the resubmitted job's ID
// so its poller completes too.
func (w *Worker) republishPrior(ctx context.Context, job *contracts.RiskJob, prior []byte) {
	var res contracts.RiskResult
	if err := json.Unmarshal(prior, &res); err != nil {
		w.log.ErrorWithErr(job.JobID, job.ContractID, "stored prior result is unreadable", err, nil)
		return
	}
	res.JobID = job.JobID
	if err := broker.PublishResult(ctx, w.broker, &res); err != nil {
		w.log.ErrorWithErr(job.JobID, job.ContractID, "failed to republish prior result", err, nil)
		return
	}
	w.log.Info(job.JobID, job.ContractID, "duplicate submission served from prior result", nil)
}

// backoff returns base x 2^(attempt-1) with up to 20% jitter.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base << uint(attempt-1)
	jitter := time.Duration(rand.Int63n(int64(d) / 5))
	return d + jitter
}
