// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
)

// Topology names. These match the queue and exchange names the KEDA
// scaler and the deployment charts are configured against; changing them
// is a breaking change for the whole platform.
const (
	Exchange           = "risk.exchange"
	DeadLetterExchange = "risk.dlx"

	JobQueue                = "risk.jobs"
	ResultQueue             = "risk.results"
	OrchestratorResultQueue = "risk.results.orchestrator"
	DeadLetterQueue         = "risk.jobs.dlq"

	JobRoutingKey        = "risk.job"
	ResultRoutingKey     = "risk.result"
	DeadLetterRoutingKey = "risk.job.dlq"
)

// AttemptHeader carries the 1-based delivery attempt count on republished
// jobs.
const AttemptHeader = "x-attempt"

// Message is a payload published to the exchange.
type Message struct {
	Body    []byte
	Headers map[string]interface{}
}

// Acker settles a delivery exactly once.
type Acker interface {
	// Ack removes the delivery from the queue.
	Ack() error
	// Nack returns the delivery. With requeue the message goes back to
	// its queue; without, it is routed to the dead-letter exchange.
	Nack(requeue bool) error
}

// Delivery is a message handed to a consumer.
type Delivery struct {
	Body        []byte
	RoutingKey  string
	Headers     map[string]interface{}
	Redelivered bool

	Acker
}

// Attempt returns the 1-based delivery attempt recorded in the headers.
func (d *Delivery) Attempt() int {
	if d.Headers == nil {
		return 1
	}
	switch v := d.Headers[AttemptHeader].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 1
}

// Publisher publishes messages to the risk exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, msg Message) error
}

// Consumer delivers messages from a queue. The returned channel closes
// when ctx is cancelled or the broker is closed for good.
type Consumer interface {
	Consume(ctx context.Context, queue string, prefetch int) (<-chan Delivery, error)
}

// Broker is the full message-fabric contract used by the services.
type Broker interface {
	Publisher
	Consumer

	// DeclareTopology creates the exchange, queues, and bindings. Safe to
	// call from every service at startup; declarations are idempotent.
	DeclareTopology(ctx context.Context) error

	Close() error
}

// DeadLetter wraps a job that exhausted its retry budget, preserving the
// original body alongside the failure for operator inspection.
type DeadLetter struct {
	Job      json.RawMessage `json:"job"`
	Error    string          `json:"error"`
	Attempts int             `json:"attempts"`
	FailedAt time.Time       `json:"failed_at"`
}

// PublishJob marshals a risk job and publishes it on the job routing key.
func PublishJob(ctx context.Context, p Publisher, job *contracts.RiskJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return NewBrokerError("publish", "marshal job "+job.JobID, err)
	}
	return p.Publish(ctx, JobRoutingKey, Message{Body: body})
}

// PublishResult marshals a risk result and publishes it on the result
// routing key, fanning it out to every bound result queue.
func PublishResult(ctx context.Context, p Publisher, result *contracts.RiskResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return NewBrokerError("publish", "marshal result "+result.JobID, err)
	}
	return p.Publish(ctx, ResultRoutingKey, Message{Body: body})
}

// PublishDeadLetter routes an exhausted job to the dead-letter queue.
func PublishDeadLetter(ctx context.Context, p Publisher, dl *DeadLetter) error {
	body, err := json.Marshal(dl)
	if err != nil {
		return NewBrokerError("publish", "marshal dead letter", err)
	}
	return p.Publish(ctx, DeadLetterRoutingKey, Message{Body: body})
}

// BrokerError wraps broker failures with the failing operation.
type BrokerError struct {
	Operation string
	Message   string
	Cause     error
}

func (e *BrokerError) Error() string {
	if e.Cause != nil {
		return "broker." + e.Operation + ": " + e.Message + " (cause: " + e.Cause.Error() + ")"
	}
	return "broker." + e.Operation + ": " + e.Message
}

func (e *BrokerError) Unwrap() error {
	return e.Cause
}

// NewBrokerError creates a BrokerError.
func NewBrokerError(operation, message string, cause error) *BrokerError {
	return &BrokerError{Operation: operation, Message: message, Cause: cause}
}
