// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package broker implements the platform's durable message fabric: the
// risk.exchange direct exchange, the risk.jobs work queue consumed by the
// worker pool, the risk.results queues fanning results out to the risk
// tool server and the orchestrator, and the risk.jobs.dlq dead-letter
// queue for poison jobs.
//
// Two implementations share the same semantics: AMQPBroker speaks AMQP
// 0-9-1 to RabbitMQ, and MemoryBroker is an in-process broker used by
// tests and local single-binary mode. Queue depth on risk.jobs is the
// autoscaling signal for the worker deployment, so publishers must never
// buffer jobs locally.
package broker
