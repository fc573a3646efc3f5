// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package main is the entry point for the risk computation worker.
//
// risk-worker consumes jobs from the broker with prefetch 1, prices
// them with Monte Carlo VaR, DV01, or stress grids against contract and
// market data fetched from the tool servers, and publishes results to
// the result queues. Duplicate submissions replay the stored result;
// failed jobs retry with backoff and dead-letter after the attempt
// budget. The queue depth drives KEDA replica scaling.
//
// Usage:
//
//	./risk-worker
//
// Environment Variables:
//
//	PORT - health/metrics port (default: 8080)
//	RABBITMQ_URL - amqp:// connection string (empty: in-process broker)
//	REDIS_URL - Redis for idempotency claims (empty: per-process only)
//	MCP_CONTRACTS_URL - contract registry base URL
//	MCP_MARKET_URL - market data base URL
//	WORKER_CONCURRENCY - parallel job processors (default: 4)
//	MAX_JOB_ATTEMPTS - deliveries before dead-lettering (default: 3)
//	KEY_VAULT_URL - Azure Key Vault for secret resolution (optional)
package main

import (
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/worker"
)

func main() {
	worker.Run()
}
