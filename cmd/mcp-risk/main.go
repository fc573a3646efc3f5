// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package main is the entry point for the mcp-risk tool server.
//
// mcp-risk accepts risk computation requests (FX VaR, IR DV01, stress
// tests), publishes them as jobs on the broker, and tracks job state as
// worker results come back on the result queue.
//
// Usage:
//
//	./mcp-risk
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	RABBITMQ_URL - amqp:// connection string (empty: in-process broker)
//	MONGO_URI - Cosmos/MongoDB connection string (empty: in-memory store)
//	MONGO_DATABASE - database name (default: risksentinel)
//	REDIS_URL - Redis connection string for rate limiting (optional)
//	JWT_SECRET - enables bearer auth on tool routes (optional)
//	KEY_VAULT_URL - Azure Key Vault for secret resolution (optional)
package main

import (
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/risk"
)

func main() {
	risk.Run()
}
