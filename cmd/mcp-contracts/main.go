// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package main is the entry point for the mcp-contracts tool server.
//
// mcp-contracts hosts the contract registry: search, lookup, and
// creation of FX forward and interest rate swap contracts, plus risk
// memos written back by the orchestrator after a breach.
//
// Usage:
//
//	./mcp-contracts
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	MONGO_URI - Cosmos/MongoDB connection string (empty: in-memory store)
//	MONGO_DATABASE - database name (default: risksentinel)
//	REDIS_URL - Redis connection string for rate limiting (optional)
//	JWT_SECRET - enables bearer auth on tool routes (optional)
//	KEY_VAULT_URL - Azure Key Vault for secret resolution (optional)
package main

import (
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/registry"
)

func main() {
	registry.Run()
}
