// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package main is the entry point for the mcp-market tool server.
//
// mcp-market serves simulated market data over the tool protocol:
// FX spot rates with jitter, baseline volatilities, portfolio-wide
// snapshots, and operator-triggered shock simulation.
//
// Usage:
//
//	./mcp-market
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	REDIS_URL - Redis connection string for rate limiting (optional)
//	JWT_SECRET - enables bearer auth on tool routes (optional)
//	KEY_VAULT_URL - Azure Key Vault for secret resolution (optional)
package main

import (
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/market"
)

func main() {
	market.Run()
}
