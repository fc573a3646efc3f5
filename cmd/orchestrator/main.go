// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package main is the entry point for the agent orchestrator.
//
// The orchestrator watches the risk result fanout queue for threshold
// breaches, polls market data for shocks, and runs scheduled portfolio
// scans. Each trigger invokes the Azure AI Foundry agent with the tool
// server endpoints, and breaches are recorded as risk memos on the
// affected contract.
//
// Usage:
//
//	./orchestrator
//
// Environment Variables:
//
//	PORT - health/metrics port (default: 8080)
//	RABBITMQ_URL - amqp:// connection string (empty: in-process broker)
//	REDIS_URL - Redis for alert dedup (empty: per-process only)
//	FOUNDRY_AGENT_ENDPOINT - Foundry agent invocation URL
//	FOUNDRY_API_KEY - bearer token for the agent endpoint
//	MCP_CONTRACTS_URL, MCP_RISK_URL, MCP_MARKET_URL - tool server URLs
//	FX_VAR_THRESHOLD - FX VaR breach level (default: 100000)
//	IR_DV01_THRESHOLD - DV01 breach level (default: 50000)
//	MARKET_SHOCK_THRESHOLD - spot move percent (default: 2.0)
//	VOLATILITY_SPIKE_LIMIT - absolute vol spike level (default: 0.15)
//	MARKET_POLL_INTERVAL - snapshot polling period (default: 5m)
//	KEY_VAULT_URL - Azure Key Vault for secret resolution (optional)
package main

import (
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/orchestrator"
)

func main() {
	orchestrator.Run()
}
