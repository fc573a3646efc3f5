// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package toolserver provides the shared HTTP plumbing for the platform's
// MCP tool servers (mcp-contracts, mcp-risk, mcp-market).
//
// Every server exposes the same surface: POST /mcp/call dispatches a
// named tool with JSON arguments, GET /mcp/tools lists the registered
// tools, and each tool is additionally mounted on a plain REST route for
// the operator scripts and load tests. Health, Prometheus metrics, CORS,
// optional JWT bearer auth, and per-client rate limiting are handled
// here so the individual servers only register tools.
package toolserver
