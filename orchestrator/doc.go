// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package orchestrator implements the event detector: it watches risk
// results for threshold breaches, polls market data for shocks, runs
// scheduled portfolio scans, and hands each detected event to the
// Foundry analysis agent. The agent is an opaque HTTP endpoint; the
// orchestrator decides WHEN it runs, never what it reasons.
package orchestrator
