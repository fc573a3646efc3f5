// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package market implements the mcp-market tool server: simulated FX
// spot rates and volatilities for the demo book, shock injection for
// exercising the orchestrator's event detection, and a snapshot history
// the shock detector diffs against.
package market
