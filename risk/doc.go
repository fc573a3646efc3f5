// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package risk implements the mcp-risk tool server: it mints risk jobs,
// publishes them to the job queue, tracks their lifecycle in the job
// store, and folds worker results back in through a result consumer.
package risk
