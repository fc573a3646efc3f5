// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package worker implements the risk-worker: it consumes jobs from the
// job queue one at a time, computes FX VaR, IR DV01, and stress tests,
// publishes results, and dead-letters jobs that exhaust their retry
// budget. Replicas scale horizontally on queue depth.
package worker
