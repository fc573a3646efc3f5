// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package contracts defines the shared data model for the Contract Risk
// Sentinel platform: financial contracts, risk calculation jobs, job
// results, and risk memos. Every service (tool servers, risk worker,
// orchestrator) exchanges these types as JSON, so the wire tags here are
// the platform's wire contract.
package contracts
