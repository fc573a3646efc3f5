// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package logger provides the platform's structured JSON logger. Entries
// carry the component name plus optional job and contract identifiers so
// a single job can be traced across the tool servers, the worker pool,
// and the orchestrator.
package logger
