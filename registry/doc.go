// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package registry implements the mcp-contracts tool server: the
// contract book, risk memos, and the tool set for searching, creating,
// and annotating contracts. The Mongo-backed store serves production;
// the in-memory store serves tests and local mode with a seeded sample
// book.
package registry
