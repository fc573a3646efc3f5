// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package config resolves service configuration from defaults, an
// optional YAML file, and environment variables, in that order.
package config
