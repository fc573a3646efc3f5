// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

// Package storage holds the pieces the MongoDB-backed stores share: the
// client dialer with pooling and timeouts, and the wrapped error type
// store operations return.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// DefaultTimeout is the default operation timeout.
	DefaultTimeout = 30 * time.Second
	// DefaultConnectTimeout is the default connection timeout.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultMaxPoolSize is the default maximum connection pool size.
	DefaultMaxPoolSize = 100
	// DefaultMinPoolSize is the default minimum connection pool size.
	DefaultMinPoolSize = 10
)

// StoreError wraps a failed store operation with its context.
type StoreError struct {
	Store     string
	Operation string
	Message   string
	Cause     error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Store, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Store, e.Operation, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError creates a StoreError.
func NewStoreError(store, operation, message string, cause error) *StoreError {
	return &StoreError{Store: store, Operation: operation, Message: message, Cause: cause}
}

// Dial connects to MongoDB with pooling, retryable reads/writes, and a
// startup ping. The URI works against both MongoDB and the Cosmos DB
// Mongo API.
func Dial(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(DefaultMaxPoolSize).
		SetMinPoolSize(DefaultMinPoolSize).
		SetConnectTimeout(DefaultConnectTimeout).
		SetRetryWrites(true).
		SetRetryReads(true).
		SetAppName("risk-sentinel")

	connectCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, NewStoreError("mongodb", "Dial", "failed to connect", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, NewStoreError("mongodb", "Dial", "failed to ping", err)
	}
	return client, nil
}
