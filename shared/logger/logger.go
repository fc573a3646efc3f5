// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package logger

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	DEBUG LogLevel = "DEBUG"
	INFO  LogLevel = "INFO"
	WARN  LogLevel = "WARN"
	ERROR LogLevel = "ERROR"
)

// Logger provides structured JSON logging for platform services. One log
// line per entry on stdout; the container runtime ships them as-is.
type Logger struct {
	Component  string
	InstanceID string
	Container  string

	mu  sync.Mutex
	out io.Writer
}

// LogEntry is a single structured log line.
type LogEntry struct {
	Timestamp  string                 `json:"timestamp"`
	Level      LogLevel               `json:"level"`
	Component  string                 `json:"component"`
	InstanceID string                 `json:"instance_id"`
	Container  string                 `json:"container"`
	JobID      string                 `json:"job_id,omitempty"`
	ContractID string                 `json:"contract_id,omitempty"`
	Message    string                 `json:"message"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// New creates a Logger for the named component (mcp-risk, risk-worker, ...).
func New(component string) *Logger {
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		instanceID = "unknown"
	}

	container, err := os.Hostname()
	if err != nil {
		container = "unknown"
	}

	return &Logger{
		Component:  component,
		InstanceID: instanceID,
		Container:  container,
		out:        os.Stdout,
	}
}

// NewWithWriter creates a Logger that writes to w. Used by tests.
func NewWithWriter(component string, w io.Writer) *Logger {
	l := New(component)
	l.out = w
	return l
}

// Log writes a structured entry. jobID and contractID may be empty for
// entries not tied to a specific job.
func (l *Logger) Log(level LogLevel, jobID, contractID, message string, fields map[string]interface{}) {
	entry := LogEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Level:      level,
		Component:  l.Component,
		InstanceID: l.InstanceID,
		Container:  l.Container,
		JobID:      jobID,
		ContractID: contractID,
		Message:    message,
		Fields:     fields,
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		// Fallback to plain text if JSON marshaling fails
		log.Printf("ERROR: Failed to marshal log entry: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(jsonBytes, '\n'))
}

// Info logs an informational message
func (l *Logger) Info(jobID, contractID, message string, fields map[string]interface{}) {
	l.Log(INFO, jobID, contractID, message, fields)
}

// Error logs an error message
func (l *Logger) Error(jobID, contractID, message string, fields map[string]interface{}) {
	l.Log(ERROR, jobID, contractID, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(jobID, contractID, message string, fields map[string]interface{}) {
	l.Log(WARN, jobID, contractID, message, fields)
}

// Debug logs a debug message
func (l *Logger) Debug(jobID, contractID, message string, fields map[string]interface{}) {
	l.Log(DEBUG, jobID, contractID, message, fields)
}

// InfoWithDuration logs an info message with a duration_ms field.
func (l *Logger) InfoWithDuration(jobID, contractID, message string, durationMS float64, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["duration_ms"] = durationMS
	l.Info(jobID, contractID, message, fields)
}

// ErrorWithErr logs an error message carrying the error string as a field.
func (l *Logger) ErrorWithErr(jobID, contractID, message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Error(jobID, contractID, message, fields)
}
