// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"
)

// TestNew tests logger initialization
func TestNew(t *testing.T) {
	tests := []struct {
		name           string
		component      string
		instanceID     string
		expectedComp   string
		expectedInstID string
	}{
		{
			name:           "with instance ID set",
			component:      "risk-worker",
			instanceID:     "instance-123",
			expectedComp:   "risk-worker",
			expectedInstID: "instance-123",
		},
		{
			name:           "without instance ID",
			component:      "mcp-risk",
			instanceID:     "",
			expectedComp:   "mcp-risk",
			expectedInstID: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.instanceID != "" {
				t.Setenv("INSTANCE_ID", tt.instanceID)
			} else {
				if err := os.Unsetenv("INSTANCE_ID"); err != nil {
					t.Fatalf("Failed to unset INSTANCE_ID: %v", err)
				}
			}

			logger := New(tt.component)

			if logger.Component != tt.expectedComp {
				t.Errorf("Expected component %s, got %s", tt.expectedComp, logger.Component)
			}

			if logger.InstanceID != tt.expectedInstID {
				t.Errorf("Expected instance ID %s, got %s", tt.expectedInstID, logger.InstanceID)
			}

			if logger.Container == "" {
				t.Error("Expected container to be set from hostname")
			}
		})
	}
}

// TestLogLevels tests all log level methods
func TestLogLevels(t *testing.T) {
	tests := []struct {
		name       string
		logFunc    func(*Logger, string, string, string, map[string]interface{})
		level      LogLevel
		message    string
		jobID      string
		contractID string
		fields     map[string]interface{}
	}{
		{
			name:       "Info log",
			logFunc:    (*Logger).Info,
			level:      INFO,
			message:    "Job submitted",
			jobID:      "job-123",
			contractID: "ctr-001",
			fields:     map[string]interface{}{"queue": "risk.jobs"},
		},
		{
			name:       "Error log",
			logFunc:    (*Logger).Error,
			level:      ERROR,
			message:    "Publish failed",
			jobID:      "job-789",
			contractID: "ctr-002",
			fields:     map[string]interface{}{"attempt": 3},
		},
		{
			name:       "Warn log",
			logFunc:    (*Logger).Warn,
			level:      WARN,
			message:    "Result arrived for unknown job",
			jobID:      "job-abc",
			contractID: "",
			fields:     nil,
		},
		{
			name:       "Debug log",
			logFunc:    (*Logger).Debug,
			level:      DEBUG,
			message:    "Prefetch configured",
			jobID:      "",
			contractID: "",
			fields:     map[string]interface{}{"prefetch": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter("test-component", &buf)
			tt.logFunc(logger, tt.jobID, tt.contractID, tt.message, tt.fields)

			var entry LogEntry
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Failed to parse JSON log: %v\nOutput: %s", err, buf.String())
			}

			if entry.Level != tt.level {
				t.Errorf("Expected level %s, got %s", tt.level, entry.Level)
			}

			if entry.Message != tt.message {
				t.Errorf("Expected message '%s', got '%s'", tt.message, entry.Message)
			}

			if entry.JobID != tt.jobID {
				t.Errorf("Expected job ID '%s', got '%s'", tt.jobID, entry.JobID)
			}

			if entry.ContractID != tt.contractID {
				t.Errorf("Expected contract ID '%s', got '%s'", tt.contractID, entry.ContractID)
			}

			if entry.Component != "test-component" {
				t.Errorf("Expected component 'test-component', got '%s'", entry.Component)
			}

			if _, err := time.Parse(time.RFC3339Nano, entry.Timestamp); err != nil {
				t.Errorf("Invalid timestamp format: %s", entry.Timestamp)
			}

			if tt.fields != nil {
				for key, expectedValue := range tt.fields {
					actualValue, ok := entry.Fields[key]
					if !ok {
						t.Errorf("Expected field '%s' not found", key)
						continue
					}
					// JSON unmarshals numbers as float64
					switch expected := expectedValue.(type) {
					case int:
						if actual, ok := actualValue.(float64); !ok || int(actual) != expected {
							t.Errorf("Field '%s': expected %v, got %v", key, expectedValue, actualValue)
						}
					default:
						if actualValue != expectedValue {
							t.Errorf("Field '%s': expected %v, got %v", key, expectedValue, actualValue)
						}
					}
				}
			}
		})
	}
}

// TestInfoWithDuration tests the InfoWithDuration helper method
func TestInfoWithDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("test-component", &buf)
	logger.InfoWithDuration("job-123", "ctr-001", "Job completed", 123.45, map[string]interface{}{
		"job_type": "fx_var",
	})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	durationMS, ok := entry.Fields["duration_ms"]
	if !ok {
		t.Error("Expected duration_ms field not found")
	}
	if durationMS != 123.45 {
		t.Errorf("Expected duration_ms 123.45, got %v", durationMS)
	}

	jobType, ok := entry.Fields["job_type"]
	if !ok {
		t.Error("Expected job_type field not found")
	}
	if jobType != "fx_var" {
		t.Errorf("Expected job_type 'fx_var', got %v", jobType)
	}

	if entry.Level != INFO {
		t.Errorf("Expected INFO level, got %s", entry.Level)
	}
}

// TestErrorWithErr tests the ErrorWithErr helper method
func TestErrorWithErr(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		fields         map[string]interface{}
		expectError    bool
		expectedErrMsg string
	}{
		{
			name:           "with error",
			err:            &testError{msg: "broker connection refused"},
			fields:         map[string]interface{}{"queue": "risk.jobs"},
			expectError:    true,
			expectedErrMsg: "broker connection refused",
		},
		{
			name:        "without error",
			err:         nil,
			fields:      nil,
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter("test-component", &buf)
			logger.ErrorWithErr("job-123", "ctr-001", "Job failed", tt.err, tt.fields)

			var entry LogEntry
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Failed to parse JSON: %v", err)
			}

			if tt.expectError {
				errMsg, ok := entry.Fields["error"]
				if !ok {
					t.Error("Expected error field not found")
				}
				if errMsg != tt.expectedErrMsg {
					t.Errorf("Expected error message '%s', got '%v'", tt.expectedErrMsg, errMsg)
				}
			}

			if entry.Level != ERROR {
				t.Errorf("Expected ERROR level, got %s", entry.Level)
			}

			if tt.fields != nil {
				for key, expectedValue := range tt.fields {
					if actualValue, ok := entry.Fields[key]; !ok || actualValue != expectedValue {
						t.Errorf("Field '%s': expected %v, got %v", key, expectedValue, actualValue)
					}
				}
			}
		})
	}
}

// Helper type for testing errors
type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

// BenchmarkLog benchmarks the logging performance
func BenchmarkLog(b *testing.B) {
	var buf bytes.Buffer
	logger := NewWithWriter("benchmark-component", &buf)

	fields := map[string]interface{}{
		"job_type":  "fx_var",
		"queue":     "risk.jobs",
		"duration":  45.67,
		"success":   true,
		"attempt":   1,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		logger.Info("job-123", "ctr-001", "Processing job", fields)
	}
}
