// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/logger"
)

// Agent task names the Foundry deployment understands.
const (
	TaskThresholdBreach = "threshold_breach_analysis"
	TaskMarketShock     = "market_shock_assessment"
	TaskPortfolioScan   = "daily_portfolio_risk_scan"
)

// AgentInvoker hands a detected event to the analysis agent.
type AgentInvoker interface {
	Invoke(ctx context.Context, task string, eventContext map[string]interface{}) error
}

// FoundryClient invokes the Foundry agent endpoint over HTTP. Agent
// calls are advisory: failures are logged and retried, never fatal to
// the orchestrator.
type FoundryClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      *logger.Logger

	// MCP endpoints passed along so the agent can call tools itself.
	contractsURL string
	riskURL      string
	marketURL    string

	maxAttempts int
	retryDelay  time.Duration
}

// FoundryOptions configures a FoundryClient.
type FoundryOptions struct {
	Endpoint     string
	APIKey       string
	ContractsURL string
	RiskURL      string
	MarketURL    string
	// Timeout bounds one agent invocation; agent runs are slow, the
	// default allows five minutes.
	Timeout time.Duration
	Logger  *logger.Logger
}

// NewFoundryClient builds an agent client.
func NewFoundryClient(opts FoundryOptions) *FoundryClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 300 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.New("orchestrator")
	}
	return &FoundryClient{
		endpoint:     opts.Endpoint,
		apiKey:       opts.APIKey,
		client:       &http.Client{Timeout: opts.Timeout},
		log:          opts.Logger,
		contractsURL: opts.ContractsURL,
		riskURL:      opts.RiskURL,
		marketURL:    opts.MarketURL,
		maxAttempts:  3,
		retryDelay:   2 * time.Second,
	}
}

// Invoke posts the task to the agent endpoint, retrying server errors
// and timeouts with backoff.
func (c *FoundryClient) Invoke(ctx context.Context, task string, eventContext map[string]interface{}) error {
	payload := map[string]interface{}{
		"task":      task,
		"context":   eventContext,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"mcp_endpoints": map[string]string{
			"contracts": c.contractsURL,
			"risk":      c.riskURL,
			"market":    c.marketURL,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal agent payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(c.retryDelay << uint(attempt-2)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.post(ctx, task, body)
		if lastErr == nil {
			return nil
		}
		var re *retryableError
		if !errors.As(lastErr, &re) {
			return lastErr
		}
		c.log.Warn("", "", "agent invocation failed, retrying", map[string]interface{}{
			"task":    task,
			"attempt": attempt,
			"error":   lastErr.Error(),
		})
	}
	return lastErr
}

func (c *FoundryClient) post(ctx context.Context, task string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &retryableError{fmt.Errorf("agent request: %w", err)}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 500:
		return &retryableError{fmt.Errorf("agent returned %d: %s", resp.StatusCode, respBody)}
	case resp.StatusCode >= 400:
		return fmt.Errorf("agent rejected %s task: %d: %s", task, resp.StatusCode, respBody)
	}

	c.log.Info("", "", "agent invoked", map[string]interface{}{
		"task":   task,
		"status": resp.StatusCode,
	})
	return nil
}

// retryableError marks failures worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }
