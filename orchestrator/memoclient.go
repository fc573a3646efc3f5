// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPMemoWriter records breach memos through the mcp-contracts server.
type HTTPMemoWriter struct {
	baseURL string
	client  *http.Client
}

// NewHTTPMemoWriter points at the contracts tool server.
func NewHTTPMemoWriter(baseURL string) *HTTPMemoWriter {
	return &HTTPMemoWriter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *HTTPMemoWriter) WriteBreachMemo(ctx context.Context, contractID, title, content string, metrics map[string]interface{}) error {
	payload := map[string]interface{}{
		"memo_title":   title,
		"memo_content": content,
		"risk_metrics": metrics,
		"breach_alert": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal memo: %w", err)
	}

	url := fmt.Sprintf("%s/contracts/%s/memos", w.baseURL, contractID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build memo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("write memo: %w", err)
	}
	defer resp.Body.Close()

	var env struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode memo response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("memo rejected for %s: %s", contractID, env.Error)
	}
	return nil
}
