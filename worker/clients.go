// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
)

// envelope mirrors the tool servers' response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	if !env.Success {
		return fmt.Errorf("%s: %s", url, env.Error)
	}
	return json.Unmarshal(env.Data, out)
}

// HTTPContractSource resolves contracts from the mcp-contracts server.
type HTTPContractSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPContractSource points at the contracts tool server.
func NewHTTPContractSource(baseURL string) *HTTPContractSource {
	return &HTTPContractSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPContractSource) GetContract(ctx context.Context, contractID string) (*contracts.Contract, error) {
	var c contracts.Contract
	if err := getJSON(ctx, s.client, s.baseURL+"/contracts/"+contractID, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// HTTPMarketSource resolves quotes from the mcp-market server.
type HTTPMarketSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPMarketSource points at the market data tool server.
func NewHTTPMarketSource(baseURL string) *HTTPMarketSource {
	return &HTTPMarketSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPMarketSource) Spot(ctx context.Context, pair contracts.CurrencyPair) (float64, error) {
	var out struct {
		Spot float64 `json:"spot"`
	}
	if err := getJSON(ctx, s.client, s.baseURL+"/fx_spot/"+string(pair), &out); err != nil {
		return 0, err
	}
	return out.Spot, nil
}

func (s *HTTPMarketSource) Volatility(ctx context.Context, pair contracts.CurrencyPair) (float64, error) {
	var out struct {
		Volatility float64 `json:"volatility"`
	}
	if err := getJSON(ctx, s.client, s.baseURL+"/fx_volatility/"+string(pair), &out); err != nil {
		return 0, err
	}
	return out.Volatility, nil
}

// StaticContractSource serves a fixed contract set for local mode.
type StaticContractSource map[string]contracts.Contract

func (s StaticContractSource) GetContract(ctx context.Context, contractID string) (*contracts.Contract, error) {
	c, ok := s[contractID]
	if !ok {
		return nil, fmt.Errorf("contract %s not found", contractID)
	}
	return &c, nil
}

// StaticMarketSource serves fixed quotes for local mode.
type StaticMarketSource struct {
	Spots map[contracts.CurrencyPair]float64
	Vols  map[contracts.CurrencyPair]float64
}

func (s StaticMarketSource) Spot(ctx context.Context, pair contracts.CurrencyPair) (float64, error) {
	v, ok := s.Spots[pair]
	if !ok {
		return 0, fmt.Errorf("no spot for %s", pair)
	}
	return v, nil
}

func (s StaticMarketSource) Volatility(ctx context.Context, pair contracts.CurrencyPair) (float64, error) {
	v, ok := s.Vols[pair]
	if !ok {
		return 0, fmt.Errorf("no volatility for %s", pair)
	}
	return v, nil
}
