// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package registry

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/toolserver"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := toolserver.NewServer(toolserver.Options{Name: "mcp-contracts"}, BuildRegistry(NewSeededStore()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func decodeEnvelope(t *testing.T, resp *http.Response) toolserver.CallResponse {
	t.Helper()
	defer resp.Body.Close()
	var env toolserver.CallResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestSearchRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/search?counterparty=abc")
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])

	resp, err = http.Get(ts.URL + "/search?contract_type=fx_forward")
	require.NoError(t, err)
	env = decodeEnvelope(t, resp)
	require.True(t, env.Success)
	assert.Equal(t, float64(3), env.Data.(map[string]interface{})["count"])
}

func TestGetContractRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/contracts/ctr-irs-001")
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)
	doc := env.Data.(map[string]interface{})
	assert.Equal(t, "DEF Financial", doc["counterparty"])
	assert.Equal(t, "interest_rate_swap", doc["contract_type"])

	resp, err = http.Get(ts.URL + "/contracts/ctr-nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	env = decodeEnvelope(t, resp)
	assert.False(t, env.Success)
}

func TestCreateContractRoute(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/contracts", map[string]interface{}{
		"contract_id":   "ctr-fx-200",
		"contract_type": "fx_forward",
		"counterparty":  "Acme Capital",
		"currency_pair": "AUDUSD",
		"notional_base": 250000.0,
		"strike_rate":   0.6580,
		"trade_date":    "2026-02-01",
		"maturity_date": "2026-08-01",
	})
	env := decodeEnvelope(t, resp)
	require.True(t, env.Success, env.Error)

	// The contract is now retrievable.
	getResp, err := http.Get(ts.URL + "/contracts/ctr-fx-200")
	require.NoError(t, err)
	env = decodeEnvelope(t, getResp)
	require.True(t, env.Success)

	// Duplicate IDs conflict.
	resp = postJSON(t, ts.URL+"/contracts", map[string]interface{}{
		"contract_id":   "ctr-fx-200",
		"contract_type": "fx_forward",
		"counterparty":  "Acme Capital",
		"currency_pair": "AUDUSD",
		"notional_base": 250000.0,
		"trade_date":    "2026-02-01",
		"maturity_date": "2026-08-01",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateContractValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		payload map[string]interface{}
	}{
		{
			name: "bad date",
			payload: map[string]interface{}{
				"contract_id":   "ctr-x",
				"contract_type": "fx_forward",
				"counterparty":  "Acme",
				"currency_pair": "EURUSD",
				"notional_base": 1.0,
				"trade_date":    "01/02/2026",
				"maturity_date": "2026-08-01",
			},
		},
		{
			name: "missing notional",
			payload: map[string]interface{}{
				"contract_id":   "ctr-x",
				"contract_type": "fx_forward",
				"counterparty":  "Acme",
				"currency_pair": "EURUSD",
				"trade_date":    "2026-02-01",
				"maturity_date": "2026-08-01",
			},
		},
		{
			name: "unknown type",
			payload: map[string]interface{}{
				"contract_id":   "ctr-x",
				"contract_type": "equity_option",
				"counterparty":  "Acme",
				"trade_date":    "2026-02-01",
				"maturity_date": "2026-08-01",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/contracts", tt.payload)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			env := decodeEnvelope(t, resp)
			assert.False(t, env.Success)
		})
	}
}

func TestMemoRoutes(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/contracts/ctr-fx-002/memos", map[string]interface{}{
		"memo_title":   "DV01 review",
		"memo_content": "Position within limits",
		"risk_metrics": map[string]interface{}{"dv01": 1200.0},
	})
	env := decodeEnvelope(t, resp)
	require.True(t, env.Success, env.Error)
	memo := env.Data.(map[string]interface{})["memo"].(map[string]interface{})
	assert.Equal(t, "ctr-fx-002", memo["contract_id"])
	assert.NotEmpty(t, memo["memo_id"])

	resp, err := http.Get(ts.URL + "/contracts/ctr-fx-002/memos")
	require.NoError(t, err)
	env = decodeEnvelope(t, resp)
	require.True(t, env.Success)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])

	// Memo on the contract stamps its last memo date.
	resp, err = http.Get(ts.URL + "/contracts/ctr-fx-002")
	require.NoError(t, err)
	env = decodeEnvelope(t, resp)
	doc := env.Data.(map[string]interface{})
	assert.NotEmpty(t, doc["last_risk_memo_date"])
}

func TestMemoValidation(t *testing.T) {
	ts := newTestServer(t)

	// Missing content.
	resp := postJSON(t, ts.URL+"/contracts/ctr-fx-001/memos", map[string]interface{}{
		"memo_title": "incomplete",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Unknown contract.
	resp = postJSON(t, ts.URL+"/contracts/ctr-nope/memos", map[string]interface{}{
		"memo_title":   "t",
		"memo_content": "c",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/contracts/ctr-nope/memos")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestMCPCallListsAndInvokes(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/mcp/tools")
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)
	assert.Equal(t, float64(6), env.Data.(map[string]interface{})["count"])

	resp = postJSON(t, ts.URL+"/mcp/call", toolserver.CallRequest{
		Tool:      "get_contract",
		Arguments: map[string]interface{}{"contract_id": "ctr-fx-003"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	env = decodeEnvelope(t, resp)
	require.True(t, env.Success)
	assert.Equal(t, "Global Traders", env.Data.(map[string]interface{})["counterparty"])
}
