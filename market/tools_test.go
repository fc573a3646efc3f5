// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package market

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/toolserver"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := NewStoreWithSeed(99)
	srv := toolserver.NewServer(toolserver.Options{Name: "mcp-market"}, BuildRegistry(store))
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

func TestGetFXSpotRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/fx_spot/EURUSD")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "EURUSD", data["currency_pair"])
	assert.InDelta(t, 1.0850, data["spot"].(float64), 1.0850*0.0011)
}

func TestGetFXSpotUnknownPair(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/fx_spot/EURGBP")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "EURGBP")
}

func TestGetFXVolatilityRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/fx_volatility/USDJPY")
	require.NoError(t, err)

	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, 0.10, data["volatility"].(float64))
}

func TestMarketSnapshotRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/market_snapshot")
	require.NoError(t, err)

	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)
	data := env.Data.(map[string]interface{})
	pairs := data["pairs"].(map[string]interface{})
	assert.Len(t, pairs, 6)
}

func TestSimulateShockRoute(t *testing.T) {
	ts := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{
		"currency_pair": "EURUSD",
		"shock_pct":     -2.5,
	})
	resp, err := http.Post(ts.URL+"/simulate_shock", "application/json", bytes.NewReader(body))
	require.NoError(t, err)

	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "EURUSD", data["currency_pair"])
	assert.InDelta(t, 1.0850*0.975, data["shocked_spot"].(float64), 1e-6)

	// Spot reads now reflect the shocked rate.
	resp, err = http.Get(ts.URL + "/fx_spot/EURUSD")
	require.NoError(t, err)
	env = decodeEnvelope(t, resp)
	require.True(t, env.Success)
	spot := env.Data.(map[string]interface{})["spot"].(float64)
	assert.InDelta(t, 1.0850*0.975, spot, 1.0850*0.975*0.0011)
}

func TestSimulateShockMissingPair(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/simulate_shock", "application/json", bytes.NewReader([]byte(`{"shock_pct": 1.0}`)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.False(t, env.Success)
}

func TestResetRoute(t *testing.T) {
	ts := newTestServer(t)

	body := []byte(`{"currency_pair": "GBPUSD", "shock_pct": 10}`)
	resp, err := http.Post(ts.URL+"/simulate_shock", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Post(ts.URL+"/reset_market_data", "application/json", nil)
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)

	resp, err = http.Get(ts.URL + "/fx_spot/GBPUSD")
	require.NoError(t, err)
	env = decodeEnvelope(t, resp)
	spot := env.Data.(map[string]interface{})["spot"].(float64)
	assert.InDelta(t, 1.2650, spot, 1.2650*0.0011)
}

func TestMCPCallEnvelope(t *testing.T) {
	ts := newTestServer(t)

	call := func(tool string, args map[string]interface{}) toolserver.CallResponse {
		body, _ := json.Marshal(toolserver.CallRequest{Tool: tool, Arguments: args})
		resp, err := http.Post(ts.URL+"/mcp/call", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		return decodeEnvelope(t, resp)
	}

	env := call("get_fx_spot", map[string]interface{}{"currency_pair": "USDCAD"})
	require.True(t, env.Success)
	assert.Equal(t, "USDCAD", env.Data.(map[string]interface{})["currency_pair"])

	// Tool failures are reported in-band.
	env = call("get_fx_spot", map[string]interface{}{"currency_pair": "NOPE"})
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
}

func TestListToolsRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/mcp/tools")
	require.NoError(t, err)

	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, float64(5), data["count"].(float64))

	names := map[string]bool{}
	for _, raw := range data["tools"].([]interface{}) {
		info := raw.(map[string]interface{})
		names[fmt.Sprint(info["name"])] = true
	}
	for _, want := range []string{"get_fx_spot", "get_fx_volatility", "get_market_snapshot", "simulate_shock", "reset_market_data"} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}
