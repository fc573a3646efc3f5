// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package market

import (
	"context"
	"net/http"
	"time"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/toolserver"
)

// BuildRegistry assembles the market data tool set over a store.
func BuildRegistry(store *Store) *toolserver.Registry {
	reg := toolserver.NewRegistry()

	reg.Register(toolserver.Tool{
		Name:        "get_fx_spot",
		Description: "Get the current FX spot rate for a currency pair",
		Method:      http.MethodGet,
		Path:        "/fx_spot/{currency_pair}",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			pair := contracts.CurrencyPair(toolserver.String(args, "currency_pair"))
			spot, asOf, err := store.Spot(pair)
			if err != nil {
				return nil, toolserver.Errorf(http.StatusNotFound, "%s", err)
			}
			return map[string]interface{}{
				"currency_pair": string(pair),
				"spot":          spot,
				"as_of":         asOf.Format(time.RFC3339Nano),
			}, nil
		},
	})

	reg.Register(toolserver.Tool{
		Name:        "get_fx_volatility",
		Description: "Get the annualized volatility for a currency pair",
		Method:      http.MethodGet,
		Path:        "/fx_volatility/{currency_pair}",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			pair := contracts.CurrencyPair(toolserver.String(args, "currency_pair"))
			vol, asOf, err := store.Volatility(pair)
			if err != nil {
				return nil, toolserver.Errorf(http.StatusNotFound, "%s", err)
			}
			return map[string]interface{}{
				"currency_pair": string(pair),
				"volatility":    vol,
				"as_of":         asOf.Format(time.RFC3339Nano),
			}, nil
		},
	})

	reg.Register(toolserver.Tool{
		Name:        "get_market_snapshot",
		Description: "Get a snapshot of all quoted currency pairs",
		Method:      http.MethodGet,
		Path:        "/market_snapshot",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return store.TakeSnapshot(), nil
		},
	})

	reg.Register(toolserver.Tool{
		Name:        "simulate_shock",
		Description: "Apply a percentage shock to a currency pair's spot rate",
		Method:      http.MethodPost,
		Path:        "/simulate_shock",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			pair := contracts.CurrencyPair(toolserver.String(args, "currency_pair"))
			if pair == "" {
				return nil, toolserver.Errorf(http.StatusBadRequest, "currency_pair is required")
			}
			shockPct := toolserver.Float(args, "shock_pct", 0)
			result, err := store.SimulateShock(pair, shockPct)
			if err != nil {
				return nil, toolserver.Errorf(http.StatusNotFound, "%s", err)
			}
			return result, nil
		},
	})

	reg.Register(toolserver.Tool{
		Name:        "reset_market_data",
		Description: "Reset all currency pairs to their baseline quotes",
		Method:      http.MethodPost,
		Path:        "/reset_market_data",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			store.Reset()
			return map[string]interface{}{
				"message": "Market data reset to baseline values",
				"as_of":   time.Now().UTC().Format(time.RFC3339Nano),
			}, nil
		},
	})

	return reg
}
