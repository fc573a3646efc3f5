// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/storage"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/toolserver"
)

// NewMemoID mints a memo identifier.
func NewMemoID() string {
	return "memo-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// BuildRegistry assembles the contract registry tool set over a store.
func BuildRegistry(store Store) *toolserver.Registry {
	reg := toolserver.NewRegistry()

	reg.Register(toolserver.Tool{
		Name:        "search_contracts",
		Description: "Search contracts by type, counterparty, or currency pair",
		Method:      http.MethodGet,
		Path:        "/search",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			filter := SearchFilter{
				ContractType: contracts.ContractType(toolserver.String(args, "contract_type")),
				Counterparty: toolserver.String(args, "counterparty"),
				CurrencyPair: contracts.CurrencyPair(toolserver.String(args, "currency_pair")),
			}
			found, err := store.Search(ctx, filter)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"contracts": found,
				"count":     len(found),
			}, nil
		},
	})

	reg.Register(toolserver.Tool{
		Name:        "get_contract",
		Description: "Get a contract by ID",
		Method:      http.MethodGet,
		Path:        "/contracts/{contract_id}",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			id := toolserver.String(args, "contract_id")
			if id == "" {
				return nil, toolserver.Errorf(http.StatusBadRequest, "contract_id is required")
			}
			c, err := store.Get(ctx, id)
			if errors.Is(err, ErrNotFound) {
				return nil, toolserver.Errorf(http.StatusNotFound, "contract %s not found", id)
			}
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	})

	reg.Register(toolserver.Tool{
		Name:        "create_contract",
		Description: "Create a new contract",
		Method:      http.MethodPost,
		Path:        "/contracts",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			c, err := contractFromArgs(args)
			if err != nil {
				return nil, toolserver.Errorf(http.StatusBadRequest, "%s", err)
			}
			err = store.Create(ctx, c)
			if errors.Is(err, ErrAlreadyExists) {
				return nil, toolserver.Errorf(http.StatusConflict, "contract %s already exists", c.ContractID)
			}
			if err != nil {
				var se *storage.StoreError
				if errors.As(err, &se) {
					return nil, err
				}
				// Anything else is a validation failure.
				return nil, toolserver.Errorf(http.StatusBadRequest, "%s", err)
			}
			return map[string]interface{}{
				"message":  "Contract created successfully",
				"contract": c,
			}, nil
		},
	})

	reg.Register(toolserver.Tool{
		Name:        "list_all_contracts",
		Description: "List every contract in the registry",
		Method:      http.MethodGet,
		Path:        "/contracts",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			found, err := store.List(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"contracts": found,
				"count":     len(found),
			}, nil
		},
	})

	reg.Register(toolserver.Tool{
		Name:        "write_risk_memo",
		Description: "Attach a risk memo to a contract",
		Method:      http.MethodPost,
		Path:        "/contracts/{contract_id}/memos",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			id := toolserver.String(args, "contract_id")
			title := toolserver.String(args, "memo_title")
			content := toolserver.String(args, "memo_content")
			if id == "" || title == "" || content == "" {
				return nil, toolserver.Errorf(http.StatusBadRequest, "contract_id, memo_title, and memo_content are required")
			}

			memo := &contracts.RiskMemo{
				MemoID:      NewMemoID(),
				ContractID:  id,
				Title:       title,
				Content:     content,
				BreachAlert: toolserver.Bool(args, "breach_alert", false),
			}
			if metrics, ok := args["risk_metrics"].(map[string]interface{}); ok {
				memo.RiskMetrics = metrics
			}

			err := store.AddMemo(ctx, memo)
			if errors.Is(err, ErrNotFound) {
				return nil, toolserver.Errorf(http.StatusNotFound, "contract %s not found", id)
			}
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"message": "Risk memo written successfully",
				"memo":    memo,
			}, nil
		},
	})

	reg.Register(toolserver.Tool{
		Name:        "get_risk_memos",
		Description: "List the risk memos attached to a contract",
		Method:      http.MethodGet,
		Path:        "/contracts/{contract_id}/memos",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			id := toolserver.String(args, "contract_id")
			if id == "" {
				return nil, toolserver.Errorf(http.StatusBadRequest, "contract_id is required")
			}
			memos, err := store.Memos(ctx, id)
			if errors.Is(err, ErrNotFound) {
				return nil, toolserver.Errorf(http.StatusNotFound, "contract %s not found", id)
			}
			if err != nil {
				return nil, err
			}
			if memos == nil {
				memos = []contracts.RiskMemo{}
			}
			return map[string]interface{}{
				"contract_id": id,
				"memos":       memos,
				"count":       len(memos),
			}, nil
		},
	})

	return reg
}

// contractFromArgs builds a contract from tool arguments.
func contractFromArgs(args map[string]interface{}) (*contracts.Contract, error) {
	c := &contracts.Contract{
		ContractID:    toolserver.String(args, "contract_id"),
		ContractType:  contracts.ContractType(toolserver.String(args, "contract_type")),
		Counterparty:  toolserver.String(args, "counterparty"),
		CurrencyPair:  contracts.CurrencyPair(toolserver.String(args, "currency_pair")),
		NotionalBase:  toolserver.Float(args, "notional_base", 0),
		NotionalQuote: toolserver.Float(args, "notional_quote", 0),
		StrikeRate:    toolserver.Float(args, "strike_rate", 0),
		FixedRate:     toolserver.Float(args, "fixed_rate", 0),
		Notional:      toolserver.Float(args, "notional", 0),
		Currency:      toolserver.String(args, "currency"),
	}

	trade, err := contracts.ParseDate(toolserver.String(args, "trade_date"))
	if err != nil {
		return nil, fmt.Errorf("trade_date: %w", err)
	}
	maturity, err := contracts.ParseDate(toolserver.String(args, "maturity_date"))
	if err != nil {
		return nil, fmt.Errorf("maturity_date: %w", err)
	}
	c.TradeDate = trade
	c.MaturityDate = maturity
	return c, nil
}
