// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package registry

import (
	"context"
	"fmt"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
)

// ErrNotFound is returned when a contract does not exist.
var ErrNotFound = fmt.Errorf("contract not found")

// ErrAlreadyExists is returned when creating a contract whose ID is taken.
var ErrAlreadyExists = fmt.Errorf("contract already exists")

// SearchFilter narrows a contract search. Zero-value fields match
// everything; Counterparty is a case-insensitive substring match.
type SearchFilter struct {
	ContractType contracts.ContractType
	Counterparty string
	CurrencyPair contracts.CurrencyPair
}

// Store is the contract book plus its risk memos. Writing a memo also
// stamps the contract's LastRiskMemoDate.
type Store interface {
	Get(ctx context.Context, contractID string) (*contracts.Contract, error)
	Create(ctx context.Context, c *contracts.Contract) error
	Search(ctx context.Context, filter SearchFilter) ([]contracts.Contract, error)
	List(ctx context.Context) ([]contracts.Contract, error)

	AddMemo(ctx context.Context, memo *contracts.RiskMemo) error
	Memos(ctx context.Context, contractID string) ([]contracts.RiskMemo, error)
}
