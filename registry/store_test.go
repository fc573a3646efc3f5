// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
)

func TestSeededBook(t *testing.T) {
	store := NewSeededStore()

	all, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 4)

	c, err := store.Get(context.Background(), "ctr-fx-001")
	require.NoError(t, err)
	assert.Equal(t, "ABC Bank", c.Counterparty)
	assert.Equal(t, contracts.EURUSD, c.CurrencyPair)
	assert.Equal(t, 1.0850, c.StrikeRate)

	// Every seeded contract passes validation.
	for _, c := range all {
		assert.NoError(t, c.Validate(), c.ContractID)
	}
}

func TestGetNotFound(t *testing.T) {
	store := NewSeededStore()

	_, err := store.Get(context.Background(), "ctr-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateContract(t *testing.T) {
	store := NewMemoryStore()
	c := contracts.Contract{
		ContractID:   "ctr-fx-100",
		ContractType: contracts.ContractTypeFXForward,
		Counterparty: "New Bank",
		CurrencyPair: contracts.USDCHF,
		NotionalBase: 750_000,
		TradeDate:    contracts.NewDate(2026, time.January, 5),
		MaturityDate: contracts.NewDate(2026, time.July, 5),
	}

	require.NoError(t, store.Create(context.Background(), &c))
	assert.ErrorIs(t, store.Create(context.Background(), &c), ErrAlreadyExists)

	invalid := c
	invalid.ContractID = "ctr-fx-101"
	invalid.NotionalBase = 0
	assert.Error(t, store.Create(context.Background(), &invalid))
}

func TestSearchFilters(t *testing.T) {
	store := NewSeededStore()
	ctx := context.Background()

	tests := []struct {
		name    string
		filter  SearchFilter
		wantIDs []string
	}{
		{
			name:    "by type",
			filter:  SearchFilter{ContractType: contracts.ContractTypeIRS},
			wantIDs: []string{"ctr-irs-001"},
		},
		{
			name:    "by counterparty substring case-insensitive",
			filter:  SearchFilter{Counterparty: "abc"},
			wantIDs: []string{"ctr-fx-001"},
		},
		{
			name:    "by currency pair",
			filter:  SearchFilter{CurrencyPair: contracts.GBPUSD},
			wantIDs: []string{"ctr-fx-002"},
		},
		{
			name:    "combined filters",
			filter:  SearchFilter{ContractType: contracts.ContractTypeFXForward, CurrencyPair: contracts.USDJPY},
			wantIDs: []string{"ctr-fx-003"},
		},
		{
			name:    "no matches",
			filter:  SearchFilter{Counterparty: "nobody"},
			wantIDs: nil,
		},
		{
			name:    "empty filter matches all",
			filter:  SearchFilter{},
			wantIDs: []string{"ctr-fx-001", "ctr-fx-002", "ctr-fx-003", "ctr-irs-001"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := store.Search(ctx, tt.filter)
			require.NoError(t, err)
			var ids []string
			for _, c := range found {
				ids = append(ids, c.ContractID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestAddMemoStampsContract(t *testing.T) {
	store := NewSeededStore()
	ctx := context.Background()

	before, err := store.Get(ctx, "ctr-fx-001")
	require.NoError(t, err)
	assert.Nil(t, before.LastRiskMemoDate)

	memo := &contracts.RiskMemo{
		MemoID:     NewMemoID(),
		ContractID: "ctr-fx-001",
		Title:      "VaR breach",
		Content:    "FX VaR exceeded the configured threshold",
		RiskMetrics: map[string]interface{}{
			"var": 125000.0,
		},
		BreachAlert: true,
	}
	require.NoError(t, store.AddMemo(ctx, memo))
	assert.False(t, memo.CreatedAt.IsZero())

	after, err := store.Get(ctx, "ctr-fx-001")
	require.NoError(t, err)
	require.NotNil(t, after.LastRiskMemoDate)
	assert.Equal(t, contracts.Today().String(), after.LastRiskMemoDate.String())

	memos, err := store.Memos(ctx, "ctr-fx-001")
	require.NoError(t, err)
	require.Len(t, memos, 1)
	assert.True(t, memos[0].BreachAlert)
}

func TestMemoForMissingContract(t *testing.T) {
	store := NewSeededStore()

	err := store.AddMemo(context.Background(), &contracts.RiskMemo{
		MemoID:     NewMemoID(),
		ContractID: "ctr-missing",
		Title:      "t",
		Content:    "c",
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Memos(context.Background(), "ctr-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoIDFormat(t *testing.T) {
	id := NewMemoID()
	assert.Len(t, id, len("memo-")+12)
	assert.NotEqual(t, id, NewMemoID())
}
