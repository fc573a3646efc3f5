// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
)

// MemoryStore is an in-process Store for tests and local mode.
type MemoryStore struct {
	mu    sync.RWMutex
	book  map[string]contracts.Contract
	memos map[string][]contracts.RiskMemo
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		book:  make(map[string]contracts.Contract),
		memos: make(map[string][]contracts.RiskMemo),
	}
}

// SampleBook returns the seeded demo contracts.
func SampleBook() []contracts.Contract {
	today := contracts.Today()
	day := func(offset int) contracts.Date {
		return contracts.Date{Time: today.AddDate(0, 0, offset)}
	}
	return []contracts.Contract{
		{
			ContractID:    "ctr-fx-001",
			ContractType:  contracts.ContractTypeFXForward,
			Counterparty:  "ABC Bank",
			CurrencyPair:  contracts.EURUSD,
			NotionalBase:  1_000_000,
			NotionalQuote: 1_085_000,
			StrikeRate:    1.0850,
			TradeDate:     day(-30),
			MaturityDate:  day(150),
		},
		{
			ContractID:    "ctr-fx-002",
			ContractType:  contracts.ContractTypeFXForward,
			Counterparty:  "XYZ Corp",
			CurrencyPair:  contracts.GBPUSD,
			NotionalBase:  500_000,
			NotionalQuote: 632_500,
			StrikeRate:    1.2650,
			TradeDate:     day(-20),
			MaturityDate:  day(140),
		},
		{
			ContractID:   "ctr-irs-001",
			ContractType: contracts.ContractTypeIRS,
			Counterparty: "DEF Financial",
			FixedRate:    0.045,
			Notional:     5_000_000,
			Currency:     "USD",
			TradeDate:    day(-60),
			MaturityDate: day(1800),
		},
		{
			ContractID:    "ctr-fx-003",
			ContractType:  contracts.ContractTypeFXForward,
			Counterparty:  "Global Traders",
			CurrencyPair:  contracts.USDJPY,
			NotionalBase:  2_000_000,
			NotionalQuote: 297_000_000,
			StrikeRate:    148.50,
			TradeDate:     day(-10),
			MaturityDate:  day(90),
		},
	}
}

// NewSeededStore creates an in-memory store preloaded with the sample book.
func NewSeededStore() *MemoryStore {
	s := NewMemoryStore()
	for _, c := range SampleBook() {
		s.book[c.ContractID] = c
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, contractID string) (*contracts.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.book[contractID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) Create(ctx context.Context, c *contracts.Contract) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.book[c.ContractID]; exists {
		return ErrAlreadyExists
	}
	s.book[c.ContractID] = *c
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, filter SearchFilter) ([]contracts.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []contracts.Contract
	for _, c := range s.book {
		if !matches(c, filter) {
			continue
		}
		out = append(out, c)
	}
	sortByID(out)
	return out, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]contracts.Contract, error) {
	return s.Search(ctx, SearchFilter{})
}

func (s *MemoryStore) AddMemo(ctx context.Context, memo *contracts.RiskMemo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.book[memo.ContractID]
	if !ok {
		return ErrNotFound
	}
	if memo.CreatedAt.IsZero() {
		memo.CreatedAt = time.Now().UTC()
	}
	s.memos[memo.ContractID] = append(s.memos[memo.ContractID], *memo)

	today := contracts.Today()
	c.LastRiskMemoDate = &today
	s.book[memo.ContractID] = c
	return nil
}

func (s *MemoryStore) Memos(ctx context.Context, contractID string) ([]contracts.RiskMemo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.book[contractID]; !ok {
		return nil, ErrNotFound
	}
	memos := s.memos[contractID]
	out := make([]contracts.RiskMemo, len(memos))
	copy(out, memos)
	return out, nil
}

func matches(c contracts.Contract, f SearchFilter) bool {
	if f.ContractType != "" && c.ContractType != f.ContractType {
		return false
	}
	if f.Counterparty != "" && !strings.Contains(strings.ToLower(c.Counterparty), strings.ToLower(f.Counterparty)) {
		return false
	}
	if f.CurrencyPair != "" && c.CurrencyPair != f.CurrencyPair {
		return false
	}
	return true
}

func sortByID(cs []contracts.Contract) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ContractID < cs[j].ContractID })
}
