// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package contracts

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ContractType identifies the kind of financial contract.
type ContractType string

const (
	ContractTypeFXForward ContractType = "fx_forward"
	ContractTypeFXSwap    ContractType = "fx_swap"
	ContractTypeIRS       ContractType = "interest_rate_swap"
	ContractTypeXCCY      ContractType = "cross_currency_swap"
)

// Valid reports whether the contract type is one of the supported kinds.
func (t ContractType) Valid() bool {
	switch t {
	case ContractTypeFXForward, ContractTypeFXSwap, ContractTypeIRS, ContractTypeXCCY:
		return true
	}
	return false
}

// IsFX reports whether the contract type carries FX exposure fields.
func (t ContractType) IsFX() bool {
	return t == ContractTypeFXForward || t == ContractTypeFXSwap || t == ContractTypeXCCY
}

// CurrencyPair is a supported FX currency pair.
type CurrencyPair string

const (
	EURUSD CurrencyPair = "EURUSD"
	GBPUSD CurrencyPair = "GBPUSD"
	USDJPY CurrencyPair = "USDJPY"
	AUDUSD CurrencyPair = "AUDUSD"
	USDCAD CurrencyPair = "USDCAD"
	USDCHF CurrencyPair = "USDCHF"
)

// SupportedPairs lists every currency pair the platform quotes.
func SupportedPairs() []CurrencyPair {
	return []CurrencyPair{EURUSD, GBPUSD, USDJPY, AUDUSD, USDCAD, USDCHF}
}

// Valid reports whether the pair is quoted by the platform.
func (p CurrencyPair) Valid() bool {
	for _, q := range SupportedPairs() {
		if p == q {
			return true
		}
	}
	return false
}

// dateLayout is the wire format for calendar dates (no time component).
const dateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD, matching the contract
// registry's document format.
type Date struct {
	time.Time
}

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current UTC calendar date.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

// String returns the YYYY-MM-DD form.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalBSONValue stores the date as its YYYY-MM-DD string so Mongo
// documents match the JSON wire format.
func (d Date) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(d.String())
}

// UnmarshalBSONValue decodes a YYYY-MM-DD string.
func (d *Date) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var s string
	if err := bson.UnmarshalValue(t, data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Contract is a financial contract with risk exposures. FX contracts carry
// the pair/notional/strike fields; interest-rate contracts carry the
// fixed-rate/notional/currency fields.
type Contract struct {
	ContractID   string       `json:"contract_id" bson:"contract_id"`
	ContractType ContractType `json:"contract_type" bson:"contract_type"`
	Counterparty string       `json:"counterparty" bson:"counterparty"`

	// FX specific
	CurrencyPair  CurrencyPair `json:"currency_pair,omitempty" bson:"currency_pair,omitempty"`
	NotionalBase  float64      `json:"notional_base,omitempty" bson:"notional_base,omitempty"`
	NotionalQuote float64      `json:"notional_quote,omitempty" bson:"notional_quote,omitempty"`
	StrikeRate    float64      `json:"strike_rate,omitempty" bson:"strike_rate,omitempty"`

	// IR specific
	FixedRate float64 `json:"fixed_rate,omitempty" bson:"fixed_rate,omitempty"`
	Notional  float64 `json:"notional,omitempty" bson:"notional,omitempty"`
	Currency  string  `json:"currency,omitempty" bson:"currency,omitempty"`

	TradeDate    Date `json:"trade_date" bson:"trade_date"`
	MaturityDate Date `json:"maturity_date" bson:"maturity_date"`

	// Set when a risk memo is written for this contract.
	LastRiskMemoDate *Date `json:"last_risk_memo_date,omitempty" bson:"last_risk_memo_date,omitempty"`
}

// Validate checks structural invariants before a contract is accepted into
// the registry.
func (c *Contract) Validate() error {
	if strings.TrimSpace(c.ContractID) == "" {
		return fmt.Errorf("contract_id is required")
	}
	if !c.ContractType.Valid() {
		return fmt.Errorf("unknown contract_type %q", c.ContractType)
	}
	if strings.TrimSpace(c.Counterparty) == "" {
		return fmt.Errorf("counterparty is required")
	}
	if c.TradeDate.IsZero() || c.MaturityDate.IsZero() {
		return fmt.Errorf("trade_date and maturity_date are required")
	}
	if !c.MaturityDate.After(c.TradeDate.Time) {
		return fmt.Errorf("maturity_date %s must be after trade_date %s", c.MaturityDate, c.TradeDate)
	}
	if c.ContractType.IsFX() {
		if !c.CurrencyPair.Valid() {
			return fmt.Errorf("currency_pair %q is not supported", c.CurrencyPair)
		}
		if c.NotionalBase <= 0 {
			return fmt.Errorf("notional_base must be positive for %s contracts", c.ContractType)
		}
	}
	if c.ContractType == ContractTypeIRS {
		if c.Notional <= 0 {
			return fmt.Errorf("notional must be positive for %s contracts", c.ContractType)
		}
		if c.FixedRate == 0 {
			return fmt.Errorf("fixed_rate is required for %s contracts", c.ContractType)
		}
	}
	return nil
}
