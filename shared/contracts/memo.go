// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package contracts

import "time"

// RiskMemo is a written risk assessment attached to a contract. Memos with
// BreachAlert set record threshold violations detected by the orchestrator.
type RiskMemo struct {
	MemoID      string                 `json:"memo_id" bson:"memo_id"`
	ContractID  string                 `json:"contract_id" bson:"contract_id"`
	Title       string                 `json:"title" bson:"title"`
	Content     string                 `json:"content" bson:"content"`
	RiskMetrics map[string]interface{} `json:"risk_metrics,omitempty" bson:"risk_metrics,omitempty"`
	BreachAlert bool                   `json:"breach_alert" bson:"breach_alert"`
	CreatedAt   time.Time              `json:"created_at" bson:"created_at"`
}
