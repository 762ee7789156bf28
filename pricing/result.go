package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/types"
)

// Source tells where a price came from.
type Source string

const (
	SourceRule     Source = "rule"
	SourceFallback Source = "fallback"
)

// Step is one line of a price breakdown. Amount is the change the step made
// to the subtotal (or, for tax steps, the tax computed); Subtotal and
// TaxAmount are the running totals after it.
type Step struct {
	Action    rule.ActionType `json:"action"`
	Label     string          `json:"label,omitempty"`
	Value     decimal.Decimal `json:"value"`
	ValueFrom string          `json:"value_from,omitempty"`
	Amount    types.Money     `json:"amount"`
	Subtotal  types.Money     `json:"subtotal"`
	TaxAmount types.Money     `json:"tax_amount"`
}

// Result is an evaluated price. TotalAmount equals Subtotal + TaxAmount +
// DepositAmount.
type Result struct {
	OperationType string          `json:"operation_type"`
	Subtotal      types.Money     `json:"subtotal"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TaxType       rule.TaxType    `json:"tax_type,omitempty"`
	TaxAmount     types.Money     `json:"tax_amount"`
	DepositAmount types.Money     `json:"deposit_amount"`
	TotalAmount   types.Money     `json:"total_amount"`
	Breakdown     []Step          `json:"breakdown"`
	RuleID        id.RuleID       `json:"rule_id"`
	RuleName      string          `json:"rule_name,omitempty"`
	Source        Source          `json:"source"`
	Currency      string          `json:"currency"`
	EvaluatedAt   time.Time       `json:"evaluated_at"`
}

// BulkResult is the outcome of a successful batch. Lines are in request
// order.
type BulkResult struct {
	Lines         []*Result   `json:"lines"`
	TotalSubtotal types.Money `json:"total_subtotal"`
	TotalTax      types.Money `json:"total_tax"`
	TotalDeposit  types.Money `json:"total_deposit"`
	TotalAmount   types.Money `json:"total_amount"`
}
