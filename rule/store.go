package rule

import (
	"context"

	"github.com/xraph/tariff/id"
)

type Store interface {
	CreateRule(ctx context.Context, r *Rule) error
	GetRule(ctx context.Context, ruleID id.RuleID) (*Rule, error)
	// ListActiveRules returns every active rule whose AppliesTo either
	// leaves operation type unset or equals operationType.
	ListActiveRules(ctx context.Context, operationType string) ([]*Rule, error)
	ListRules(ctx context.Context, opts ListOpts) ([]*Rule, error)
	UpdateRule(ctx context.Context, r *Rule) error
	DeleteRule(ctx context.Context, ruleID id.RuleID) error
}

type ListOpts struct {
	OperationType string
	ActiveOnly    bool
	Limit         int
	Offset        int
}
