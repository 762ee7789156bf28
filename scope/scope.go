// Package scope implements specificity matching over the four override
// dimensions shared by business settings and pricing rules: outlet,
// cylinder type, customer tier and operation type.
//
// There is no override graph. A candidate either conflicts with the request
// on some dimension (NoMatch) or matches with a specificity equal to the
// number of dimensions it pins down. Ties are broken by priority and then by
// ID, which gives a total order.
package scope

import (
	"github.com/xraph/tariff/id"
)

// NoMatch is returned by Score when a set dimension disagrees with the
// request context.
const NoMatch = -1

// Dimension names, used in error details and cache signatures.
const (
	DimOutlet        = "outletId"
	DimCylinderType  = "cylinderType"
	DimCustomerTier  = "customerTier"
	DimOperationType = "operationType"
)

// Scope narrows where a setting or rule applies. An empty field is unset
// and compatible with any context value.
type Scope struct {
	OutletID      string `json:"outlet_id,omitempty" yaml:"outletId,omitempty" validate:"max=64"`
	CylinderType  string `json:"cylinder_type,omitempty" yaml:"cylinderType,omitempty" validate:"max=64"`
	CustomerTier  string `json:"customer_tier,omitempty" yaml:"customerTier,omitempty" validate:"max=64"`
	OperationType string `json:"operation_type,omitempty" yaml:"operationType,omitempty" validate:"max=64"`
}

// Context is the request side of a match: the concrete values a caller
// resolves against. Empty fields mean the caller has no value for that
// dimension, so only candidates leaving it unset can match.
type Context struct {
	OutletID      string `json:"outlet_id,omitempty"`
	CylinderType  string `json:"cylinder_type,omitempty"`
	CustomerTier  string `json:"customer_tier,omitempty"`
	OperationType string `json:"operation_type,omitempty"`
}

// IsGlobal reports whether no dimension is set.
func (s Scope) IsGlobal() bool {
	return s == Scope{}
}

// Specificity returns the number of set dimensions.
func (s Scope) Specificity() int {
	n := 0
	for _, v := range s.values() {
		if v != "" {
			n++
		}
	}
	return n
}

func (s Scope) values() [4]string {
	return [4]string{s.OutletID, s.CylinderType, s.CustomerTier, s.OperationType}
}

func (c Context) values() [4]string {
	return [4]string{c.OutletID, c.CylinderType, c.CustomerTier, c.OperationType}
}

// Score returns the specificity of candidate against ctx, or NoMatch.
func Score(candidate Scope, ctx Context) int {
	want := candidate.values()
	have := ctx.values()

	score := 0
	for i := range want {
		if want[i] == "" {
			continue
		}
		if want[i] != have[i] {
			return NoMatch
		}
		score++
	}
	return score
}

// Rank is the sort key of a matched candidate.
type Rank struct {
	Specificity int
	Priority    int
	ID          id.ID
}

// Outranks reports whether r sorts before other under
// (specificity desc, priority desc, id desc).
func (r Rank) Outranks(other Rank) bool {
	if r.Specificity != other.Specificity {
		return r.Specificity > other.Specificity
	}
	if r.Priority != other.Priority {
		return r.Priority > other.Priority
	}
	return r.ID.Compare(other.ID) > 0
}
