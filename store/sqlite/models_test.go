package sqlite

import (
	"testing"
	"time"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/rule"
)

func TestAuditSnapshotsAsText(t *testing.T) {
	e := &audit.Entry{
		ID:         id.NewAuditID(),
		EntityType: audit.EntityRule,
		EntityID:   id.NewRuleID(),
		Action:     audit.ActionCreate,
		ActorID:    "ops",
		After:      []byte(`{"rule_name":"refill"}`),
		Timestamp:  time.Now().UTC(),
	}

	m := toAuditModel(e)
	if m.Before != nil {
		t.Errorf("before = %q, want NULL", *m.Before)
	}
	if m.After == nil || *m.After != `{"rule_name":"refill"}` {
		t.Errorf("after = %v", m.After)
	}

	got, err := fromAuditModel(m)
	if err != nil {
		t.Fatal(err)
	}
	if got.Before != nil || string(got.After) != string(e.After) {
		t.Errorf("entry = %+v", got)
	}
}

func TestRuleActionsAsText(t *testing.T) {
	r := &rule.Rule{
		ID:         id.NewRuleID(),
		CategoryID: id.NewCategoryID(),
		Name:       "vat",
		Actions:    []rule.Action{{Type: rule.ActionApplyTax, Value: "7.5", TaxType: rule.TaxInclusive}},
	}
	m, err := toRuleModel(r)
	if err != nil {
		t.Fatal(err)
	}
	got, err := fromRuleModel(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Actions) != 1 || got.Actions[0].TaxType != rule.TaxInclusive {
		t.Errorf("actions = %+v", got.Actions)
	}
	if len(got.Conditions) != 0 {
		t.Errorf("conditions = %+v", got.Conditions)
	}
}
