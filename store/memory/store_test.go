package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/setting"
)

func newSetting(key string, sc scope.Scope, active bool) *setting.Setting {
	return &setting.Setting{
		ID:         id.NewSettingID(),
		CategoryID: id.NewCategoryID(),
		Key:        key,
		Value:      "1",
		DataType:   setting.TypeNumber,
		Scope:      sc,
		Priority:   1,
		IsActive:   active,
	}
}

func TestCategoryLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	c := &setting.Category{ID: id.NewCategoryID(), Name: "pricing", IsActive: true}
	if err := s.CreateCategory(ctx, c); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateCategory(ctx, c); !errors.Is(err, errdefs.ErrAlreadyExists) {
		t.Fatalf("duplicate create: got %v", err)
	}

	c.IsActive = false
	if err := s.UpdateCategory(ctx, c); err != nil {
		t.Fatal(err)
	}

	active, _ := s.ListCategories(ctx, setting.CategoryListOpts{ActiveOnly: true})
	if len(active) != 0 {
		t.Errorf("active categories = %d, want 0", len(active))
	}
	all, _ := s.ListCategories(ctx, setting.CategoryListOpts{})
	if len(all) != 1 {
		t.Errorf("categories = %d, want 1", len(all))
	}

	if _, err := s.GetCategory(ctx, id.NewCategoryID()); !errors.Is(err, errdefs.ErrCategoryNotFound) {
		t.Errorf("missing category: got %v", err)
	}

	if err := s.DeleteCategory(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteCategory(ctx, c.ID); err != nil {
		t.Errorf("second delete: got %v, want idempotent nil", err)
	}
	if _, err := s.GetCategory(ctx, c.ID); !errors.Is(err, errdefs.ErrCategoryNotFound) {
		t.Errorf("deleted category: got %v", err)
	}
}

func TestListActiveSettings(t *testing.T) {
	s := New()
	ctx := context.Background()

	global := newSetting("lease.base_price", scope.Scope{}, true)
	outlet := newSetting("lease.base_price", scope.Scope{OutletID: "5"}, true)
	inactive := newSetting("lease.base_price", scope.Scope{OutletID: "7"}, false)
	other := newSetting("refill.base_price", scope.Scope{}, true)
	for _, st := range []*setting.Setting{global, outlet, inactive, other} {
		if err := s.CreateSetting(ctx, st); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListActiveSettings(ctx, "lease.base_price")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d settings, want 2", len(got))
	}
	for _, st := range got {
		if !st.IsActive || st.Key != "lease.base_price" {
			t.Errorf("unexpected setting %+v", st)
		}
	}
}

func TestReturnedValuesAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	st := newSetting("deposit.amount", scope.Scope{}, true)
	_ = s.CreateSetting(ctx, st)

	// Mutating the input after create must not reach the store.
	st.Value = "999"
	got, _ := s.GetSetting(ctx, st.ID)
	if got.Value != "1" {
		t.Fatalf("stored value changed through caller pointer: %s", got.Value)
	}

	// Nor must mutating a read result.
	got.Value = "2"
	again, _ := s.GetSetting(ctx, st.ID)
	if again.Value != "1" {
		t.Errorf("stored value changed through read result: %s", again.Value)
	}
}

func TestListActiveRules(t *testing.T) {
	s := New()
	ctx := context.Background()

	mk := func(op string, active bool) *rule.Rule {
		r := &rule.Rule{
			ID:         id.NewRuleID(),
			CategoryID: id.NewCategoryID(),
			Name:       "r",
			Actions:    []rule.Action{{Type: rule.ActionApplyFlatFee, Value: "1"}},
			AppliesTo:  scope.Scope{OperationType: op},
			IsActive:   active,
		}
		if err := s.CreateRule(ctx, r); err != nil {
			t.Fatal(err)
		}
		return r
	}

	mk("LEASE", true)
	mk("", true)
	mk("SWAP", true)
	mk("LEASE", false)

	got, err := s.ListActiveRules(ctx, "LEASE")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("got %d rules, want 2 (LEASE + unscoped)", len(got))
	}
}

func TestAuditTrailOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	sid := id.NewSettingID()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, a := range []audit.Action{audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete} {
		e := &audit.Entry{
			ID:         id.NewAuditID(),
			EntityType: audit.EntitySetting,
			EntityID:   sid,
			Action:     a,
			ActorID:    "u",
			Timestamp:  base.Add(time.Duration(2-i) * time.Second),
		}
		// Insert newest first to prove the trail is sorted on read.
		if err := s.AppendAudit(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	_ = s.AppendAudit(ctx, &audit.Entry{ID: id.NewAuditID(), EntityType: audit.EntityRule, EntityID: sid, Timestamp: base})

	trail, err := s.ListAudit(ctx, audit.EntitySetting, sid)
	if err != nil {
		t.Fatal(err)
	}
	if len(trail) != 3 {
		t.Fatalf("trail length = %d, want 3", len(trail))
	}
	if trail[0].Action != audit.ActionDelete || trail[2].Action != audit.ActionCreate {
		t.Errorf("trail not ordered by timestamp: %s, %s, %s", trail[0].Action, trail[1].Action, trail[2].Action)
	}
}

func TestClosedStore(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()
	if err := s.Ping(ctx); !errors.Is(err, errdefs.ErrStoreClosed) {
		t.Errorf("Ping after close: got %v", err)
	}
	if _, err := s.ListActiveSettings(ctx, "k"); !errors.Is(err, errdefs.ErrStoreClosed) {
		t.Errorf("ListActiveSettings after close: got %v", err)
	}
}

func TestPagination(t *testing.T) {
	s := New()
	ctx := context.Background()
	for range 5 {
		_ = s.CreateSetting(ctx, newSetting("k", scope.Scope{}, true))
	}

	page, _ := s.ListSettings(ctx, setting.ListOpts{Limit: 2, Offset: 4})
	if len(page) != 1 {
		t.Errorf("page length = %d, want 1", len(page))
	}
	page, _ = s.ListSettings(ctx, setting.ListOpts{Offset: 10})
	if len(page) != 0 {
		t.Errorf("page length = %d, want 0", len(page))
	}
}
