package resolve

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tariff/cache"
	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/setting"
	"github.com/xraph/tariff/store/memory"
	"github.com/xraph/tariff/types"
)

var catID = id.NewCategoryID()

func put(t *testing.T, s *memory.Store, key, value string, sc scope.Scope, priority int) *setting.Setting {
	t.Helper()
	st := &setting.Setting{
		ID:         id.NewSettingID(),
		CategoryID: catID,
		Key:        key,
		Value:      value,
		DataType:   setting.TypeNumber,
		Scope:      sc,
		Priority:   priority,
		IsActive:   true,
	}
	if err := s.CreateSetting(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	// IDs are compared for the final tie-break; keep them in distinct
	// milliseconds so creation order is observable.
	time.Sleep(2 * time.Millisecond)
	return st
}

func mustResolve(t *testing.T, r *Resolver, key string, sc scope.Context) *setting.Setting {
	t.Helper()
	got, err := r.Resolve(context.Background(), key, sc)
	if err != nil {
		t.Fatalf("Resolve(%s, %+v): %v", key, sc, err)
	}
	return got
}

func TestScenarioGlobalAndOutletOverride(t *testing.T) {
	s := memory.New()
	r := New(s)

	put(t, s, "REFILL_PRICE_PER_KG", "10", scope.Scope{}, 1)
	if got := mustResolve(t, r, "REFILL_PRICE_PER_KG", scope.Context{}); got.Value != "10" {
		t.Fatalf("global: got %s, want 10", got.Value)
	}

	put(t, s, "REFILL_PRICE_PER_KG", "12", scope.Scope{OutletID: "5"}, 1)
	if got := mustResolve(t, r, "REFILL_PRICE_PER_KG", scope.Context{OutletID: "5"}); got.Value != "12" {
		t.Errorf("outlet 5: got %s, want 12", got.Value)
	}
	if got := mustResolve(t, r, "REFILL_PRICE_PER_KG", scope.Context{OutletID: "7"}); got.Value != "10" {
		t.Errorf("outlet 7: got %s, want 10", got.Value)
	}
}

func TestRankingTieBreaks(t *testing.T) {
	s := memory.New()
	r := New(s)
	ctx := scope.Context{OutletID: "5", CustomerTier: "GOLD"}

	put(t, s, "k", "tier-high-priority", scope.Scope{CustomerTier: "GOLD"}, 5)
	put(t, s, "k", "outlet-low-priority", scope.Scope{OutletID: "5"}, 1)
	if got := mustResolve(t, r, "k", ctx); got.Value != "tier-high-priority" {
		t.Errorf("priority tie-break: got %s", got.Value)
	}

	put(t, s, "k", "outlet-newer", scope.Scope{OutletID: "5"}, 5)
	if got := mustResolve(t, r, "k", ctx); got.Value != "outlet-newer" {
		t.Errorf("id tie-break: got %s, want newest", got.Value)
	}

	put(t, s, "k", "both", scope.Scope{OutletID: "5", CustomerTier: "GOLD"}, 1)
	if got := mustResolve(t, r, "k", ctx); got.Value != "both" {
		t.Errorf("specificity: got %s", got.Value)
	}
}

func TestSelectIsOrderIndependent(t *testing.T) {
	s := memory.New()
	for i, sc := range []scope.Scope{{}, {OutletID: "5"}, {CylinderType: "15kg"}, {OutletID: "5"}, {CustomerTier: "GOLD"}} {
		put(t, s, "k", string(rune('a'+i)), sc, 1+i%2)
	}
	candidates, _ := s.ListActiveSettings(context.Background(), "k")
	sc := scope.Context{OutletID: "5", CylinderType: "15kg"}
	now := time.Now()

	want := Select(candidates, sc, now)
	for range 20 {
		rand.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
		if got := Select(candidates, sc, now); got.ID.String() != want.ID.String() {
			t.Fatalf("Select depends on order: got %s, want %s", got.Value, want.Value)
		}
	}
}

func TestSpecificityMonotonicity(t *testing.T) {
	s := memory.New()
	r := New(s)
	put(t, s, "k", "global", scope.Scope{}, 5)

	unmatched := scope.Context{OutletID: "7"}
	matched := scope.Context{OutletID: "5", CylinderType: "15kg"}
	before := mustResolve(t, r, "k", unmatched)

	put(t, s, "k", "specific", scope.Scope{OutletID: "5", CylinderType: "15kg"}, 1)

	if got := mustResolve(t, r, "k", unmatched); got.ID.String() != before.ID.String() {
		t.Errorf("non-matching context changed: %s", got.Value)
	}
	if got := mustResolve(t, r, "k", matched); got.Value != "specific" {
		t.Errorf("more specific setting must win despite lower priority, got %s", got.Value)
	}
}

func TestTemporalExclusion(t *testing.T) {
	s := memory.New()
	asOf := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	r := New(s)

	st := put(t, s, "k", "expired", scope.Scope{}, 1)
	st.Window = types.Window{ExpiryDate: &asOf}
	_ = s.UpdateSetting(context.Background(), st)

	if _, err := r.ResolveAt(context.Background(), "k", scope.Context{}, asOf); !errors.Is(err, ErrNotFound) {
		t.Errorf("expiry == asOf must be excluded, got %v", err)
	}
	if _, err := r.ResolveAt(context.Background(), "k", scope.Context{}, asOf.Add(-time.Nanosecond)); err != nil {
		t.Errorf("just before expiry should resolve: %v", err)
	}

	future := asOf.Add(time.Hour)
	st.Window = types.Window{EffectiveDate: &future}
	_ = s.UpdateSetting(context.Background(), st)
	if _, err := r.ResolveAt(context.Background(), "k", scope.Context{}, asOf); !errors.Is(err, ErrNotFound) {
		t.Errorf("not yet effective must be excluded, got %v", err)
	}
}

func TestNotFoundAndValidation(t *testing.T) {
	r := New(memory.New())

	_, err := r.Resolve(context.Background(), "missing", scope.Context{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing key: got %v", err)
	}

	_, err = r.Resolve(context.Background(), "", scope.Context{})
	var ve *errdefs.ValidationError
	if !errors.As(err, &ve) || ve.Field != "settingKey" {
		t.Errorf("empty key: got %v", err)
	}
}

type failingSource struct{ err error }

func (f failingSource) ListActiveSettings(context.Context, string) ([]*setting.Setting, error) {
	return nil, f.err
}

type slowSource struct{}

func (slowSource) ListActiveSettings(ctx context.Context, _ string) ([]*setting.Setting, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestFetchFailureIsNotAnEmptySet(t *testing.T) {
	r := New(failingSource{err: errors.New("connection reset")})
	_, err := r.Resolve(context.Background(), "k", scope.Context{})
	if !errors.Is(err, errdefs.ErrCandidateFetch) {
		t.Fatalf("got %v, want ErrCandidateFetch", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("fetch failure must not look like NotFound")
	}

	r = New(slowSource{}, WithFetchTimeout(10*time.Millisecond))
	_, err = r.Resolve(context.Background(), "k", scope.Context{})
	if !errors.Is(err, errdefs.ErrCandidateFetch) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("timeout: got %v", err)
	}
}

type countingSource struct {
	*memory.Store
	calls int
}

func (c *countingSource) ListActiveSettings(ctx context.Context, key string) ([]*setting.Setting, error) {
	c.calls++
	return c.Store.ListActiveSettings(ctx, key)
}

func TestCachedDeterminism(t *testing.T) {
	src := &countingSource{Store: memory.New()}
	put(t, src.Store, "k", "1", scope.Scope{}, 1)

	fixed := time.Date(2026, 1, 1, 0, 0, 30, 0, time.UTC)
	r := New(src,
		WithCache(cache.NewResolution(cache.NewMemory(0), time.Minute, nil)),
		WithClock(func() time.Time { return fixed }),
	)

	first := mustResolve(t, r, "k", scope.Context{})
	for range 5 {
		if got := mustResolve(t, r, "k", scope.Context{}); got.ID.String() != first.ID.String() {
			t.Fatal("repeated resolution changed")
		}
	}
	if src.calls != 1 {
		t.Errorf("store fetched %d times, want 1", src.calls)
	}

	// NotFound outcomes are cached too.
	_, _ = r.Resolve(context.Background(), "absent", scope.Context{})
	_, _ = r.Resolve(context.Background(), "absent", scope.Context{})
	if src.calls != 2 {
		t.Errorf("store fetched %d times, want 2", src.calls)
	}
}

func TestResolveValue(t *testing.T) {
	s := memory.New()
	r := New(s)
	put(t, s, "tax.rate", "7.5", scope.Scope{}, 1)

	v, err := r.ResolveValue(context.Background(), "tax.rate", scope.Context{})
	if err != nil {
		t.Fatal(err)
	}
	n, ok := v.(setting.NumberValue)
	if !ok || !n.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("got %#v", v)
	}
}
