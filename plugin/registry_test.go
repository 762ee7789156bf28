package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/setting"
)

type recorder struct {
	name     string
	created  atomic.Int32
	audited  atomic.Int32
	failWith error
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnSettingCreated(context.Context, *setting.Setting) error {
	r.created.Add(1)
	return r.failWith
}

func (r *recorder) OnAuditRecorded(context.Context, *audit.Entry) error {
	r.audited.Add(1)
	return nil
}

type sleeper struct{}

func (sleeper) Name() string { return "sleeper" }

func (sleeper) OnSettingCreated(ctx context.Context, _ *setting.Setting) error {
	time.Sleep(time.Second)
	return nil
}

func newTestRegistry() *Registry {
	return NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := newTestRegistry()
	if err := r.Register(&recorder{name: "a"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&recorder{name: "a"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}
	if r.Get("a") == nil || r.Get("missing") != nil {
		t.Fatal("Get returned the wrong plugin")
	}
}

func TestImplementedInterfaces(t *testing.T) {
	got := implementedInterfaces(&recorder{name: "a"})
	want := map[string]bool{"OnSettingCreated": true, "OnAuditRecorded": true}
	if len(got) != len(want) {
		t.Fatalf("interfaces = %v", got)
	}
	for _, name := range got {
		if !want[name] {
			t.Fatalf("unexpected interface %q", name)
		}
	}
}

func TestEmitDispatchesOnlyToImplementers(t *testing.T) {
	r := newTestRegistry()
	a := &recorder{name: "a"}
	b := &recorder{name: "b", failWith: errors.New("boom")}
	if err := r.Register(a); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(b); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	r.EmitSettingCreated(ctx, &setting.Setting{})
	r.EmitAuditRecorded(ctx, &audit.Entry{})
	r.EmitRuleCreated(ctx, nil)

	if a.created.Load() != 1 || b.created.Load() != 1 {
		t.Fatalf("created calls = %d, %d", a.created.Load(), b.created.Load())
	}
	if a.audited.Load() != 1 {
		t.Fatalf("audited calls = %d", a.audited.Load())
	}
}

func TestEmitAbandonsSlowPlugins(t *testing.T) {
	r := newTestRegistry().WithTimeout(20 * time.Millisecond)
	if err := r.Register(sleeper{}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	r.EmitSettingCreated(context.Background(), &setting.Setting{})
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("emit blocked for %v", elapsed)
	}
}

func TestNilRegistryIsSafe(t *testing.T) {
	var r *Registry
	r.EmitCacheInvalidated(context.Background(), nil)
}
