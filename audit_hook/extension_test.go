package audithook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/pricing"
)

type captured struct {
	events []*AuditEvent
	err    error
}

func (c *captured) recorder() Recorder {
	return RecorderFunc(func(_ context.Context, evt *AuditEvent) error {
		c.events = append(c.events, evt)
		return c.err
	})
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOnAuditRecordedForwardsWrites(t *testing.T) {
	tests := []struct {
		entityType audit.EntityType
		action     audit.Action
		want       string
		resource   string
	}{
		{audit.EntityCategory, audit.ActionDelete, ActionCategoryDeactivated, ResourceCategory},
		{audit.EntitySetting, audit.ActionCreate, ActionSettingCreated, ResourceSetting},
		{audit.EntitySetting, audit.ActionUpdate, ActionSettingUpdated, ResourceSetting},
		{audit.EntityRule, audit.ActionDelete, ActionRuleDeleted, ResourceRule},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			c := &captured{}
			ext := New(c.recorder(), quiet())
			entityID := id.NewSettingID()

			err := ext.OnAuditRecorded(context.Background(), &audit.Entry{
				ID:         id.NewAuditID(),
				EntityType: tt.entityType,
				EntityID:   entityID,
				Action:     tt.action,
				ActorID:    "ops@example.com",
				Reason:     "price review",
				Timestamp:  time.Now(),
			})
			if err != nil {
				t.Fatal(err)
			}
			if len(c.events) != 1 {
				t.Fatalf("events = %d", len(c.events))
			}
			evt := c.events[0]
			if evt.Action != tt.want || evt.Resource != tt.resource {
				t.Errorf("event = %s on %s", evt.Action, evt.Resource)
			}
			if evt.ActorID != "ops@example.com" || evt.Reason != "price review" || evt.ResourceID != entityID.String() {
				t.Errorf("event = %+v", evt)
			}
		})
	}
}

func TestFailuresOnly(t *testing.T) {
	c := &captured{}
	ext := New(c.recorder(), quiet())
	ctx := context.Background()

	_ = ext.OnBulkEvaluated(ctx, 3, &pricing.BulkResult{}, nil, time.Millisecond)
	_ = ext.OnCacheInvalidated(ctx, nil)
	if len(c.events) != 0 {
		t.Fatalf("successful events were audited: %+v", c.events)
	}

	_ = ext.OnBulkEvaluated(ctx, 3, nil, &errdefs.BulkError{Line: 2, Err: errdefs.ErrNoPricingConfigured}, time.Millisecond)
	_ = ext.OnCacheInvalidated(ctx, errdefs.ErrCacheInvalidate)
	_ = ext.OnNoPricingConfigured(ctx, pricing.Context{OperationType: "LEASE", CylinderType: "50kg"}, errdefs.ErrNoPricingConfigured)

	want := []string{ActionBulkFailed, ActionCacheDegraded, ActionNoPricingConfigured}
	if len(c.events) != len(want) {
		t.Fatalf("events = %d, want %d", len(c.events), len(want))
	}
	for i, evt := range c.events {
		if evt.Action != want[i] || evt.Outcome != OutcomeFailure {
			t.Errorf("event %d = %s/%s", i, evt.Action, evt.Outcome)
		}
	}
	if c.events[2].Metadata["cylinder_type"] != "50kg" {
		t.Errorf("metadata = %+v", c.events[2].Metadata)
	}
}

func TestDisabledActions(t *testing.T) {
	c := &captured{}
	ext := New(c.recorder(), quiet(), WithDisabledActions(ActionCacheDegraded))

	_ = ext.OnCacheInvalidated(context.Background(), errors.New("down"))
	if len(c.events) != 0 {
		t.Errorf("disabled action was recorded")
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	c := &captured{err: errors.New("chronicle unavailable")}
	ext := New(c.recorder(), quiet())

	if err := ext.OnCacheInvalidated(context.Background(), errors.New("down")); err != nil {
		t.Errorf("hook returned %v", err)
	}
}
