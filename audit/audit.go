// Package audit records an append-only trail of every mutation to
// categories, settings and pricing rules.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/id"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type EntityType string

const (
	EntityCategory EntityType = "category"
	EntitySetting  EntityType = "setting"
	EntityRule     EntityType = "rule"
)

// Entry is one immutable audit record. Before and After are JSON snapshots
// taken at mutation time; later changes to the entity never reach them.
type Entry struct {
	ID         id.AuditID      `json:"id"`
	EntityType EntityType      `json:"entity_type"`
	EntityID   id.ID           `json:"entity_id"`
	Action     Action          `json:"action"`
	ActorID    string          `json:"actor_id"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Clone returns a copy of e that shares no memory with it.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Before = bytes.Clone(e.Before)
	c.After = bytes.Clone(e.After)
	return &c
}

type Store interface {
	AppendAudit(ctx context.Context, e *Entry) error
	// ListAudit returns the entries for one entity, oldest first.
	ListAudit(ctx context.Context, entityType EntityType, entityID id.ID) ([]*Entry, error)
}

// Recorder builds and appends audit entries.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder creates a Recorder over store. now defaults to time.Now.
func NewRecorder(store Store, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{store: store, now: now}
}

// Record snapshots before and after and appends an entry. Either snapshot
// may be nil. actorID is always required; reason is required for update
// and delete. A store failure is returned wrapped in ErrAuditWrite.
func (r *Recorder) Record(
	ctx context.Context,
	entityType EntityType,
	entityID id.ID,
	action Action,
	before, after any,
	actorID, reason string,
) (*Entry, error) {
	if actorID == "" {
		return nil, errdefs.Invalid("actor_id", "is required")
	}
	if reason == "" && (action == ActionUpdate || action == ActionDelete) {
		return nil, errdefs.Invalid("reason", "is required for %s", action)
	}

	beforeJSON, err := snapshot(before)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot before: %w", errdefs.ErrAuditWrite, err)
	}
	afterJSON, err := snapshot(after)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot after: %w", errdefs.ErrAuditWrite, err)
	}

	e := &Entry{
		ID:         id.NewAuditID(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Before:     beforeJSON,
		After:      afterJSON,
		Reason:     reason,
		Timestamp:  r.now().UTC(),
	}
	if err := r.store.AppendAudit(ctx, e); err != nil {
		return nil, fmt.Errorf("%w: %w", errdefs.ErrAuditWrite, err)
	}
	return e.Clone(), nil
}

// Trail returns the entries for one entity, oldest first.
func (r *Recorder) Trail(ctx context.Context, entityType EntityType, entityID id.ID) ([]*Entry, error) {
	return r.store.ListAudit(ctx, entityType, entityID)
}

func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return b, nil
}
