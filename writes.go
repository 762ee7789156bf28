package tariff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/setting"
	"github.com/xraph/tariff/types"
)

// DefaultSettingPriority is assigned to settings created with priority 0.
const DefaultSettingPriority = 1

// lockRetries bounds how often an update re-reads a row whose key moved
// while it waited for the lock.
const lockRetries = 3

// ──────────────────────────────────────────────────
// Category Management
// ──────────────────────────────────────────────────

// CreateCategory creates an active category.
func (e *Engine) CreateCategory(ctx context.Context, c *setting.Category, actorID string) error {
	if err := requireAudit(audit.ActionCreate, actorID, ""); err != nil {
		return err
	}
	if c.ID.IsNil() {
		c.ID = id.NewCategoryID()
	}
	c.Entity = e.newEntity()
	c.IsActive = true
	if err := setting.ValidateCategory(c); err != nil {
		return err
	}

	unlock := e.locks.Lock(categoryLock(c.ID.String()))
	defer unlock()

	if err := e.store.CreateCategory(ctx, c); err != nil {
		return err
	}
	if _, err := e.commit(ctx, audit.EntityCategory, c.ID, audit.ActionCreate, nil, c, actorID, "",
		func(ctx context.Context) error { return e.store.DeleteCategory(ctx, c.ID) },
	); err != nil {
		return err
	}

	e.plugins.EmitCategoryCreated(ctx, c)
	return nil
}

// GetCategory returns a category by ID.
func (e *Engine) GetCategory(ctx context.Context, categoryID id.CategoryID) (*setting.Category, error) {
	return e.store.GetCategory(ctx, categoryID)
}

// ListCategories returns categories ordered by ID.
func (e *Engine) ListCategories(ctx context.Context, opts setting.CategoryListOpts) ([]*setting.Category, error) {
	return e.store.ListCategories(ctx, opts)
}

// UpdateCategory replaces a category's name, description and active flag.
func (e *Engine) UpdateCategory(ctx context.Context, c *setting.Category, actorID, reason string) error {
	if err := requireAudit(audit.ActionUpdate, actorID, reason); err != nil {
		return err
	}

	unlock := e.locks.Lock(categoryLock(c.ID.String()))
	defer unlock()

	before, err := e.store.GetCategory(ctx, c.ID)
	if err != nil {
		return err
	}
	c.CreatedAt = before.CreatedAt
	c.UpdatedAt = e.now().UTC()
	if err := setting.ValidateCategory(c); err != nil {
		return err
	}

	if err := e.store.UpdateCategory(ctx, c); err != nil {
		return err
	}
	if _, err := e.commit(ctx, audit.EntityCategory, c.ID, audit.ActionUpdate, before, c, actorID, reason,
		func(ctx context.Context) error { return e.store.UpdateCategory(ctx, before) },
	); err != nil {
		return err
	}

	e.plugins.EmitCategoryUpdated(ctx, before, c)
	return nil
}

// DeactivateCategory marks a category inactive. Existing settings and
// rules keep resolving; new ones can no longer be attached to it.
// Deactivating an inactive category is a no-op.
func (e *Engine) DeactivateCategory(ctx context.Context, categoryID id.CategoryID, actorID, reason string) error {
	if err := requireAudit(audit.ActionDelete, actorID, reason); err != nil {
		return err
	}

	unlock := e.locks.Lock(categoryLock(categoryID.String()))
	defer unlock()

	before, err := e.store.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if !before.IsActive {
		return nil
	}
	after := before.Clone()
	after.IsActive = false
	after.UpdatedAt = e.now().UTC()

	if err := e.store.UpdateCategory(ctx, after); err != nil {
		return err
	}
	if _, err := e.commit(ctx, audit.EntityCategory, categoryID, audit.ActionDelete, before, after, actorID, reason,
		func(ctx context.Context) error { return e.store.UpdateCategory(ctx, before) },
	); err != nil {
		return err
	}

	e.plugins.EmitCategoryUpdated(ctx, before, after)
	return nil
}

// ──────────────────────────────────────────────────
// Setting Management
// ──────────────────────────────────────────────────

// CreateSetting creates an active setting. A zero priority defaults to
// DefaultSettingPriority. The write is rejected with a *ConflictError when
// another active setting has the same key and exact scope and an
// overlapping validity window.
func (e *Engine) CreateSetting(ctx context.Context, s *setting.Setting, actorID string) error {
	if err := requireAudit(audit.ActionCreate, actorID, ""); err != nil {
		return err
	}
	if s.ID.IsNil() {
		s.ID = id.NewSettingID()
	}
	if s.Priority == 0 {
		s.Priority = DefaultSettingPriority
	}
	s.Entity = e.newEntity()
	s.IsActive = true
	if err := setting.Validate(s); err != nil {
		return err
	}

	unlock := e.locks.Lock(categoryLock(s.CategoryID.String()), settingKeyLock(s.Key))
	defer unlock()

	if err := e.requireActiveCategory(ctx, s.CategoryID); err != nil {
		return err
	}
	if err := e.checkUnique(ctx, s); err != nil {
		return err
	}

	if err := e.store.CreateSetting(ctx, s); err != nil {
		return err
	}
	if _, err := e.commit(ctx, audit.EntitySetting, s.ID, audit.ActionCreate, nil, s, actorID, "",
		func(ctx context.Context) error { return e.store.DeleteSetting(ctx, s.ID) },
	); err != nil {
		return err
	}

	e.plugins.EmitSettingCreated(ctx, s)
	return nil
}

// GetSetting returns a setting by ID.
func (e *Engine) GetSetting(ctx context.Context, settingID id.SettingID) (*setting.Setting, error) {
	return e.store.GetSetting(ctx, settingID)
}

// ListSettings returns settings ordered by ID.
func (e *Engine) ListSettings(ctx context.Context, opts setting.ListOpts) ([]*setting.Setting, error) {
	return e.store.ListSettings(ctx, opts)
}

// UpdateSetting fully replaces a setting. The prior state is kept in the
// audit trail.
func (e *Engine) UpdateSetting(ctx context.Context, s *setting.Setting, actorID, reason string) error {
	if err := requireAudit(audit.ActionUpdate, actorID, reason); err != nil {
		return err
	}
	if s.Priority == 0 {
		s.Priority = DefaultSettingPriority
	}

	before, unlock, err := e.lockSetting(ctx, s.ID, s)
	if err != nil {
		return err
	}
	defer unlock()

	s.CreatedAt = before.CreatedAt
	s.UpdatedAt = e.now().UTC()
	if err := setting.Validate(s); err != nil {
		return err
	}
	if s.CategoryID.String() != before.CategoryID.String() {
		if err := e.requireActiveCategory(ctx, s.CategoryID); err != nil {
			return err
		}
	}
	if s.IsActive {
		if err := e.checkUnique(ctx, s); err != nil {
			return err
		}
	}

	if err := e.store.UpdateSetting(ctx, s); err != nil {
		return err
	}
	if _, err := e.commit(ctx, audit.EntitySetting, s.ID, audit.ActionUpdate, before, s, actorID, reason,
		func(ctx context.Context) error { return e.store.UpdateSetting(ctx, before) },
	); err != nil {
		return err
	}

	e.plugins.EmitSettingUpdated(ctx, before, s)
	return nil
}

// DeleteSetting deactivates a setting. Deleting an inactive setting is a
// no-op.
func (e *Engine) DeleteSetting(ctx context.Context, settingID id.SettingID, actorID, reason string) error {
	if err := requireAudit(audit.ActionDelete, actorID, reason); err != nil {
		return err
	}

	before, unlock, err := e.lockSetting(ctx, settingID, nil)
	if err != nil {
		return err
	}
	defer unlock()

	if !before.IsActive {
		return nil
	}
	after := before.Clone()
	after.IsActive = false
	after.UpdatedAt = e.now().UTC()

	if err := e.store.UpdateSetting(ctx, after); err != nil {
		return err
	}
	if _, err := e.commit(ctx, audit.EntitySetting, settingID, audit.ActionDelete, before, after, actorID, reason,
		func(ctx context.Context) error { return e.store.UpdateSetting(ctx, before) },
	); err != nil {
		return err
	}

	e.plugins.EmitSettingDeleted(ctx, after, reason)
	return nil
}

// lockSetting loads a setting and locks its current key plus the key and
// category of next, when given. The row is re-read under the lock; if its
// key moved in between, the locks are retaken.
func (e *Engine) lockSetting(ctx context.Context, settingID id.SettingID, next *setting.Setting) (*setting.Setting, func(), error) {
	current, err := e.store.GetSetting(ctx, settingID)
	if err != nil {
		return nil, nil, err
	}

	for range lockRetries {
		keys := []string{settingKeyLock(current.Key)}
		if next != nil {
			keys = append(keys, settingKeyLock(next.Key), categoryLock(next.CategoryID.String()))
		}
		unlock := e.locks.Lock(keys...)

		locked, err := e.store.GetSetting(ctx, settingID)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		if locked.Key == current.Key {
			return locked, unlock, nil
		}
		unlock()
		current = locked
	}
	return nil, nil, fmt.Errorf("tariff: setting %s is being modified concurrently", settingID)
}

// requireActiveCategory fails unless categoryID names an active category.
func (e *Engine) requireActiveCategory(ctx context.Context, categoryID id.CategoryID) error {
	c, err := e.store.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if !c.IsActive {
		return fmt.Errorf("%w: %s", ErrCategoryInactive, categoryID)
	}
	return nil
}

// checkUnique rejects s when another active setting shares its key and
// exact scope and the two validity windows overlap. Callers hold the key
// lock.
func (e *Engine) checkUnique(ctx context.Context, s *setting.Setting) error {
	existing, err := e.store.ListActiveSettings(ctx, s.Key)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID.String() == s.ID.String() || !s.SameTuple(other) {
			continue
		}
		if s.Window.Overlaps(other.Window) {
			return &ConflictError{Key: s.Key, Scope: s.Scope, ExistingID: other.ID}
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Pricing Rule Management
// ──────────────────────────────────────────────────

// CreateRule creates an active pricing rule.
func (e *Engine) CreateRule(ctx context.Context, r *rule.Rule, actorID string) error {
	if err := requireAudit(audit.ActionCreate, actorID, ""); err != nil {
		return err
	}
	if r.ID.IsNil() {
		r.ID = id.NewRuleID()
	}
	r.Entity = e.newEntity()
	r.IsActive = true
	if err := rule.Validate(r); err != nil {
		return err
	}

	unlock := e.locks.Lock(categoryLock(r.CategoryID.String()), ruleLock(r.ID.String()))
	defer unlock()

	if err := e.requireActiveCategory(ctx, r.CategoryID); err != nil {
		return err
	}
	if err := e.store.CreateRule(ctx, r); err != nil {
		return err
	}
	if _, err := e.commit(ctx, audit.EntityRule, r.ID, audit.ActionCreate, nil, r, actorID, "",
		func(ctx context.Context) error { return e.store.DeleteRule(ctx, r.ID) },
	); err != nil {
		return err
	}

	e.plugins.EmitRuleCreated(ctx, r)
	return nil
}

// GetRule returns a pricing rule by ID.
func (e *Engine) GetRule(ctx context.Context, ruleID id.RuleID) (*rule.Rule, error) {
	return e.store.GetRule(ctx, ruleID)
}

// ListRules returns pricing rules ordered by ID.
func (e *Engine) ListRules(ctx context.Context, opts rule.ListOpts) ([]*rule.Rule, error) {
	return e.store.ListRules(ctx, opts)
}

// UpdateRule fully replaces a pricing rule.
func (e *Engine) UpdateRule(ctx context.Context, r *rule.Rule, actorID, reason string) error {
	if err := requireAudit(audit.ActionUpdate, actorID, reason); err != nil {
		return err
	}

	unlock := e.locks.Lock(categoryLock(r.CategoryID.String()), ruleLock(r.ID.String()))
	defer unlock()

	before, err := e.store.GetRule(ctx, r.ID)
	if err != nil {
		return err
	}
	r.CreatedAt = before.CreatedAt
	r.UpdatedAt = e.now().UTC()
	if err := rule.Validate(r); err != nil {
		return err
	}
	if r.CategoryID.String() != before.CategoryID.String() {
		if err := e.requireActiveCategory(ctx, r.CategoryID); err != nil {
			return err
		}
	}

	if err := e.store.UpdateRule(ctx, r); err != nil {
		return err
	}
	if _, err := e.commit(ctx, audit.EntityRule, r.ID, audit.ActionUpdate, before, r, actorID, reason,
		func(ctx context.Context) error { return e.store.UpdateRule(ctx, before) },
	); err != nil {
		return err
	}

	e.plugins.EmitRuleUpdated(ctx, before, r)
	return nil
}

// DeleteRule deactivates a pricing rule. Deleting an inactive rule is a
// no-op.
func (e *Engine) DeleteRule(ctx context.Context, ruleID id.RuleID, actorID, reason string) error {
	if err := requireAudit(audit.ActionDelete, actorID, reason); err != nil {
		return err
	}

	unlock := e.locks.Lock(ruleLock(ruleID.String()))
	defer unlock()

	before, err := e.store.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}
	if !before.IsActive {
		return nil
	}
	after := before.Clone()
	after.IsActive = false
	after.UpdatedAt = e.now().UTC()

	if err := e.store.UpdateRule(ctx, after); err != nil {
		return err
	}
	if _, err := e.commit(ctx, audit.EntityRule, ruleID, audit.ActionDelete, before, after, actorID, reason,
		func(ctx context.Context) error { return e.store.UpdateRule(ctx, before) },
	); err != nil {
		return err
	}

	e.plugins.EmitRuleDeleted(ctx, after, reason)
	return nil
}

// ──────────────────────────────────────────────────
// Audit
// ──────────────────────────────────────────────────

// GetAuditTrail returns every audit entry for one entity, oldest first.
func (e *Engine) GetAuditTrail(ctx context.Context, entityType audit.EntityType, entityID id.ID) ([]*audit.Entry, error) {
	return e.recorder.Trail(ctx, entityType, entityID)
}

// commit appends the audit entry for a write that already reached the
// store. When the append fails, rollback undoes the store write and the
// audit error is returned, so data and audit never diverge.
func (e *Engine) commit(
	ctx context.Context,
	entityType audit.EntityType,
	entityID id.ID,
	action audit.Action,
	before, after any,
	actorID, reason string,
	rollback func(context.Context) error,
) (*audit.Entry, error) {
	entry, err := e.recorder.Record(ctx, entityType, entityID, action, before, after, actorID, reason)
	if err != nil {
		// The rollback must run even when the caller's context is done.
		// Reads that ran before the rollback may have cached the
		// uncommitted row, so the cache is dropped either way.
		rbCtx := context.WithoutCancel(ctx)
		rbErr := rollback(rbCtx)
		e.invalidate(rbCtx)
		if rbErr != nil {
			e.logger.Error("rollback after failed audit write failed",
				slog.String("entity_type", string(entityType)),
				slog.String("entity_id", entityID.String()),
				slog.String("error", rbErr.Error()),
			)
			return nil, errors.Join(err, fmt.Errorf("tariff: rollback failed: %w", rbErr))
		}
		e.logger.Warn("write rolled back after failed audit write",
			slog.String("entity_type", string(entityType)),
			slog.String("entity_id", entityID.String()),
			slog.String("action", string(action)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	e.invalidate(ctx)
	e.plugins.EmitAuditRecorded(ctx, entry)
	return entry, nil
}

// requireAudit checks the audit inputs before anything is written.
func requireAudit(action audit.Action, actorID, reason string) error {
	if actorID == "" {
		return errdefs.Invalid("actor_id", "is required")
	}
	if reason == "" && action != audit.ActionCreate {
		return errdefs.Invalid("reason", "is required for %s", action)
	}
	return nil
}

func (e *Engine) newEntity() types.Entity {
	now := e.now().UTC()
	return types.Entity{CreatedAt: now, UpdatedAt: now}
}
