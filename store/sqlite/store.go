// Package sqlite implements store.Store on SQLite through Grove. It suits
// single-node deployments and integration tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/setting"
	"github.com/xraph/tariff/store"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("tariff/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tariff/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Category Store ====================

func (s *Store) CreateCategory(ctx context.Context, c *setting.Category) error {
	_, err := s.sdb.NewInsert(toCategoryModel(c)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tariff/sqlite: create category: %w", err)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, categoryID id.CategoryID) (*setting.Category, error) {
	m := new(categoryModel)
	err := s.sdb.NewSelect(m).Where("id = ?", categoryID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, errdefs.ErrCategoryNotFound
		}
		return nil, err
	}
	return fromCategoryModel(m)
}

func (s *Store) ListCategories(ctx context.Context, opts setting.CategoryListOpts) ([]*setting.Category, error) {
	var models []categoryModel
	q := s.sdb.NewSelect(&models)
	if opts.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*setting.Category, len(models))
	for i := range models {
		c, err := fromCategoryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *setting.Category) error {
	res, err := s.sdb.NewUpdate(toCategoryModel(c)).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errdefs.ErrCategoryNotFound
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, categoryID id.CategoryID) error {
	_, err := s.sdb.NewDelete((*categoryModel)(nil)).
		Where("id = ?", categoryID.String()).
		Exec(ctx)
	return err
}

// ==================== Setting Store ====================

func (s *Store) CreateSetting(ctx context.Context, st *setting.Setting) error {
	_, err := s.sdb.NewInsert(toSettingModel(st)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tariff/sqlite: create setting: %w", err)
	}
	return nil
}

func (s *Store) GetSetting(ctx context.Context, settingID id.SettingID) (*setting.Setting, error) {
	m := new(settingModel)
	err := s.sdb.NewSelect(m).Where("id = ?", settingID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, errdefs.ErrSettingNotFound
		}
		return nil, err
	}
	return fromSettingModel(m)
}

func (s *Store) ListActiveSettings(ctx context.Context, key string) ([]*setting.Setting, error) {
	var models []settingModel
	err := s.sdb.NewSelect(&models).
		Where("setting_key = ?", key).
		Where("is_active = ?", true).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tariff/sqlite: list active settings: %w", err)
	}
	return fromSettingModels(models)
}

func (s *Store) ListSettings(ctx context.Context, opts setting.ListOpts) ([]*setting.Setting, error) {
	var models []settingModel
	q := s.sdb.NewSelect(&models)

	if opts.CategoryID != nil {
		q = q.Where("category_id = ?", opts.CategoryID.String())
	}
	if opts.Key != "" {
		q = q.Where("setting_key = ?", opts.Key)
	}
	if opts.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromSettingModels(models)
}

func (s *Store) UpdateSetting(ctx context.Context, st *setting.Setting) error {
	res, err := s.sdb.NewUpdate(toSettingModel(st)).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errdefs.ErrSettingNotFound
	}
	return nil
}

func (s *Store) DeleteSetting(ctx context.Context, settingID id.SettingID) error {
	_, err := s.sdb.NewDelete((*settingModel)(nil)).
		Where("id = ?", settingID.String()).
		Exec(ctx)
	return err
}

func fromSettingModels(models []settingModel) ([]*setting.Setting, error) {
	result := make([]*setting.Setting, len(models))
	for i := range models {
		st, err := fromSettingModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = st
	}
	return result, nil
}

// ==================== Rule Store ====================

func (s *Store) CreateRule(ctx context.Context, r *rule.Rule) error {
	m, err := toRuleModel(r)
	if err != nil {
		return fmt.Errorf("tariff/sqlite: create rule: %w", err)
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("tariff/sqlite: create rule: %w", err)
	}
	return nil
}

func (s *Store) GetRule(ctx context.Context, ruleID id.RuleID) (*rule.Rule, error) {
	m := new(ruleModel)
	err := s.sdb.NewSelect(m).Where("id = ?", ruleID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, errdefs.ErrRuleNotFound
		}
		return nil, err
	}
	return fromRuleModel(m)
}

func (s *Store) ListActiveRules(ctx context.Context, operationType string) ([]*rule.Rule, error) {
	var models []ruleModel
	err := s.sdb.NewSelect(&models).
		Where("is_active = ?", true).
		Where("(operation_type = '' OR operation_type = ?)", operationType).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tariff/sqlite: list active rules: %w", err)
	}
	return fromRuleModels(models)
}

func (s *Store) ListRules(ctx context.Context, opts rule.ListOpts) ([]*rule.Rule, error) {
	var models []ruleModel
	q := s.sdb.NewSelect(&models)

	if opts.OperationType != "" {
		q = q.Where("operation_type = ?", opts.OperationType)
	}
	if opts.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromRuleModels(models)
}

func (s *Store) UpdateRule(ctx context.Context, r *rule.Rule) error {
	m, err := toRuleModel(r)
	if err != nil {
		return fmt.Errorf("tariff/sqlite: update rule: %w", err)
	}
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errdefs.ErrRuleNotFound
	}
	return nil
}

func (s *Store) DeleteRule(ctx context.Context, ruleID id.RuleID) error {
	_, err := s.sdb.NewDelete((*ruleModel)(nil)).
		Where("id = ?", ruleID.String()).
		Exec(ctx)
	return err
}

func fromRuleModels(models []ruleModel) ([]*rule.Rule, error) {
	result := make([]*rule.Rule, len(models))
	for i := range models {
		r, err := fromRuleModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Audit Store ====================

// AppendAudit inserts one entry. Audit rows are never updated or deleted.
func (s *Store) AppendAudit(ctx context.Context, e *audit.Entry) error {
	_, err := s.sdb.NewInsert(toAuditModel(e)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tariff/sqlite: append audit: %w", err)
	}
	return nil
}

func (s *Store) ListAudit(ctx context.Context, entityType audit.EntityType, entityID id.ID) ([]*audit.Entry, error) {
	var models []auditModel
	err := s.sdb.NewSelect(&models).
		Where("entity_type = ?", string(entityType)).
		Where("entity_id = ?", entityID.String()).
		OrderExpr("timestamp ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*audit.Entry, len(models))
	for i := range models {
		e, err := fromAuditModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
