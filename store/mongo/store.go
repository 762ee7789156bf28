// Package mongo implements store.Store on MongoDB through Grove.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/setting"
	"github.com/xraph/tariff/store"
)

// Collection name constants.
const (
	colCategories = "tariff_setting_categories"
	colSettings   = "tariff_business_settings"
	colRules      = "tariff_pricing_rules"
	colAudit      = "tariff_settings_audit"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all tariff collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tariff/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewInsert(toCategoryModel(c)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tariff/mongo: create category: %w", err)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, categoryID id.CategoryID) (*setting.Category, error) {
	var m categoryModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": categoryID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, errdefs.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("tariff/mongo: get category: %w", err)
	}
	return fromCategoryModel(&m)
}

func (s *Store) ListCategories(ctx context.Context, opts setting.CategoryListOpts) ([]*setting.Category, error) {
	var models []categoryModel

	filter := bson.M{}
	if opts.ActiveOnly {
		filter["is_active"] = true
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tariff/mongo: list categories: %w", err)
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
	m := toCategoryModel(c)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tariff/mongo: update category: %w", err)
	}
	if res.MatchedCount() == 0 {
		return errdefs.ErrCategoryNotFound
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, categoryID id.CategoryID) error {
	_, err := s.mdb.NewDelete((*categoryModel)(nil)).
		Filter(bson.M{"_id": categoryID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tariff/mongo: delete category: %w", err)
	}
	return nil
}

// ==================== Setting Store ====================

func (s *Store) CreateSetting(ctx context.Context, st *setting.Setting) error {
	_, err := s.mdb.NewInsert(toSettingModel(st)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tariff/mongo: create setting: %w", err)
	}
	return nil
}

func (s *Store) GetSetting(ctx context.Context, settingID id.SettingID) (*setting.Setting, error) {
	var m settingModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": settingID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, errdefs.ErrSettingNotFound
		}
		return nil, fmt.Errorf("tariff/mongo: get setting: %w", err)
	}
	return fromSettingModel(&m)
}

func (s *Store) ListActiveSettings(ctx context.Context, key string) ([]*setting.Setting, error) {
	var models []settingModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"setting_key": key, "is_active": true}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tariff/mongo: list active settings: %w", err)
	}
	return fromSettingModels(models)
}

func (s *Store) ListSettings(ctx context.Context, opts setting.ListOpts) ([]*setting.Setting, error) {
	var models []settingModel

	filter := bson.M{}
	if opts.CategoryID != nil {
		filter["category_id"] = opts.CategoryID.String()
	}
	if opts.Key != "" {
		filter["setting_key"] = opts.Key
	}
	if opts.ActiveOnly {
		filter["is_active"] = true
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tariff/mongo: list settings: %w", err)
	}
	return fromSettingModels(models)
}

func (s *Store) UpdateSetting(ctx context.Context, st *setting.Setting) error {
	m := toSettingModel(st)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tariff/mongo: update setting: %w", err)
	}
	if res.MatchedCount() == 0 {
		return errdefs.ErrSettingNotFound
	}
	return nil
}

func (s *Store) DeleteSetting(ctx context.Context, settingID id.SettingID) error {
	_, err := s.mdb.NewDelete((*settingModel)(nil)).
		Filter(bson.M{"_id": settingID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tariff/mongo: delete setting: %w", err)
	}
	return nil
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
	_, err := s.mdb.NewInsert(toRuleModel(r)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tariff/mongo: create rule: %w", err)
	}
	return nil
}

func (s *Store) GetRule(ctx context.Context, ruleID id.RuleID) (*rule.Rule, error) {
	var m ruleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": ruleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, errdefs.ErrRuleNotFound
		}
		return nil, fmt.Errorf("tariff/mongo: get rule: %w", err)
	}
	return fromRuleModel(&m)
}

func (s *Store) ListActiveRules(ctx context.Context, operationType string) ([]*rule.Rule, error) {
	var models []ruleModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"is_active":                 true,
			"applies_to.operation_type": bson.M{"$in": bson.A{"", operationType}},
		}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tariff/mongo: list active rules: %w", err)
	}
	return fromRuleModels(models)
}

func (s *Store) ListRules(ctx context.Context, opts rule.ListOpts) ([]*rule.Rule, error) {
	var models []ruleModel

	filter := bson.M{}
	if opts.OperationType != "" {
		filter["applies_to.operation_type"] = opts.OperationType
	}
	if opts.ActiveOnly {
		filter["is_active"] = true
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tariff/mongo: list rules: %w", err)
	}
	return fromRuleModels(models)
}

func (s *Store) UpdateRule(ctx context.Context, r *rule.Rule) error {
	m := toRuleModel(r)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tariff/mongo: update rule: %w", err)
	}
	if res.MatchedCount() == 0 {
		return errdefs.ErrRuleNotFound
	}
	return nil
}

func (s *Store) DeleteRule(ctx context.Context, ruleID id.RuleID) error {
	_, err := s.mdb.NewDelete((*ruleModel)(nil)).
		Filter(bson.M{"_id": ruleID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tariff/mongo: delete rule: %w", err)
	}
	return nil
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

func (s *Store) AppendAudit(ctx context.Context, e *audit.Entry) error {
	_, err := s.mdb.NewInsert(toAuditModel(e)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tariff/mongo: append audit: %w", err)
	}
	return nil
}

func (s *Store) ListAudit(ctx context.Context, entityType audit.EntityType, entityID id.ID) ([]*audit.Entry, error) {
	var models []auditModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"entity_type": string(entityType), "entity_id": entityID.String()}).
		Sort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tariff/mongo: list audit: %w", err)
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

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all tariff collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCategories: {
			{Keys: bson.D{{Key: "is_active", Value: 1}}},
		},
		colSettings: {
			{
				Keys: bson.D{
					{Key: "setting_key", Value: 1},
					{Key: "scope.outlet_id", Value: 1},
					{Key: "scope.cylinder_type", Value: 1},
					{Key: "scope.customer_tier", Value: 1},
					{Key: "scope.operation_type", Value: 1},
				},
				Options: options.Index().SetPartialFilterExpression(bson.M{"is_active": true}),
			},
			{Keys: bson.D{{Key: "category_id", Value: 1}}},
		},
		colRules: {
			{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "applies_to.operation_type", Value: 1}}},
		},
		colAudit: {
			{Keys: bson.D{{Key: "entity_type", Value: 1}, {Key: "entity_id", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
	}
}
