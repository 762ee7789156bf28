package mongo

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/setting"
	"github.com/xraph/tariff/types"
)

// scopeModel is embedded as a subdocument. Unset dimensions are stored as
// empty strings so that "global" can be matched with an equality filter.
type scopeModel struct {
	OutletID      string `bson:"outlet_id"`
	CylinderType  string `bson:"cylinder_type"`
	CustomerTier  string `bson:"customer_tier"`
	OperationType string `bson:"operation_type"`
}

func toScopeModel(s scope.Scope) scopeModel {
	return scopeModel{
		OutletID:      s.OutletID,
		CylinderType:  s.CylinderType,
		CustomerTier:  s.CustomerTier,
		OperationType: s.OperationType,
	}
}

func (m scopeModel) scope() scope.Scope {
	return scope.Scope{
		OutletID:      m.OutletID,
		CylinderType:  m.CylinderType,
		CustomerTier:  m.CustomerTier,
		OperationType: m.OperationType,
	}
}

// ==================== Category models ====================

type categoryModel struct {
	grove.BaseModel `grove:"table:tariff_setting_categories"`

	ID          string    `grove:"id,pk"       bson:"_id"`
	Name        string    `grove:"name"        bson:"name"`
	Description string    `grove:"description" bson:"description"`
	IsActive    bool      `grove:"is_active"   bson:"is_active"`
	CreatedAt   time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"  bson:"updated_at"`
}

func toCategoryModel(c *setting.Category) *categoryModel {
	return &categoryModel{
		ID:          c.ID.String(),
		Name:        c.Name,
		Description: c.Description,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func fromCategoryModel(m *categoryModel) (*setting.Category, error) {
	categoryID, err := id.ParseCategoryID(m.ID)
	if err != nil {
		return nil, err
	}
	return &setting.Category{
		Entity:      types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:          categoryID,
		Name:        m.Name,
		Description: m.Description,
		IsActive:    m.IsActive,
	}, nil
}

// ==================== Setting models ====================

type settingModel struct {
	grove.BaseModel `grove:"table:tariff_business_settings"`

	ID            string     `grove:"id,pk"          bson:"_id"`
	CategoryID    string     `grove:"category_id"    bson:"category_id"`
	SettingKey    string     `grove:"setting_key"    bson:"setting_key"`
	SettingValue  string     `grove:"setting_value"  bson:"setting_value"`
	DataType      string     `grove:"data_type"      bson:"data_type"`
	Scope         scopeModel `grove:"scope"          bson:"scope"`
	Priority      int        `grove:"priority"       bson:"priority"`
	IsActive      bool       `grove:"is_active"      bson:"is_active"`
	Description   string     `grove:"description"    bson:"description"`
	EffectiveDate *time.Time `grove:"effective_date" bson:"effective_date,omitempty"`
	ExpiryDate    *time.Time `grove:"expiry_date"    bson:"expiry_date,omitempty"`
	CreatedAt     time.Time  `grove:"created_at"     bson:"created_at"`
	UpdatedAt     time.Time  `grove:"updated_at"     bson:"updated_at"`
}

func toSettingModel(s *setting.Setting) *settingModel {
	return &settingModel{
		ID:            s.ID.String(),
		CategoryID:    s.CategoryID.String(),
		SettingKey:    s.Key,
		SettingValue:  s.Value,
		DataType:      string(s.DataType),
		Scope:         toScopeModel(s.Scope),
		Priority:      s.Priority,
		IsActive:      s.IsActive,
		Description:   s.Description,
		EffectiveDate: s.EffectiveDate,
		ExpiryDate:    s.ExpiryDate,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func fromSettingModel(m *settingModel) (*setting.Setting, error) {
	settingID, err := id.ParseSettingID(m.ID)
	if err != nil {
		return nil, err
	}
	categoryID, err := id.ParseCategoryID(m.CategoryID)
	if err != nil {
		return nil, err
	}
	return &setting.Setting{
		Entity:      types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		Window:      window(m.EffectiveDate, m.ExpiryDate),
		ID:          settingID,
		CategoryID:  categoryID,
		Key:         m.SettingKey,
		Value:       m.SettingValue,
		DataType:    setting.DataType(m.DataType),
		Scope:       m.Scope.scope(),
		Priority:    m.Priority,
		IsActive:    m.IsActive,
		Description: m.Description,
	}, nil
}

// ==================== Rule models ====================

type conditionModel struct {
	Field    string `bson:"field"`
	Operator string `bson:"operator"`
	Value    any    `bson:"value"`
}

type actionModel struct {
	Type      string `bson:"type"`
	Value     string `bson:"value,omitempty"`
	ValueFrom string `bson:"value_from,omitempty"`
	Per       string `bson:"per,omitempty"`
	Base      string `bson:"base,omitempty"`
	TaxType   string `bson:"tax_type,omitempty"`
	Label     string `bson:"label,omitempty"`
}

type ruleModel struct {
	grove.BaseModel `grove:"table:tariff_pricing_rules"`

	ID            string           `grove:"id,pk"          bson:"_id"`
	CategoryID    string           `grove:"category_id"    bson:"category_id"`
	RuleName      string           `grove:"rule_name"      bson:"rule_name"`
	Description   string           `grove:"description"    bson:"description"`
	Conditions    []conditionModel `grove:"conditions"     bson:"conditions"`
	Actions       []actionModel    `grove:"actions"        bson:"actions"`
	AppliesTo     scopeModel       `grove:"applies_to"     bson:"applies_to"`
	Priority      int              `grove:"priority"       bson:"priority"`
	IsActive      bool             `grove:"is_active"      bson:"is_active"`
	EffectiveDate *time.Time       `grove:"effective_date" bson:"effective_date,omitempty"`
	ExpiryDate    *time.Time       `grove:"expiry_date"    bson:"expiry_date,omitempty"`
	CreatedAt     time.Time        `grove:"created_at"     bson:"created_at"`
	UpdatedAt     time.Time        `grove:"updated_at"     bson:"updated_at"`
}

func toRuleModel(r *rule.Rule) *ruleModel {
	conditions := make([]conditionModel, len(r.Conditions))
	for i, c := range r.Conditions {
		conditions[i] = conditionModel{Field: c.Field, Operator: string(c.Operator), Value: c.Value}
	}
	actions := make([]actionModel, len(r.Actions))
	for i, a := range r.Actions {
		actions[i] = actionModel{
			Type:      string(a.Type),
			Value:     a.Value,
			ValueFrom: a.ValueFrom,
			Per:       a.Per,
			Base:      a.Base,
			TaxType:   string(a.TaxType),
			Label:     a.Label,
		}
	}
	return &ruleModel{
		ID:            r.ID.String(),
		CategoryID:    r.CategoryID.String(),
		RuleName:      r.Name,
		Description:   r.Description,
		Conditions:    conditions,
		Actions:       actions,
		AppliesTo:     toScopeModel(r.AppliesTo),
		Priority:      r.Priority,
		IsActive:      r.IsActive,
		EffectiveDate: r.EffectiveDate,
		ExpiryDate:    r.ExpiryDate,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func fromRuleModel(m *ruleModel) (*rule.Rule, error) {
	ruleID, err := id.ParseRuleID(m.ID)
	if err != nil {
		return nil, err
	}
	categoryID, err := id.ParseCategoryID(m.CategoryID)
	if err != nil {
		return nil, err
	}

	conditions := make([]rule.Condition, len(m.Conditions))
	for i, c := range m.Conditions {
		conditions[i] = rule.Condition{Field: c.Field, Operator: rule.Operator(c.Operator), Value: c.Value}
	}
	actions := make([]rule.Action, len(m.Actions))
	for i, a := range m.Actions {
		actions[i] = rule.Action{
			Type:      rule.ActionType(a.Type),
			Value:     a.Value,
			ValueFrom: a.ValueFrom,
			Per:       a.Per,
			Base:      a.Base,
			TaxType:   rule.TaxType(a.TaxType),
			Label:     a.Label,
		}
	}

	return &rule.Rule{
		Entity:      types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		Window:      window(m.EffectiveDate, m.ExpiryDate),
		ID:          ruleID,
		CategoryID:  categoryID,
		Name:        m.RuleName,
		Description: m.Description,
		Conditions:  conditions,
		Actions:     actions,
		AppliesTo:   m.AppliesTo.scope(),
		Priority:    m.Priority,
		IsActive:    m.IsActive,
	}, nil
}

// ==================== Audit models ====================

// Snapshots are kept as JSON text so they read back byte for byte.
type auditModel struct {
	grove.BaseModel `grove:"table:tariff_settings_audit"`

	ID         string    `grove:"id,pk"           bson:"_id"`
	EntityType string    `grove:"entity_type"     bson:"entity_type"`
	EntityID   string    `grove:"entity_id"       bson:"entity_id"`
	Action     string    `grove:"action"          bson:"action"`
	ActorID    string    `grove:"actor_id"        bson:"actor_id"`
	Before     string    `grove:"before_snapshot" bson:"before_snapshot,omitempty"`
	After      string    `grove:"after_snapshot"  bson:"after_snapshot,omitempty"`
	Reason     string    `grove:"reason"          bson:"reason"`
	Timestamp  time.Time `grove:"timestamp"       bson:"timestamp"`
}

func toAuditModel(e *audit.Entry) *auditModel {
	return &auditModel{
		ID:         e.ID.String(),
		EntityType: string(e.EntityType),
		EntityID:   e.EntityID.String(),
		Action:     string(e.Action),
		ActorID:    e.ActorID,
		Before:     string(e.Before),
		After:      string(e.After),
		Reason:     e.Reason,
		Timestamp:  e.Timestamp,
	}
}

func fromAuditModel(m *auditModel) (*audit.Entry, error) {
	auditID, err := id.ParseAuditID(m.ID)
	if err != nil {
		return nil, err
	}
	entityID, err := id.ParseAny(m.EntityID)
	if err != nil {
		return nil, err
	}
	e := &audit.Entry{
		ID:         auditID,
		EntityType: audit.EntityType(m.EntityType),
		EntityID:   entityID,
		Action:     audit.Action(m.Action),
		ActorID:    m.ActorID,
		Reason:     m.Reason,
		Timestamp:  m.Timestamp.UTC(),
	}
	if m.Before != "" {
		e.Before = json.RawMessage(m.Before)
	}
	if m.After != "" {
		e.After = json.RawMessage(m.After)
	}
	return e, nil
}

// window normalizes decoded bounds to UTC; the driver decodes to local time.
func window(effective, expiry *time.Time) types.Window {
	var w types.Window
	if effective != nil {
		t := effective.UTC()
		w.EffectiveDate = &t
	}
	if expiry != nil {
		t := expiry.UTC()
		w.ExpiryDate = &t
	}
	return w
}
