package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/setting"
	"github.com/xraph/tariff/types"
)

// ==================== Category models ====================

type categoryModel struct {
	grove.BaseModel `grove:"table:tariff_setting_categories"`

	ID          string    `grove:"id,pk"`
	Name        string    `grove:"name"`
	Description string    `grove:"description"`
	IsActive    bool      `grove:"is_active"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
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
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          categoryID,
		Name:        m.Name,
		Description: m.Description,
		IsActive:    m.IsActive,
	}, nil
}

// ==================== Setting models ====================

type settingModel struct {
	grove.BaseModel `grove:"table:tariff_business_settings"`

	ID            string     `grove:"id,pk"`
	CategoryID    string     `grove:"category_id"`
	SettingKey    string     `grove:"setting_key"`
	SettingValue  string     `grove:"setting_value"`
	DataType      string     `grove:"data_type"`
	OutletID      string     `grove:"outlet_id"`
	CylinderType  string     `grove:"cylinder_type"`
	CustomerTier  string     `grove:"customer_tier"`
	OperationType string     `grove:"operation_type"`
	Priority      int        `grove:"priority"`
	IsActive      bool       `grove:"is_active"`
	Description   string     `grove:"description"`
	EffectiveDate *time.Time `grove:"effective_date"`
	ExpiryDate    *time.Time `grove:"expiry_date"`
	CreatedAt     time.Time  `grove:"created_at"`
	UpdatedAt     time.Time  `grove:"updated_at"`
}

func toSettingModel(s *setting.Setting) *settingModel {
	return &settingModel{
		ID:            s.ID.String(),
		CategoryID:    s.CategoryID.String(),
		SettingKey:    s.Key,
		SettingValue:  s.Value,
		DataType:      string(s.DataType),
		OutletID:      s.Scope.OutletID,
		CylinderType:  s.Scope.CylinderType,
		CustomerTier:  s.Scope.CustomerTier,
		OperationType: s.Scope.OperationType,
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
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Window:     types.Window{EffectiveDate: m.EffectiveDate, ExpiryDate: m.ExpiryDate},
		ID:         settingID,
		CategoryID: categoryID,
		Key:        m.SettingKey,
		Value:      m.SettingValue,
		DataType:   setting.DataType(m.DataType),
		Scope: scope.Scope{
			OutletID:      m.OutletID,
			CylinderType:  m.CylinderType,
			CustomerTier:  m.CustomerTier,
			OperationType: m.OperationType,
		},
		Priority:    m.Priority,
		IsActive:    m.IsActive,
		Description: m.Description,
	}, nil
}

// ==================== Rule models ====================

type ruleModel struct {
	grove.BaseModel `grove:"table:tariff_pricing_rules"`

	ID            string          `grove:"id,pk"`
	CategoryID    string          `grove:"category_id"`
	RuleName      string          `grove:"rule_name"`
	Description   string          `grove:"description"`
	Conditions    string          `grove:"conditions"`
	Actions       string          `grove:"actions"`
	OutletID      string          `grove:"outlet_id"`
	CylinderType  string          `grove:"cylinder_type"`
	CustomerTier  string          `grove:"customer_tier"`
	OperationType string          `grove:"operation_type"`
	Priority      int             `grove:"priority"`
	IsActive      bool            `grove:"is_active"`
	EffectiveDate *time.Time      `grove:"effective_date"`
	ExpiryDate    *time.Time      `grove:"expiry_date"`
	CreatedAt     time.Time       `grove:"created_at"`
	UpdatedAt     time.Time       `grove:"updated_at"`
}

func toRuleModel(r *rule.Rule) (*ruleModel, error) {
	conditions := r.Conditions
	if conditions == nil {
		conditions = []rule.Condition{}
	}
	condJSON, err := json.Marshal(conditions)
	if err != nil {
		return nil, fmt.Errorf("encode conditions: %w", err)
	}
	actJSON, err := json.Marshal(r.Actions)
	if err != nil {
		return nil, fmt.Errorf("encode actions: %w", err)
	}
	return &ruleModel{
		ID:            r.ID.String(),
		CategoryID:    r.CategoryID.String(),
		RuleName:      r.Name,
		Description:   r.Description,
		Conditions:    string(condJSON),
		Actions:       string(actJSON),
		OutletID:      r.AppliesTo.OutletID,
		CylinderType:  r.AppliesTo.CylinderType,
		CustomerTier:  r.AppliesTo.CustomerTier,
		OperationType: r.AppliesTo.OperationType,
		Priority:      r.Priority,
		IsActive:      r.IsActive,
		EffectiveDate: r.EffectiveDate,
		ExpiryDate:    r.ExpiryDate,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}, nil
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

	var conditions []rule.Condition
	if m.Conditions != "" {
		if err := json.Unmarshal([]byte(m.Conditions), &conditions); err != nil {
			return nil, fmt.Errorf("decode conditions of %s: %w", m.ID, err)
		}
	}
	var actions []rule.Action
	if m.Actions != "" {
		if err := json.Unmarshal([]byte(m.Actions), &actions); err != nil {
			return nil, fmt.Errorf("decode actions of %s: %w", m.ID, err)
		}
	}

	return &rule.Rule{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Window:      types.Window{EffectiveDate: m.EffectiveDate, ExpiryDate: m.ExpiryDate},
		ID:          ruleID,
		CategoryID:  categoryID,
		Name:        m.RuleName,
		Description: m.Description,
		Conditions:  conditions,
		Actions:     actions,
		AppliesTo: scope.Scope{
			OutletID:      m.OutletID,
			CylinderType:  m.CylinderType,
			CustomerTier:  m.CustomerTier,
			OperationType: m.OperationType,
		},
		Priority: m.Priority,
		IsActive: m.IsActive,
	}, nil
}

// ==================== Audit models ====================

type auditModel struct {
	grove.BaseModel `grove:"table:tariff_settings_audit"`

	ID         string          `grove:"id,pk"`
	EntityType string          `grove:"entity_type"`
	EntityID   string          `grove:"entity_id"`
	Action     string          `grove:"action"`
	ActorID    string          `grove:"actor_id"`
	Before     *string         `grove:"before_snapshot"`
	After      *string         `grove:"after_snapshot"`
	Reason     string          `grove:"reason"`
	Timestamp  time.Time       `grove:"timestamp"`
}

func toAuditModel(e *audit.Entry) *auditModel {
	return &auditModel{
		ID:         e.ID.String(),
		EntityType: string(e.EntityType),
		EntityID:   e.EntityID.String(),
		Action:     string(e.Action),
		ActorID:    e.ActorID,
		Before:     textJSON(e.Before),
		After:      textJSON(e.After),
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
	return &audit.Entry{
		ID:         auditID,
		EntityType: audit.EntityType(m.EntityType),
		EntityID:   entityID,
		Action:     audit.Action(m.Action),
		ActorID:    m.ActorID,
		Before:     rawJSON(m.Before),
		After:      rawJSON(m.After),
		Reason:     m.Reason,
		Timestamp:  m.Timestamp.UTC(),
	}, nil
}

// Snapshots are stored as TEXT; a NULL column means no snapshot.
func textJSON(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	v := string(raw)
	return &v
}

func rawJSON(v *string) json.RawMessage {
	if v == nil || *v == "" || *v == "null" {
		return nil
	}
	return json.RawMessage(*v)
}
