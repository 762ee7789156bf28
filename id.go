package tariff

import "github.com/xraph/tariff/id"

// ID is the primary identifier type for all Tariff entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix

// Entity ID aliases.
type (
	CategoryID = id.CategoryID
	SettingID  = id.SettingID
	RuleID     = id.RuleID
	AuditID    = id.AuditID
)

// Re-export ID parsers
var (
	ParseCategoryID = id.ParseCategoryID
	ParseSettingID  = id.ParseSettingID
	ParseRuleID     = id.ParseRuleID
	ParseAuditID    = id.ParseAuditID
)
