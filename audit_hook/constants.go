package audithook

// Action constants for audit events.
const (
	// Category actions
	ActionCategoryCreated     = "category.created"
	ActionCategoryUpdated     = "category.updated"
	ActionCategoryDeactivated = "category.deactivated"

	// Setting actions
	ActionSettingCreated = "setting.created"
	ActionSettingUpdated = "setting.updated"
	ActionSettingDeleted = "setting.deleted"

	// Pricing rule actions
	ActionRuleCreated = "rule.created"
	ActionRuleUpdated = "rule.updated"
	ActionRuleDeleted = "rule.deleted"

	// Pricing actions
	ActionNoPricingConfigured = "pricing.unconfigured"
	ActionBulkFailed          = "pricing.bulk_failed"

	// Cache actions
	ActionCacheDegraded = "cache.degraded"
)

// Resource constants for audit events.
const (
	ResourceCategory = "category"
	ResourceSetting  = "setting"
	ResourceRule     = "pricing_rule"
	ResourcePricing  = "pricing"
	ResourceCache    = "cache"
)

// Category constants for audit events.
const (
	CategoryConfiguration = "configuration"
	CategoryPricing       = "pricing"
	CategoryInfra         = "infrastructure"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
