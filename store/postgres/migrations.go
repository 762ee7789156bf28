package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Tariff store.
var Migrations = migrate.NewGroup("tariff")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tariff_setting_categories",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tariff_setting_categories (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    is_active   BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tariff_categories_active ON tariff_setting_categories (is_active);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tariff_setting_categories`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tariff_business_settings",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tariff_business_settings (
    id             TEXT PRIMARY KEY,
    category_id    TEXT NOT NULL REFERENCES tariff_setting_categories (id),
    setting_key    TEXT NOT NULL,
    setting_value  TEXT NOT NULL DEFAULT '',
    data_type      TEXT NOT NULL,
    outlet_id      TEXT NOT NULL DEFAULT '',
    cylinder_type  TEXT NOT NULL DEFAULT '',
    customer_tier  TEXT NOT NULL DEFAULT '',
    operation_type TEXT NOT NULL DEFAULT '',
    priority       INT NOT NULL DEFAULT 1,
    is_active      BOOLEAN NOT NULL DEFAULT TRUE,
    description    TEXT NOT NULL DEFAULT '',
    effective_date TIMESTAMPTZ,
    expiry_date    TIMESTAMPTZ,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tariff_settings_lookup
    ON tariff_business_settings (setting_key, outlet_id, cylinder_type, customer_tier, operation_type)
    WHERE is_active;
CREATE INDEX IF NOT EXISTS idx_tariff_settings_category ON tariff_business_settings (category_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tariff_business_settings`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tariff_pricing_rules",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tariff_pricing_rules (
    id             TEXT PRIMARY KEY,
    category_id    TEXT NOT NULL REFERENCES tariff_setting_categories (id),
    rule_name      TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    conditions     JSONB NOT NULL DEFAULT '[]',
    actions        JSONB NOT NULL DEFAULT '[]',
    outlet_id      TEXT NOT NULL DEFAULT '',
    cylinder_type  TEXT NOT NULL DEFAULT '',
    customer_tier  TEXT NOT NULL DEFAULT '',
    operation_type TEXT NOT NULL DEFAULT '',
    priority       INT NOT NULL DEFAULT 0,
    is_active      BOOLEAN NOT NULL DEFAULT TRUE,
    effective_date TIMESTAMPTZ,
    expiry_date    TIMESTAMPTZ,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tariff_rules_operation
    ON tariff_pricing_rules (operation_type, priority DESC)
    WHERE is_active;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tariff_pricing_rules`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tariff_settings_audit",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tariff_settings_audit (
    id              TEXT PRIMARY KEY,
    entity_type     TEXT NOT NULL,
    entity_id       TEXT NOT NULL,
    action          TEXT NOT NULL,
    actor_id        TEXT NOT NULL,
    before_snapshot JSONB,
    after_snapshot  JSONB,
    reason          TEXT NOT NULL DEFAULT '',
    timestamp       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tariff_audit_entity ON tariff_settings_audit (entity_type, entity_id, timestamp);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tariff_settings_audit`)
				return err
			},
		},
	)
}
