package setting

import (
	"context"

	"github.com/xraph/tariff/id"
)

type Store interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, categoryID id.CategoryID) (*Category, error)
	ListCategories(ctx context.Context, opts CategoryListOpts) ([]*Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	// DeleteCategory removes a row outright. Categories are otherwise only
	// deactivated; this exists to roll back an unaudited create.
	DeleteCategory(ctx context.Context, categoryID id.CategoryID) error

	CreateSetting(ctx context.Context, s *Setting) error
	GetSetting(ctx context.Context, settingID id.SettingID) (*Setting, error)
	// ListActiveSettings returns every active setting with the given key,
	// regardless of scope or validity window.
	ListActiveSettings(ctx context.Context, key string) ([]*Setting, error)
	ListSettings(ctx context.Context, opts ListOpts) ([]*Setting, error)
	UpdateSetting(ctx context.Context, s *Setting) error
	// DeleteSetting removes a row outright. The engine only uses it to
	// roll back a create whose audit entry could not be written.
	DeleteSetting(ctx context.Context, settingID id.SettingID) error
}

type CategoryListOpts struct {
	ActiveOnly bool
	Limit      int
	Offset     int
}

type ListOpts struct {
	CategoryID *id.CategoryID
	Key        string
	ActiveOnly bool
	Limit      int
	Offset     int
}
