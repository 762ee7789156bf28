// Package seed loads a YAML catalogue of categories, settings and pricing
// rules and applies it through the engine's audited write path.
//
// Applying a catalogue is repeatable. Categories are matched by name,
// rules by name within their category, and a setting whose key and scope
// already hold an active value is left alone.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/setting"
	"github.com/xraph/tariff/types"
)

// DefaultActor is recorded in the audit trail when no actor is given.
const DefaultActor = "system:seed"

// Catalogue is the root of a seed file.
type Catalogue struct {
	Categories []Category `yaml:"categories"`
}

type Category struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Settings    []Setting `yaml:"settings,omitempty"`
	Rules       []Rule    `yaml:"rules,omitempty"`
}

type Setting struct {
	Key           string           `yaml:"key"`
	Value         string           `yaml:"value"`
	DataType      setting.DataType `yaml:"dataType"`
	Scope         scope.Scope      `yaml:"scope,omitempty"`
	Priority      int              `yaml:"priority,omitempty"`
	Description   string           `yaml:"description,omitempty"`
	EffectiveDate *time.Time       `yaml:"effectiveDate,omitempty"`
	ExpiryDate    *time.Time       `yaml:"expiryDate,omitempty"`
}

type Rule struct {
	Name          string           `yaml:"name"`
	Description   string           `yaml:"description,omitempty"`
	Conditions    []rule.Condition `yaml:"conditions,omitempty"`
	Actions       []rule.Action    `yaml:"actions"`
	AppliesTo     scope.Scope      `yaml:"appliesTo,omitempty"`
	Priority      int              `yaml:"priority,omitempty"`
	EffectiveDate *time.Time       `yaml:"effectiveDate,omitempty"`
	ExpiryDate    *time.Time       `yaml:"expiryDate,omitempty"`
}

// Writer is the subset of *tariff.Engine a catalogue is applied through.
type Writer interface {
	ListCategories(ctx context.Context, opts setting.CategoryListOpts) ([]*setting.Category, error)
	CreateCategory(ctx context.Context, c *setting.Category, actorID string) error
	CreateSetting(ctx context.Context, s *setting.Setting, actorID string) error
	ListRules(ctx context.Context, opts rule.ListOpts) ([]*rule.Rule, error)
	CreateRule(ctx context.Context, r *rule.Rule, actorID string) error
}

// Report counts what Apply did.
type Report struct {
	CategoriesCreated int
	SettingsCreated   int
	RulesCreated      int
	Skipped           int
}

// Parse decodes a catalogue. Unknown fields are rejected.
func Parse(r io.Reader) (*Catalogue, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Catalogue
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return &c, nil
		}
		return nil, fmt.Errorf("seed: decode catalogue: %w", err)
	}
	return &c, nil
}

// LoadFile reads and parses the catalogue at path.
func LoadFile(path string) (*Catalogue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Apply writes every entry of c that does not exist yet. It keeps going
// past individual failures and returns them together as a MultiError.
func Apply(ctx context.Context, w Writer, c *Catalogue, actorID string) (Report, error) {
	if actorID == "" {
		actorID = DefaultActor
	}

	var (
		rep  Report
		errs errdefs.MultiError
	)

	existing, err := w.ListCategories(ctx, setting.CategoryListOpts{})
	if err != nil {
		return rep, fmt.Errorf("seed: list categories: %w", err)
	}
	byName := make(map[string]*setting.Category, len(existing))
	for _, cat := range existing {
		byName[cat.Name] = cat
	}

	rules, err := w.ListRules(ctx, rule.ListOpts{ActiveOnly: true})
	if err != nil {
		return rep, fmt.Errorf("seed: list rules: %w", err)
	}
	ruleNames := make(map[string]bool, len(rules))
	for _, r := range rules {
		ruleNames[r.CategoryID.String()+"/"+r.Name] = true
	}

	for _, entry := range c.Categories {
		cat, ok := byName[entry.Name]
		if !ok {
			cat = &setting.Category{Name: entry.Name, Description: entry.Description}
			if err := w.CreateCategory(ctx, cat, actorID); err != nil {
				errs.Add(fmt.Errorf("seed: category %q: %w", entry.Name, err))
				continue
			}
			byName[entry.Name] = cat
			rep.CategoriesCreated++
		}

		for _, s := range entry.Settings {
			err := w.CreateSetting(ctx, &setting.Setting{
				Window:      types.Window{EffectiveDate: s.EffectiveDate, ExpiryDate: s.ExpiryDate},
				CategoryID:  cat.ID,
				Key:         s.Key,
				Value:       s.Value,
				DataType:    s.DataType,
				Scope:       s.Scope,
				Priority:    s.Priority,
				Description: s.Description,
			}, actorID)
			switch {
			case errors.Is(err, errdefs.ErrUniquenessConflict):
				rep.Skipped++
			case err != nil:
				errs.Add(fmt.Errorf("seed: setting %q: %w", s.Key, err))
			default:
				rep.SettingsCreated++
			}
		}

		for _, r := range entry.Rules {
			name := cat.ID.String() + "/" + r.Name
			if ruleNames[name] {
				rep.Skipped++
				continue
			}
			err := w.CreateRule(ctx, &rule.Rule{
				Window:      types.Window{EffectiveDate: r.EffectiveDate, ExpiryDate: r.ExpiryDate},
				CategoryID:  cat.ID,
				Name:        r.Name,
				Description: r.Description,
				Conditions:  r.Conditions,
				Actions:     r.Actions,
				AppliesTo:   r.AppliesTo,
				Priority:    r.Priority,
			}, actorID)
			if err != nil {
				errs.Add(fmt.Errorf("seed: rule %q: %w", r.Name, err))
				continue
			}
			ruleNames[name] = true
			rep.RulesCreated++
		}
	}

	if errs.HasErrors() {
		return rep, errs
	}
	return rep, nil
}
