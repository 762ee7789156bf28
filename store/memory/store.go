// Package memory provides an in-process store.Store. It is the reference
// backend for tests and single-process deployments.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/setting"
	"github.com/xraph/tariff/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	categories map[string]*setting.Category
	settings   map[string]*setting.Setting
	rules      map[string]*rule.Rule

	// Audit entries, append-only
	audit []*audit.Entry

	closed bool
}

func New() *Store {
	return &Store{
		categories: make(map[string]*setting.Category),
		settings:   make(map[string]*setting.Setting),
		rules:      make(map[string]*rule.Rule),
	}
}

// Category Store implementation
func (s *Store) CreateCategory(_ context.Context, c *setting.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[c.ID.String()]; exists {
		return errdefs.ErrAlreadyExists
	}
	s.categories[c.ID.String()] = c.Clone()
	return nil
}

func (s *Store) GetCategory(_ context.Context, categoryID id.CategoryID) (*setting.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.categories[categoryID.String()]; ok {
		return c.Clone(), nil
	}
	return nil, errdefs.ErrCategoryNotFound
}

func (s *Store) ListCategories(_ context.Context, opts setting.CategoryListOpts) ([]*setting.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*setting.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if opts.ActiveOnly && !c.IsActive {
			continue
		}
		result = append(result, c.Clone())
	}
	slices.SortFunc(result, func(a, b *setting.Category) int { return a.ID.Compare(b.ID) })

	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) UpdateCategory(_ context.Context, c *setting.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[c.ID.String()]; !exists {
		return errdefs.ErrCategoryNotFound
	}
	s.categories[c.ID.String()] = c.Clone()
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, categoryID id.CategoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.categories, categoryID.String())
	return nil
}

// Setting Store implementation
func (s *Store) CreateSetting(_ context.Context, st *setting.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.settings[st.ID.String()]; exists {
		return errdefs.ErrAlreadyExists
	}
	s.settings[st.ID.String()] = st.Clone()
	return nil
}

func (s *Store) GetSetting(_ context.Context, settingID id.SettingID) (*setting.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.settings[settingID.String()]; ok {
		return st.Clone(), nil
	}
	return nil, errdefs.ErrSettingNotFound
}

func (s *Store) ListActiveSettings(_ context.Context, key string) ([]*setting.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errdefs.ErrStoreClosed
	}

	result := make([]*setting.Setting, 0)
	for _, st := range s.settings {
		if st.IsActive && st.Key == key {
			result = append(result, st.Clone())
		}
	}
	slices.SortFunc(result, func(a, b *setting.Setting) int { return a.ID.Compare(b.ID) })
	return result, nil
}

func (s *Store) ListSettings(_ context.Context, opts setting.ListOpts) ([]*setting.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*setting.Setting, 0)
	for _, st := range s.settings {
		if opts.ActiveOnly && !st.IsActive {
			continue
		}
		if opts.Key != "" && st.Key != opts.Key {
			continue
		}
		if opts.CategoryID != nil && st.CategoryID.String() != opts.CategoryID.String() {
			continue
		}
		result = append(result, st.Clone())
	}
	slices.SortFunc(result, func(a, b *setting.Setting) int { return a.ID.Compare(b.ID) })

	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) UpdateSetting(_ context.Context, st *setting.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.settings[st.ID.String()]; !exists {
		return errdefs.ErrSettingNotFound
	}
	s.settings[st.ID.String()] = st.Clone()
	return nil
}

func (s *Store) DeleteSetting(_ context.Context, settingID id.SettingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.settings, settingID.String())
	return nil
}

// Rule Store implementation
func (s *Store) CreateRule(_ context.Context, r *rule.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[r.ID.String()]; exists {
		return errdefs.ErrAlreadyExists
	}
	s.rules[r.ID.String()] = r.Clone()
	return nil
}

func (s *Store) GetRule(_ context.Context, ruleID id.RuleID) (*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.rules[ruleID.String()]; ok {
		return r.Clone(), nil
	}
	return nil, errdefs.ErrRuleNotFound
}

func (s *Store) ListActiveRules(_ context.Context, operationType string) ([]*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errdefs.ErrStoreClosed
	}

	result := make([]*rule.Rule, 0)
	for _, r := range s.rules {
		if !r.IsActive {
			continue
		}
		if op := r.AppliesTo.OperationType; op != "" && op != operationType {
			continue
		}
		result = append(result, r.Clone())
	}
	slices.SortFunc(result, func(a, b *rule.Rule) int { return a.ID.Compare(b.ID) })
	return result, nil
}

func (s *Store) ListRules(_ context.Context, opts rule.ListOpts) ([]*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*rule.Rule, 0)
	for _, r := range s.rules {
		if opts.ActiveOnly && !r.IsActive {
			continue
		}
		if opts.OperationType != "" && r.AppliesTo.OperationType != opts.OperationType {
			continue
		}
		result = append(result, r.Clone())
	}
	slices.SortFunc(result, func(a, b *rule.Rule) int { return a.ID.Compare(b.ID) })

	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) UpdateRule(_ context.Context, r *rule.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[r.ID.String()]; !exists {
		return errdefs.ErrRuleNotFound
	}
	s.rules[r.ID.String()] = r.Clone()
	return nil
}

func (s *Store) DeleteRule(_ context.Context, ruleID id.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rules, ruleID.String())
	return nil
}

// Audit Store implementation
func (s *Store) AppendAudit(_ context.Context, e *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit = append(s.audit, e.Clone())
	return nil
}

func (s *Store) ListAudit(_ context.Context, entityType audit.EntityType, entityID id.ID) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*audit.Entry, 0)
	for _, e := range s.audit {
		if e.EntityType == entityType && e.EntityID.String() == entityID.String() {
			result = append(result, e.Clone())
		}
	}
	slices.SortStableFunc(result, func(a, b *audit.Entry) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return a.ID.Compare(b.ID)
	})
	return result, nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errdefs.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
