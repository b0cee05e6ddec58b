package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pfm/internal/cache"
	"pfm/internal/core"
	applog "pfm/internal/log"
	"pfm/internal/store"
)

const categoriesKey = "categories"

// CategoryService serves the category list from a short-lived cache.
type CategoryService struct {
	store store.CategoryStore
	cache *cache.LRUCache[[]core.Category]
}

// NewCategoryService caches the category list for ttl and registers the
// cache with manager when one is given.
func NewCategoryService(st store.CategoryStore, ttl time.Duration, manager *cache.Manager) *CategoryService {
	c := cache.NewLRUCache[[]core.Category](4, ttl)
	if manager != nil {
		manager.Register(categoriesKey, c)
	}
	return &CategoryService{store: st, cache: c}
}

// List returns built-in and custom categories in store order.
func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	if cats, ok := s.cache.Get(categoriesKey); ok {
		return clone(cats), nil
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	s.cache.Set(categoriesKey, cats)
	slog.DebugContext(ctx, "Category cache refreshed",
		applog.FieldComponent, applog.ComponentCache,
		"count", len(cats))
	return clone(cats), nil
}

// ListByKind returns the categories of kind k.
func (s *CategoryService) ListByKind(ctx context.Context, k core.Kind) ([]core.Category, error) {
	cats, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Category, 0, len(cats))
	for _, c := range cats {
		if c.Type == k {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (core.Category, error) {
	return s.store.GetCategory(ctx, id)
}

// Add stores a user-defined category. Names are unique case-insensitively.
func (s *CategoryService) Add(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Custom = true
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	existing, err := s.List(ctx)
	if err != nil {
		return core.Category{}, err
	}
	for _, e := range existing {
		if strings.EqualFold(e.Name, c.Name) {
			return core.Category{}, fmt.Errorf("category %q: %w", c.Name, core.ErrDuplicateName)
		}
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.cache.Delete(categoriesKey)
	return c, nil
}

// Delete removes a custom category. Built-ins are rejected.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if core.IsBuiltinCategory(id) {
		return core.ErrBuiltinCategory
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(categoriesKey)
	return nil
}

func clone(cats []core.Category) []core.Category {
	out := make([]core.Category, len(cats))
	copy(out, cats)
	return out
}
