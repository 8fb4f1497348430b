package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"taskboard/internal/models"
)

// GetCategories lists all categories. Concurrent callers share one backend
// call, which does not inherit any single caller's cancellation; each caller
// stops waiting when its own context is done.
func (b *Board) GetCategories(ctx context.Context) ([]models.Category, error) {
	shared := context.WithoutCancel(ctx)
	ch := b.sf.DoChan("categories", func() (any, error) {
		return b.store.ListCategories(shared)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to list categories: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("failed to list categories: %w", res.Err)
		}
		return res.Val.([]models.Category), nil
	}
}

// CreateCategory inserts a category. An unknown color is replaced with gray.
func (b *Board) CreateCategory(ctx context.Context, name, color string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, &ValidationError{Violations: []string{"Category name is required and must be a non-empty string"}}
	}

	if _, ok := models.CategoryColors[color]; !ok {
		if color != "" {
			b.logger.Warn("invalid category color, using default", slog.String("color", color), slog.String("default", models.DefaultCategoryColor))
		}
		color = models.DefaultCategoryColor
	}

	category, err := b.store.InsertCategory(ctx, models.Category{Name: name, Color: color})
	if err != nil {
		return models.Category{}, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}
