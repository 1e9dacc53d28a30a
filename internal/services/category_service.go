package services

import (
	"context"
	"fmt"
	"strings"

	"task-service/internal/models"

	"go.uber.org/zap"
)

type CategoryStore interface {
	Create(ctx context.Context, category *models.Category) error
	Save(ctx context.Context, category *models.Category) error
	FindByID(ctx context.Context, userID, id uint) (*models.Category, error)
	Delete(ctx context.Context, userID, id uint) error
}

type CategoryEvents interface {
	EmitCategoryCreated(userID uint, category *models.Category)
	EmitCategoryUpdated(userID uint, category *models.Category)
	EmitCategoryDeleted(userID uint, categoryID uint)
}

type CategoryService struct {
	repo   CategoryStore
	events CategoryEvents
	log    *zap.Logger
}

func NewCategoryService(repo CategoryStore, events CategoryEvents, log *zap.Logger) *CategoryService {
	return &CategoryService{repo: repo, events: events, log: log.Named("category-service")}
}

func (s *CategoryService) Create(ctx context.Context, userID uint, req *models.CreateCategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}

	category := &models.Category{UserID: userID, Name: name, Color: req.Color}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.events.EmitCategoryCreated(userID, category)
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, userID, categoryID uint, req *models.UpdateCategoryRequest) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidRequest)
		}
		category.Name = name
	}
	if req.Color != nil {
		category.Color = *req.Color
	}

	if err := s.repo.Save(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to update category %d: %w", categoryID, err)
	}

	s.events.EmitCategoryUpdated(userID, category)
	return category, nil
}

// Delete removes the category; its tasks are kept and become uncategorized
func (s *CategoryService) Delete(ctx context.Context, userID, categoryID uint) error {
	if err := s.repo.Delete(ctx, userID, categoryID); err != nil {
		return err
	}
	s.events.EmitCategoryDeleted(userID, categoryID)
	return nil
}
