package services

import (
	"context"
	"strings"

	"github.com/estivenmendezr98/TAREAS/internal/models"
	"github.com/estivenmendezr98/TAREAS/internal/repositories"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const defaultCategoryColor = "#3b82f6"

type CreateCategoryRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

type CategoryService interface {
	GetCategories(ctx context.Context, db *gorm.DB, owner uuid.UUID) ([]models.Category, error)
	CreateCategory(ctx context.Context, db *gorm.DB, owner uuid.UUID, req CreateCategoryRequest) (*models.Category, error)
	DeleteCategory(ctx context.Context, db *gorm.DB, owner, id uuid.UUID) error
}

type CategoryServiceImpl struct {
	categories repositories.CategoryRepository
}

func NewCategoryService() *CategoryServiceImpl {
	return &CategoryServiceImpl{categories: repositories.NewCategoryRepository()}
}

func (s *CategoryServiceImpl) GetCategories(_ context.Context, db *gorm.DB, owner uuid.UUID) ([]models.Category, error) {
	return s.categories.List(db, owner)
}

func (s *CategoryServiceImpl) CreateCategory(_ context.Context, db *gorm.DB, owner uuid.UUID, req CreateCategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyTitle
	}
	color := strings.TrimSpace(req.Color)
	if color == "" {
		color = defaultCategoryColor
	}
	category := &models.Category{UserID: owner, Name: name, Color: color}
	if err := s.categories.Create(db, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory detaches the category from its projects before removing it.
func (s *CategoryServiceImpl) DeleteCategory(_ context.Context, db *gorm.DB, owner, id uuid.UUID) error {
	return s.categories.Delete(db, owner, id)
}
