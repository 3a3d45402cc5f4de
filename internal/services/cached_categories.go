package services

import (
	"context"
	"fmt"
	"time"

	"github.com/estivenmendezr98/TAREAS/internal/cache"
	"github.com/estivenmendezr98/TAREAS/internal/logger"
	"github.com/estivenmendezr98/TAREAS/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const categoriesTTL = 30 * time.Minute

// CachedCategoryService keeps each owner's category list in the cache and
// drops it on every write. Category lists carry no lifecycle state, so a
// stale entry can never show a recycled item.
type CachedCategoryService struct {
	categoryService CategoryService
	cache           cache.Cache
	log             *logger.Logger
}

func NewCachedCategoryService(categoryService CategoryService, cacheInstance cache.Cache) *CachedCategoryService {
	return &CachedCategoryService{
		categoryService: categoryService,
		cache:           cacheInstance,
		log:             logger.Default().With(logger.F("component", "category_cache")),
	}
}

func categoriesKey(owner uuid.UUID) string {
	return fmt.Sprintf("categories:%s", owner.String())
}

func (s *CachedCategoryService) GetCategories(ctx context.Context, db *gorm.DB, owner uuid.UUID) ([]models.Category, error) {
	key := categoriesKey(owner)

	var cached []models.Category
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	categories, err := s.categoryService.GetCategories(ctx, db, owner)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, categories, categoriesTTL); err != nil {
		s.log.Debug("category cache set failed", logger.Err(err))
	}
	return categories, nil
}

func (s *CachedCategoryService) CreateCategory(ctx context.Context, db *gorm.DB, owner uuid.UUID, req CreateCategoryRequest) (*models.Category, error) {
	category, err := s.categoryService.CreateCategory(ctx, db, owner, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, owner)
	return category, nil
}

func (s *CachedCategoryService) DeleteCategory(ctx context.Context, db *gorm.DB, owner, id uuid.UUID) error {
	if err := s.categoryService.DeleteCategory(ctx, db, owner, id); err != nil {
		return err
	}
	s.invalidate(ctx, owner)
	return nil
}

func (s *CachedCategoryService) invalidate(ctx context.Context, owner uuid.UUID) {
	if err := s.cache.Delete(ctx, categoriesKey(owner)); err != nil {
		s.log.Warn("category cache invalidation failed", logger.F("owner", owner.String()), logger.Err(err))
	}
}
