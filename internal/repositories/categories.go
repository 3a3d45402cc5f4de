package repositories

import (
	"github.com/estivenmendezr98/TAREAS/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type CategoryRepository interface {
	Create(db *gorm.DB, category *models.Category) error
	List(db *gorm.DB, owner uuid.UUID) ([]models.Category, error)
	FindOwned(db *gorm.DB, owner, id uuid.UUID) (*models.Category, error)
	Delete(db *gorm.DB, owner, id uuid.UUID) error
}

type CategoryRepositoryImpl struct{}

func NewCategoryRepository() *CategoryRepositoryImpl {
	return &CategoryRepositoryImpl{}
}

func (r *CategoryRepositoryImpl) Create(db *gorm.DB, category *models.Category) error {
	return db.Create(category).Error
}

func (r *CategoryRepositoryImpl) List(db *gorm.DB, owner uuid.UUID) ([]models.Category, error) {
	categories := []models.Category{}
	err := db.Where("user_id = ?", owner).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *CategoryRepositoryImpl) FindOwned(db *gorm.DB, owner, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := db.Where("id = ? AND user_id = ?", id, owner).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// Delete removes the category and detaches it from the owner's projects.
func (r *CategoryRepositoryImpl) Delete(db *gorm.DB, owner, id uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Project{}).
			Where("category_id = ? AND user_id = ?", id, owner).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		result := tx.Where("id = ? AND user_id = ?", id, owner).Delete(&models.Category{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
