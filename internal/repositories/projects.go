package repositories

import (
	"github.com/estivenmendezr98/TAREAS/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type ProjectRepository interface {
	Create(db *gorm.DB, project *models.Project) error
	FindOwned(db *gorm.DB, owner, id uuid.UUID) (*models.Project, error)
	List(db *gorm.DB, owner uuid.UUID, view ProjectView) ([]models.Project, error)
	ListDeleted(db *gorm.DB, owner uuid.UUID) ([]models.Project, error)
	Update(db *gorm.DB, owner, id uuid.UUID, fields map[string]interface{}) (*models.Project, error)
}

type ProjectRepositoryImpl struct{}

func NewProjectRepository() *ProjectRepositoryImpl {
	return &ProjectRepositoryImpl{}
}

func (r *ProjectRepositoryImpl) Create(db *gorm.DB, project *models.Project) error {
	return db.Omit("Tasks", "Category").Create(project).Error
}

// FindOwned loads a project of any lifecycle state. Foreign projects are
// reported as gorm.ErrRecordNotFound.
func (r *ProjectRepositoryImpl) FindOwned(db *gorm.DB, owner, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := db.Scopes(OwnedBy(owner)).
		Where("projects.id = ?", id).
		First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// List returns the owner's non-deleted projects with their non-deleted tasks.
func (r *ProjectRepositoryImpl) List(db *gorm.DB, owner uuid.UUID, view ProjectView) ([]models.Project, error) {
	projects := []models.Project{}
	err := db.Scopes(OwnedBy(owner), NotDeleted("projects"), view.scope()).
		Preload("Category").
		Preload("Tasks", func(tx *gorm.DB) *gorm.DB {
			return tx.Scopes(NotDeleted("tasks")).Order("tasks.completed ASC, tasks.target_date ASC")
		}).
		Preload("Tasks.Evidence", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("task_evidence.uploaded_at ASC")
		}).
		Order("projects.created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *ProjectRepositoryImpl) ListDeleted(db *gorm.DB, owner uuid.UUID) ([]models.Project, error) {
	projects := []models.Project{}
	err := db.Scopes(OwnedBy(owner), InRecycleBin("projects")).
		Order("projects.deleted_at DESC").
		Find(&projects).Error
	return projects, err
}

// Update applies column changes to an owned project and returns the fresh row.
func (r *ProjectRepositoryImpl) Update(db *gorm.DB, owner, id uuid.UUID, fields map[string]interface{}) (*models.Project, error) {
	result := db.Model(&models.Project{}).
		Scopes(OwnedBy(owner)).
		Where("projects.id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindOwned(db, owner, id)
}
