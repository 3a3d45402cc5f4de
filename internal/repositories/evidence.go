package repositories

import (
	"github.com/estivenmendezr98/TAREAS/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type EvidenceRepository interface {
	Create(db *gorm.DB, evidence *models.Evidence) error
	FindOwned(db *gorm.DB, owner, id uuid.UUID) (*models.Evidence, error)
	Delete(db *gorm.DB, id uuid.UUID) error
	PathsForTasks(db *gorm.DB, taskIDs []uuid.UUID) ([]string, error)
	DeleteForTasks(db *gorm.DB, taskIDs []uuid.UUID) (int64, error)
}

type EvidenceRepositoryImpl struct{}

func NewEvidenceRepository() *EvidenceRepositoryImpl {
	return &EvidenceRepositoryImpl{}
}

func (r *EvidenceRepositoryImpl) Create(db *gorm.DB, evidence *models.Evidence) error {
	return db.Create(evidence).Error
}

func (r *EvidenceRepositoryImpl) FindOwned(db *gorm.DB, owner, id uuid.UUID) (*models.Evidence, error) {
	var evidence models.Evidence
	err := db.Select("task_evidence.*").
		Joins("JOIN tasks ON tasks.id = task_evidence.task_id").
		Scopes(TaskOwnedBy(owner)).
		Where("task_evidence.id = ?", id).
		First(&evidence).Error
	if err != nil {
		return nil, err
	}
	return &evidence, nil
}

func (r *EvidenceRepositoryImpl) Delete(db *gorm.DB, id uuid.UUID) error {
	result := db.Where("id = ?", id).Delete(&models.Evidence{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PathsForTasks lists the stored files attached to the given tasks.
func (r *EvidenceRepositoryImpl) PathsForTasks(db *gorm.DB, taskIDs []uuid.UUID) ([]string, error) {
	paths := []string{}
	if len(taskIDs) == 0 {
		return paths, nil
	}
	err := db.Model(&models.Evidence{}).
		Where("task_id IN ?", taskIDs).
		Pluck("file_path", &paths).Error
	return paths, err
}

func (r *EvidenceRepositoryImpl) DeleteForTasks(db *gorm.DB, taskIDs []uuid.UUID) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}
	result := db.Where("task_id IN ?", taskIDs).Delete(&models.Evidence{})
	return result.RowsAffected, result.Error
}
