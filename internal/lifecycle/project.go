package lifecycle

import (
	"time"

	"github.com/estivenmendezr98/TAREAS/internal/models"
	"github.com/estivenmendezr98/TAREAS/internal/repositories"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type projectLifecycle struct {
	projects repositories.ProjectRepository
	evidence repositories.EvidenceRepository
}

func (l *projectLifecycle) owned(tx *gorm.DB, owner, id uuid.UUID) *gorm.DB {
	return tx.Model(&models.Project{}).
		Scopes(repositories.OwnedBy(owner)).
		Where("projects.id = ?", id)
}

func (l *projectLifecycle) SoftDelete(tx *gorm.DB, owner, id uuid.UUID, now time.Time) error {
	result := l.owned(tx, owner, id).Update("deleted_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Restore leaves the project's tasks alone; tasks deleted on their own stay
// in the recycle bin.
func (l *projectLifecycle) Restore(tx *gorm.DB, owner, id uuid.UUID) error {
	result := l.owned(tx, owner, id).Updates(map[string]interface{}{
		"deleted_at":  nil,
		"is_archived": false,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *projectLifecycle) SetArchived(tx *gorm.DB, owner, id uuid.UUID, archived bool) error {
	project, err := l.projects.FindOwned(tx, owner, id)
	if err != nil {
		return notFound(err)
	}
	if project.DeletedAt != nil {
		return ErrInRecycleBin
	}
	return l.owned(tx, owner, id).Update("is_archived", archived).Error
}

func (l *projectLifecycle) PermanentDelete(tx *gorm.DB, owner, id uuid.UUID) (*Purged, error) {
	project, err := l.projects.FindOwned(tx, owner, id)
	if err != nil {
		return nil, notFound(err)
	}
	return l.cascade(tx, project)
}

func (l *projectLifecycle) ExpiredIDs(tx *gorm.DB, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := tx.Model(&models.Project{}).
		Scopes(repositories.InRecycleBin("projects")).
		Where("projects.deleted_at < ?", cutoff).
		Order("projects.deleted_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (l *projectLifecycle) PurgeExpired(tx *gorm.DB, id uuid.UUID, cutoff time.Time) (*Purged, error) {
	claimed, err := claimExpired(tx, &models.Project{}, id, cutoff)
	if err != nil || !claimed {
		return nil, err
	}
	var project models.Project
	if err := tx.Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return l.cascade(tx, &project)
}

// cascade removes the project, its tasks and their evidence rows, returning
// the evidence file paths so they can be removed after commit.
func (l *projectLifecycle) cascade(tx *gorm.DB, project *models.Project) (*Purged, error) {
	var taskIDs []uuid.UUID
	if err := tx.Model(&models.Task{}).Where("project_id = ?", project.ID).Pluck("id", &taskIDs).Error; err != nil {
		return nil, err
	}

	files, err := l.evidence.PathsForTasks(tx, taskIDs)
	if err != nil {
		return nil, err
	}
	if _, err := l.evidence.DeleteForTasks(tx, taskIDs); err != nil {
		return nil, err
	}
	if err := tx.Where("project_id = ?", project.ID).Delete(&models.Task{}).Error; err != nil {
		return nil, err
	}

	result := tx.Where("id = ?", project.ID).Delete(&models.Project{})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return &Purged{
		Type:  TypeProject,
		ID:    project.ID,
		Owner: project.UserID,
		Tasks: len(taskIDs),
		Files: files,
	}, nil
}
