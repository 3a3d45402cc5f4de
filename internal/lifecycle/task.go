package lifecycle

import (
	"time"

	"github.com/estivenmendezr98/TAREAS/internal/models"
	"github.com/estivenmendezr98/TAREAS/internal/repositories"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type taskLifecycle struct {
	tasks    repositories.TaskRepository
	evidence repositories.EvidenceRepository
}

func (l *taskLifecycle) owned(tx *gorm.DB, owner, id uuid.UUID) *gorm.DB {
	return tx.Model(&models.Task{}).
		Scopes(repositories.TaskOwnedBy(owner)).
		Where("tasks.id = ?", id)
}

func (l *taskLifecycle) SoftDelete(tx *gorm.DB, owner, id uuid.UUID, now time.Time) error {
	result := l.owned(tx, owner, id).Update("deleted_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Restore also brings back the parent project when it is deleted or
// archived, since tasks are only listed under visible projects.
func (l *taskLifecycle) Restore(tx *gorm.DB, owner, id uuid.UUID) error {
	task, err := l.tasks.FindOwned(tx, owner, id)
	if err != nil {
		return notFound(err)
	}

	result := l.owned(tx, owner, id).Updates(map[string]interface{}{
		"deleted_at":  nil,
		"is_archived": false,
	})
	if result.Error != nil {
		return result.Error
	}
	// Purged between the lookup and the update.
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return tx.Model(&models.Project{}).
		Where("id = ? AND (deleted_at IS NOT NULL OR is_archived = ?)", task.ProjectID, true).
		Updates(map[string]interface{}{
			"deleted_at":  nil,
			"is_archived": false,
		}).Error
}

func (l *taskLifecycle) SetArchived(tx *gorm.DB, owner, id uuid.UUID, archived bool) error {
	task, err := l.tasks.FindOwned(tx, owner, id)
	if err != nil {
		return notFound(err)
	}
	if task.DeletedAt != nil {
		return ErrInRecycleBin
	}
	return l.owned(tx, owner, id).Update("is_archived", archived).Error
}

func (l *taskLifecycle) PermanentDelete(tx *gorm.DB, owner, id uuid.UUID) (*Purged, error) {
	task, err := l.tasks.FindOwned(tx, owner, id)
	if err != nil {
		return nil, notFound(err)
	}
	return l.cascade(tx, task, owner)
}

func (l *taskLifecycle) ExpiredIDs(tx *gorm.DB, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := tx.Model(&models.Task{}).
		Scopes(repositories.InRecycleBin("tasks")).
		Where("tasks.deleted_at < ?", cutoff).
		Order("tasks.deleted_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (l *taskLifecycle) PurgeExpired(tx *gorm.DB, id uuid.UUID, cutoff time.Time) (*Purged, error) {
	claimed, err := claimExpired(tx, &models.Task{}, id, cutoff)
	if err != nil || !claimed {
		return nil, err
	}
	var task models.Task
	if err := tx.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	var project models.Project
	if err := tx.Select("id", "user_id").Where("id = ?", task.ProjectID).Take(&project).Error; err != nil {
		return nil, err
	}
	return l.cascade(tx, &task, project.UserID)
}

func (l *taskLifecycle) cascade(tx *gorm.DB, task *models.Task, owner uuid.UUID) (*Purged, error) {
	ids := []uuid.UUID{task.ID}
	files, err := l.evidence.PathsForTasks(tx, ids)
	if err != nil {
		return nil, err
	}
	if _, err := l.evidence.DeleteForTasks(tx, ids); err != nil {
		return nil, err
	}

	result := tx.Where("id = ?", task.ID).Delete(&models.Task{})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return &Purged{Type: TypeTask, ID: task.ID, Owner: owner, Files: files}, nil
}
