package repositories

import (
	"github.com/estivenmendezr98/TAREAS/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// DeletedTask is a recycle-bin row: the task plus its project's title.
type DeletedTask struct {
	models.Task
	ProjectTitle string `json:"project_title"`
}

type TaskRepository interface {
	Create(db *gorm.DB, task *models.Task) error
	FindOwned(db *gorm.DB, owner, id uuid.UUID) (*models.Task, error)
	ListDeleted(db *gorm.DB, owner uuid.UUID) ([]DeletedTask, error)
	Update(db *gorm.DB, owner, id uuid.UUID, fields map[string]interface{}) (*models.Task, error)
}

type TaskRepositoryImpl struct{}

func NewTaskRepository() *TaskRepositoryImpl {
	return &TaskRepositoryImpl{}
}

func (r *TaskRepositoryImpl) Create(db *gorm.DB, task *models.Task) error {
	return db.Omit("Evidence").Create(task).Error
}

func (r *TaskRepositoryImpl) FindOwned(db *gorm.DB, owner, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := db.Scopes(TaskOwnedBy(owner)).
		Preload("Evidence").
		Where("tasks.id = ?", id).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepositoryImpl) ListDeleted(db *gorm.DB, owner uuid.UUID) ([]DeletedTask, error) {
	rows := []DeletedTask{}
	err := db.Model(&models.Task{}).
		Select("tasks.*, projects.title AS project_title").
		Joins("JOIN projects ON projects.id = tasks.project_id").
		Scopes(OwnedBy(owner), InRecycleBin("tasks")).
		Order("tasks.deleted_at DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *TaskRepositoryImpl) Update(db *gorm.DB, owner, id uuid.UUID, fields map[string]interface{}) (*models.Task, error) {
	result := db.Model(&models.Task{}).
		Scopes(TaskOwnedBy(owner)).
		Where("tasks.id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindOwned(db, owner, id)
}
