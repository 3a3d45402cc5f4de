package services

import (
	"errors"
	"strings"

	"github.com/estivenmendezr98/TAREAS/internal/models"
	"github.com/estivenmendezr98/TAREAS/internal/repositories"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

var (
	ErrProjectNotOwned  = errors.New("project not found or unauthorized")
	ErrProjectRecycled  = errors.New("project is in the recycle bin")
	ErrEmptyDescription = errors.New("description is required")
)

type CreateTaskRequest struct {
	ProjectID   uuid.UUID    `json:"project_id" binding:"required"`
	Description string       `json:"description" binding:"required"`
	TargetDate  *models.Date `json:"target_date"`
	StartDate   *models.Date `json:"start_date"`
}

// UpdateTaskRequest sets only the fields that are present. Archive state is
// a lifecycle operation and is handled separately.
type UpdateTaskRequest struct {
	Completed     *bool        `json:"completed"`
	ReportContent *string      `json:"report_content"`
	Description   *string      `json:"description"`
	TargetDate    *models.Date `json:"target_date"`
	StartDate     *models.Date `json:"start_date"`
}

func (r UpdateTaskRequest) fields() (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	if r.Completed != nil {
		fields["completed"] = *r.Completed
	}
	if r.ReportContent != nil {
		fields["report_content"] = *r.ReportContent
	}
	if r.Description != nil {
		description := strings.TrimSpace(*r.Description)
		if description == "" {
			return nil, ErrEmptyDescription
		}
		fields["description"] = description
	}
	if r.TargetDate != nil {
		fields["target_date"] = *r.TargetDate
	}
	if r.StartDate != nil {
		fields["start_date"] = *r.StartDate
	}
	return fields, nil
}

type TaskService interface {
	CreateTask(db *gorm.DB, owner uuid.UUID, req CreateTaskRequest) (*models.Task, error)
	GetTask(db *gorm.DB, owner, id uuid.UUID) (*models.Task, error)
	UpdateTask(db *gorm.DB, owner, id uuid.UUID, req UpdateTaskRequest) (*models.Task, error)
}

type TaskServiceImpl struct {
	projects repositories.ProjectRepository
	tasks    repositories.TaskRepository
}

func NewTaskService() *TaskServiceImpl {
	return &TaskServiceImpl{
		projects: repositories.NewProjectRepository(),
		tasks:    repositories.NewTaskRepository(),
	}
}

// CreateTask requires the target project to belong to owner and to be out of
// the recycle bin.
func (s *TaskServiceImpl) CreateTask(db *gorm.DB, owner uuid.UUID, req CreateTaskRequest) (*models.Task, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	project, err := s.projects.FindOwned(db, owner, req.ProjectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotOwned
	}
	if err != nil {
		return nil, err
	}
	if project.DeletedAt != nil {
		return nil, ErrProjectRecycled
	}

	task := &models.Task{
		ProjectID:   project.ID,
		Description: description,
		TargetDate:  req.TargetDate,
		StartDate:   req.StartDate,
		Evidence:    []models.Evidence{},
	}
	if err := s.tasks.Create(db, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskServiceImpl) GetTask(db *gorm.DB, owner, id uuid.UUID) (*models.Task, error) {
	return s.tasks.FindOwned(db, owner, id)
}

func (s *TaskServiceImpl) UpdateTask(db *gorm.DB, owner, id uuid.UUID, req UpdateTaskRequest) (*models.Task, error) {
	fields, err := req.fields()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNothingToUpdate
	}
	return s.tasks.Update(db, owner, id, fields)
}
