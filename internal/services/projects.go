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
	ErrEmptyTitle       = errors.New("title is required")
	ErrCategoryNotOwned = errors.New("category not found or unauthorized")
	ErrNothingToUpdate  = errors.New("no fields to update")
)

type CreateProjectRequest struct {
	Title      string     `json:"title" binding:"required"`
	CategoryID *uuid.UUID `json:"category_id"`
}

// UpdateProjectRequest carries the editable details. Archive state is a
// lifecycle operation and is handled separately.
type UpdateProjectRequest struct {
	Title         *string    `json:"title"`
	CategoryID    *uuid.UUID `json:"category_id"`
	ClearCategory bool       `json:"clear_category"`
}

type ProjectService interface {
	CreateProject(db *gorm.DB, owner uuid.UUID, req CreateProjectRequest) (*models.Project, error)
	GetProject(db *gorm.DB, owner, id uuid.UUID) (*models.Project, error)
	GetProjects(db *gorm.DB, owner uuid.UUID, view repositories.ProjectView) ([]models.Project, error)
	UpdateProject(db *gorm.DB, owner, id uuid.UUID, req UpdateProjectRequest) (*models.Project, error)
}

type ProjectServiceImpl struct {
	projects   repositories.ProjectRepository
	categories repositories.CategoryRepository
}

func NewProjectService() *ProjectServiceImpl {
	return &ProjectServiceImpl{
		projects:   repositories.NewProjectRepository(),
		categories: repositories.NewCategoryRepository(),
	}
}

func (s *ProjectServiceImpl) CreateProject(db *gorm.DB, owner uuid.UUID, req CreateProjectRequest) (*models.Project, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if err := s.checkCategory(db, owner, req.CategoryID); err != nil {
		return nil, err
	}

	project := &models.Project{Title: title, UserID: owner, CategoryID: req.CategoryID, Tasks: []models.Task{}}
	if err := s.projects.Create(db, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectServiceImpl) GetProject(db *gorm.DB, owner, id uuid.UUID) (*models.Project, error) {
	return s.projects.FindOwned(db, owner, id)
}

func (s *ProjectServiceImpl) GetProjects(db *gorm.DB, owner uuid.UUID, view repositories.ProjectView) ([]models.Project, error) {
	return s.projects.List(db, owner, view)
}

func (s *ProjectServiceImpl) UpdateProject(db *gorm.DB, owner, id uuid.UUID, req UpdateProjectRequest) (*models.Project, error) {
	fields := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrEmptyTitle
		}
		fields["title"] = title
	}
	switch {
	case req.ClearCategory:
		fields["category_id"] = nil
	case req.CategoryID != nil:
		if err := s.checkCategory(db, owner, req.CategoryID); err != nil {
			return nil, err
		}
		fields["category_id"] = *req.CategoryID
	}
	if len(fields) == 0 {
		return nil, ErrNothingToUpdate
	}
	return s.projects.Update(db, owner, id, fields)
}

func (s *ProjectServiceImpl) checkCategory(db *gorm.DB, owner uuid.UUID, categoryID *uuid.UUID) error {
	if categoryID == nil {
		return nil
	}
	_, err := s.categories.FindOwned(db, owner, *categoryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCategoryNotOwned
	}
	return err
}
