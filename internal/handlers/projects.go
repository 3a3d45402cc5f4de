package handlers

import (
	"net/http"

	"github.com/estivenmendezr98/TAREAS/internal/lifecycle"
	"github.com/estivenmendezr98/TAREAS/internal/repositories"
	"github.com/estivenmendezr98/TAREAS/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProjectHandler struct {
	db             *gorm.DB
	projectService services.ProjectService
	engine         *lifecycle.Engine
}

func NewProjectHandler(db *gorm.DB, projectService services.ProjectService, engine *lifecycle.Engine) *ProjectHandler {
	return &ProjectHandler{db: db, projectService: projectService, engine: engine}
}

type updateProjectInput struct {
	services.UpdateProjectRequest
	IsArchived *bool `json:"is_archived"`
}

func (in updateProjectInput) hasDetails() bool {
	return in.Title != nil || in.CategoryID != nil || in.ClearCategory
}

// GetProjects lists non-deleted projects. ?archived=true|false narrows the
// listing; without it both archived and active projects are returned.
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	view := repositories.ParseProjectView(c.Query("archived"))
	projects, err := h.projectService.GetProjects(h.db.WithContext(c.Request.Context()), owner, view)
	if err != nil {
		handleError(c, "project", err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.projectService.CreateProject(h.db.WithContext(c.Request.Context()), owner, req)
	if err != nil {
		handleError(c, "project", err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// UpdateProject edits details and/or toggles archive state.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in updateProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.IsArchived == nil && !in.hasDetails() {
		handleError(c, "project", services.ErrNothingToUpdate)
		return
	}

	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)
	// The archive flag and the detail fields commit together or not at all.
	err := db.Transaction(func(tx *gorm.DB) error {
		if in.IsArchived != nil {
			if err := h.engine.SetArchivedTx(tx, lifecycle.TypeProject, owner, id, *in.IsArchived); err != nil {
				return err
			}
		}
		if in.hasDetails() {
			if _, err := h.projectService.UpdateProject(tx, owner, id, in.UpdateProjectRequest); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		handleError(c, "project", err)
		return
	}

	project, err := h.projectService.GetProject(db, owner, id)
	if err != nil {
		handleError(c, "project", err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.engine.SoftDelete(c.Request.Context(), lifecycle.TypeProject, owner, id); err != nil {
		handleError(c, "project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project moved to recycle bin"})
}
