package handlers

import (
	"net/http"

	"github.com/estivenmendezr98/TAREAS/internal/lifecycle"
	"github.com/estivenmendezr98/TAREAS/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TaskHandler struct {
	db          *gorm.DB
	taskService services.TaskService
	engine      *lifecycle.Engine
}

func NewTaskHandler(db *gorm.DB, taskService services.TaskService, engine *lifecycle.Engine) *TaskHandler {
	return &TaskHandler{db: db, taskService: taskService, engine: engine}
}

type updateTaskInput struct {
	services.UpdateTaskRequest
	IsArchived *bool `json:"is_archived"`
}

func (in updateTaskInput) hasDetails() bool {
	r := in.UpdateTaskRequest
	return r.Completed != nil || r.ReportContent != nil || r.Description != nil ||
		r.TargetDate != nil || r.StartDate != nil
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.CreateTask(h.db.WithContext(c.Request.Context()), owner, req)
	if err != nil {
		handleError(c, "task", err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// UpdateTask covers completion, report text, details and archive state.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in updateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.IsArchived == nil && !in.hasDetails() {
		handleError(c, "task", services.ErrNothingToUpdate)
		return
	}

	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)
	// The archive flag and the detail fields commit together or not at all.
	err := db.Transaction(func(tx *gorm.DB) error {
		if in.IsArchived != nil {
			if err := h.engine.SetArchivedTx(tx, lifecycle.TypeTask, owner, id, *in.IsArchived); err != nil {
				return err
			}
		}
		if in.hasDetails() {
			if _, err := h.taskService.UpdateTask(tx, owner, id, in.UpdateTaskRequest); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		handleError(c, "task", err)
		return
	}

	task, err := h.taskService.GetTask(db, owner, id)
	if err != nil {
		handleError(c, "task", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.engine.SoftDelete(c.Request.Context(), lifecycle.TypeTask, owner, id); err != nil {
		handleError(c, "task", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task moved to recycle bin"})
}
