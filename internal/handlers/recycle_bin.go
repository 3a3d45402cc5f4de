package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/estivenmendezr98/TAREAS/internal/lifecycle"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

// RecycleBinHandler exposes the lifecycle engine's recycle-bin operations.
type RecycleBinHandler struct {
	engine *lifecycle.Engine
}

func NewRecycleBinHandler(engine *lifecycle.Engine) *RecycleBinHandler {
	return &RecycleBinHandler{engine: engine}
}

func (h *RecycleBinHandler) GetDeleted(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	bin, err := h.engine.RecycleBin(c.Request.Context(), owner)
	if err != nil {
		handleError(c, "item", err)
		return
	}
	c.JSON(http.StatusOK, bin)
}

const defaultHistoryDays = 30

// GetPurgeHistory lists what left the caller's recycle bin for good, either
// by permanent delete or by expiry. ?days=N widens or narrows the window.
func (h *RecycleBinHandler) GetPurgeHistory(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	days := defaultHistoryDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = n
	}

	entries, err := h.engine.PurgeHistory(c.Request.Context(), owner, time.Duration(days)*24*time.Hour)
	if err != nil {
		handleError(c, "item", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

func (h *RecycleBinHandler) Restore(c *gin.Context) {
	h.apply(c, "Item restored", h.engine.Restore)
}

func (h *RecycleBinHandler) PermanentDelete(c *gin.Context) {
	h.apply(c, "Item permanently deleted", h.engine.PermanentDelete)
}

type itemOp = func(ctx context.Context, t lifecycle.EntityType, owner, id uuid.UUID) error

func (h *RecycleBinHandler) apply(c *gin.Context, message string, op itemOp) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	entityType, err := lifecycle.ParseEntityType(c.Param("type"))
	if err != nil {
		handleError(c, "item", err)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := op(c.Request.Context(), entityType, owner, id); err != nil {
		handleError(c, "item", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}
