package handlers

import (
	"errors"
	"net/http"

	"github.com/estivenmendezr98/TAREAS/internal/lifecycle"
	"github.com/estivenmendezr98/TAREAS/internal/logger"
	"github.com/estivenmendezr98/TAREAS/internal/middleware"
	"github.com/estivenmendezr98/TAREAS/internal/services"
	"github.com/estivenmendezr98/TAREAS/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// handleError maps domain errors to status codes. Anything unrecognised is a
// store failure and is logged rather than echoed.
func handleError(c *gin.Context, resource string, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": resource + " not found"})
	case errors.Is(err, lifecycle.ErrInvalidType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type"})
	case errors.Is(err, lifecycle.ErrInRecycleBin),
		errors.Is(err, services.ErrProjectRecycled),
		errors.Is(err, services.ErrDuplicateUsername):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrProjectNotOwned),
		errors.Is(err, services.ErrCategoryNotOwned):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, services.ErrEmptyTitle),
		errors.Is(err, services.ErrEmptyDescription),
		errors.Is(err, services.ErrNothingToUpdate),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrNoFiles):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	default:
		logger.Error("request failed",
			logger.F("path", c.FullPath()),
			logger.F("resource", resource),
			logger.Err(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process " + resource + " request"})
	}
}

// currentUser reads the authenticated user, answering 401 when absent.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	}
	return id, ok
}

// pathID parses a UUID route parameter, answering 400 when malformed.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
