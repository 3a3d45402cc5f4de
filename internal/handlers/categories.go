package handlers

import (
	"net/http"

	"github.com/estivenmendezr98/TAREAS/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CategoryHandler struct {
	db              *gorm.DB
	categoryService services.CategoryService
}

func NewCategoryHandler(db *gorm.DB, categoryService services.CategoryService) *CategoryHandler {
	return &CategoryHandler{db: db, categoryService: categoryService}
}

func (h *CategoryHandler) GetCategories(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	categories, err := h.categoryService.GetCategories(ctx, h.db.WithContext(ctx), owner)
	if err != nil {
		handleError(c, "category", err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	var req services.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	category, err := h.categoryService.CreateCategory(ctx, h.db.WithContext(ctx), owner, req)
	if err != nil {
		handleError(c, "category", err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.categoryService.DeleteCategory(ctx, h.db.WithContext(ctx), owner, id); err != nil {
		handleError(c, "category", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}
