package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kshitiz-Mhto/streampipes/internal/api/middleware"
	"github.com/Kshitiz-Mhto/streampipes/pkg/database"
	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// CategoryHandler 파이프라인 카테고리 핸들러
type CategoryHandler struct {
	db     *database.DB
	logger *slog.Logger
}

// NewCategoryHandler 새 핸들러 생성
func NewCategoryHandler(db *database.DB, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{db: db, logger: orDefault(logger)}
}

// List 카테고리 목록
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.db.ListCategories(c.Param("username"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// Store 카테고리 저장
func (h *CategoryHandler) Store(c *gin.Context) {
	var category models.PipelineCategory
	if !bindJSON(c, &category) {
		return
	}
	if category.CategoryName == "" {
		middleware.ErrorResponseWithCode(c, http.StatusBadRequest, models.ErrCodeValidationFailed, "categoryName is required")
		return
	}
	if category.ID == "" {
		category.ID = uuid.New().String()
	}

	if err := h.db.SaveCategory(c.Param("username"), &category); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessMessage(category.ID, models.Notification{Title: "Category stored"}))
}

// Delete 카테고리 삭제
func (h *CategoryHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.db.DeleteCategory(c.Param("username"), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessMessage(id, models.Notification{Title: "Category deleted"}))
}
