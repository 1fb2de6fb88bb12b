package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kshitiz-Mhto/streampipes/internal/api/middleware"
	"github.com/Kshitiz-Mhto/streampipes/internal/services"
	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// PipelineHandler 파이프라인 핸들러
type PipelineHandler struct {
	manager *services.PipelineManager
	logger  *slog.Logger
}

// NewPipelineHandler 새 핸들러 생성
func NewPipelineHandler(manager *services.PipelineManager, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{manager: manager, logger: orDefault(logger)}
}

// ListOwn 사용자 파이프라인 목록
func (h *PipelineHandler) ListOwn(c *gin.Context) {
	pipelines, err := h.manager.ListOwn(c.Param("username"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pipelines)
}

// ListSystem 시스템 파이프라인 목록
func (h *PipelineHandler) ListSystem(c *gin.Context) {
	pipelines, err := h.manager.ListSystem()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pipelines)
}

// Get 파이프라인 상세 조회
func (h *PipelineHandler) Get(c *gin.Context) {
	pipeline, err := h.manager.Get(c.Param("username"), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pipeline)
}

// Store 파이프라인 저장
func (h *PipelineHandler) Store(c *gin.Context) {
	var pipeline models.Pipeline
	if !bindJSON(c, &pipeline) {
		return
	}

	msg, err := h.manager.Store(c.Request.Context(), c.Param("username"), &pipeline)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// Update 파이프라인 수정
func (h *PipelineHandler) Update(c *gin.Context) {
	pipeline, ok := h.bindPipeline(c)
	if !ok {
		return
	}

	msg, err := h.manager.Update(c.Request.Context(), c.Param("username"), pipeline)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// Delete 파이프라인 삭제
func (h *PipelineHandler) Delete(c *gin.Context) {
	msg, err := h.manager.Delete(c.Request.Context(), c.Param("username"), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// Start 파이프라인 시작
func (h *PipelineHandler) Start(c *gin.Context) {
	status, err := h.manager.Start(c.Request.Context(), c.Param("username"), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Stop 파이프라인 중지
func (h *PipelineHandler) Stop(c *gin.Context) {
	status, err := h.manager.Stop(c.Request.Context(), c.Param("username"), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetStatus 파이프라인 상태 이력 조회
func (h *PipelineHandler) GetStatus(c *gin.Context) {
	messages, err := h.manager.Status(c.Param("username"), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// Reconfigure 실행 중인 파이프라인 설정 변경
func (h *PipelineHandler) Reconfigure(c *gin.Context) {
	pipeline, ok := h.bindPipeline(c)
	if !ok {
		return
	}

	status, err := h.manager.Reconfigure(c.Request.Context(), c.Param("username"), pipeline)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Migrate 엘리먼트 재배치
func (h *PipelineHandler) Migrate(c *gin.Context) {
	pipeline, ok := h.bindPipeline(c)
	if !ok {
		return
	}

	status, err := h.manager.Migrate(c.Request.Context(), c.Param("username"), pipeline)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// bindPipeline 본문 디코딩 후 경로 ID와 일치 확인 (본문 ID가 없으면 경로 ID 사용)
func (h *PipelineHandler) bindPipeline(c *gin.Context) (*models.Pipeline, bool) {
	var pipeline models.Pipeline
	if !bindJSON(c, &pipeline) {
		return nil, false
	}

	id := c.Param("id")
	if pipeline.ID == "" {
		pipeline.ID = id
	}
	if pipeline.ID != id {
		middleware.ErrorResponseWithDetails(c, http.StatusBadRequest, models.ErrCodeBadRequest, "Pipeline id does not match path",
			map[string]string{"path": id, "body": pipeline.ID})
		return nil, false
	}
	return &pipeline, true
}
