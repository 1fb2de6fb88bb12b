package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// StartPipeline 파이프라인 시작
func (c *Client) StartPipeline(ctx context.Context, pipelineID string) (*models.PipelineOperationStatus, error) {
	var status models.PipelineOperationStatus
	if err := c.do(ctx, http.MethodGet, "/pipelines/"+url.PathEscape(pipelineID)+"/start", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// StopPipeline 파이프라인 중지
func (c *Client) StopPipeline(ctx context.Context, pipelineID string) (*models.PipelineOperationStatus, error) {
	var status models.PipelineOperationStatus
	if err := c.do(ctx, http.MethodGet, "/pipelines/"+url.PathEscape(pipelineID)+"/stop", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetPipelineByID 파이프라인 조회
func (c *Client) GetPipelineByID(ctx context.Context, pipelineID string) (*models.Pipeline, error) {
	var pipeline models.Pipeline
	if err := c.do(ctx, http.MethodGet, "/pipelines/"+url.PathEscape(pipelineID), nil, &pipeline); err != nil {
		return nil, err
	}
	return &pipeline, nil
}

// StorePipeline 새 파이프라인 저장
func (c *Client) StorePipeline(ctx context.Context, pipeline *models.Pipeline) (*models.Message, error) {
	if pipeline == nil {
		return nil, ErrEmptyDocument
	}
	var msg models.Message
	if err := c.do(ctx, http.MethodPost, "/pipelines", pipeline, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpdatePipeline 파이프라인 전체 수정
func (c *Client) UpdatePipeline(ctx context.Context, pipeline *models.Pipeline) (*models.Message, error) {
	if err := requireID(pipeline); err != nil {
		return nil, err
	}
	var msg models.Message
	if err := c.do(ctx, http.MethodPut, "/pipelines/"+url.PathEscape(pipeline.ID), pipeline, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MigratePipeline 파이프라인 엘리먼트 재배치
func (c *Client) MigratePipeline(ctx context.Context, pipeline *models.Pipeline) (*models.PipelineOperationStatus, error) {
	if err := requireID(pipeline); err != nil {
		return nil, err
	}
	var status models.PipelineOperationStatus
	if err := c.do(ctx, http.MethodPost, "/pipelines/migrate/"+url.PathEscape(pipeline.ID), pipeline, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetOwnPipelines 사용자 소유 파이프라인 목록
func (c *Client) GetOwnPipelines(ctx context.Context) ([]models.Pipeline, error) {
	var pipelines []models.Pipeline
	if err := c.do(ctx, http.MethodGet, "/pipelines/own", nil, &pipelines); err != nil {
		return nil, err
	}
	return pipelines, nil
}

// DeleteOwnPipeline 파이프라인 삭제
func (c *Client) DeleteOwnPipeline(ctx context.Context, pipelineID string) (json.RawMessage, error) {
	return c.send(ctx, http.MethodDelete, "/pipelines/"+url.PathEscape(pipelineID), nil)
}

// GetSystemPipelines 시스템 파이프라인 목록
func (c *Client) GetSystemPipelines(ctx context.Context) ([]models.Pipeline, error) {
	var pipelines []models.Pipeline
	if err := c.do(ctx, http.MethodGet, "/pipelines/system", nil, &pipelines); err != nil {
		return nil, err
	}
	return pipelines, nil
}

// GetPipelineStatusByID 파이프라인 상태 이력 조회
func (c *Client) GetPipelineStatusByID(ctx context.Context, pipelineID string) ([]models.PipelineStatusMessage, error) {
	var messages []models.PipelineStatusMessage
	if err := c.do(ctx, http.MethodGet, "/pipelines/"+url.PathEscape(pipelineID)+"/status", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// ReconfigurePipeline 실행 중인 파이프라인 설정 변경
func (c *Client) ReconfigurePipeline(ctx context.Context, pipeline *models.Pipeline) (*models.PipelineOperationStatus, error) {
	if err := requireID(pipeline); err != nil {
		return nil, err
	}
	var status models.PipelineOperationStatus
	if err := c.do(ctx, http.MethodPut, "/pipelines/reconfigure/"+url.PathEscape(pipeline.ID), pipeline, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func requireID(pipeline *models.Pipeline) error {
	if pipeline == nil {
		return ErrEmptyDocument
	}
	if pipeline.ID == "" {
		return fmt.Errorf("pipeline id is required")
	}
	return nil
}
