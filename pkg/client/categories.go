package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// GetPipelineCategories 카테고리 목록
func (c *Client) GetPipelineCategories(ctx context.Context) ([]models.PipelineCategory, error) {
	var categories []models.PipelineCategory
	if err := c.do(ctx, http.MethodGet, "/pipelinecategories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// StorePipelineCategory 카테고리 저장
func (c *Client) StorePipelineCategory(ctx context.Context, category *models.PipelineCategory) (json.RawMessage, error) {
	if category == nil {
		return nil, ErrEmptyDocument
	}
	return c.send(ctx, http.MethodPost, "/pipelinecategories", category)
}

// DeletePipelineCategory 카테고리 삭제
func (c *Client) DeletePipelineCategory(ctx context.Context, categoryID string) (json.RawMessage, error) {
	return c.send(ctx, http.MethodDelete, "/pipelinecategories/"+url.PathEscape(categoryID), nil)
}
