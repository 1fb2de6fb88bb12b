package client

import (
	"context"
	"net/http"

	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// GuessSchema 어댑터 설명으로 이벤트 스키마 추론 요청
func (c *Client) GuessSchema(ctx context.Context, adapter *models.AdapterDescription) (*models.EventSchema, error) {
	if adapter == nil {
		return nil, ErrEmptyDocument
	}
	var schema models.EventSchema
	if err := c.do(ctx, http.MethodPost, "/connect/guess/schema", adapter, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}
