// Package schemaloader 어댑터 이벤트 스키마 추론 및 적용
package schemaloader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// Guesser 스키마 추론 엔드포인트
type Guesser interface {
	GuessSchema(ctx context.Context, adapter *models.AdapterDescription) (*models.EventSchema, error)
}

// Loader 스키마 로더
type Loader struct {
	guesser Guesser
	logger  *slog.Logger
}

// New 새 로더 생성
func New(guesser Guesser, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{guesser: guesser, logger: logger}
}

// EnsureSchema 스키마가 없으면 빈 스키마 생성
func EnsureSchema(adapter *models.AdapterDescription) {
	if adapter == nil {
		return
	}
	if adapter.DataSet == nil {
		adapter.DataSet = &models.DataSetDescription{}
	}
	if adapter.DataSet.EventSchema == nil {
		adapter.DataSet.EventSchema = models.NewEventSchema()
	}
}

// Apply 추론 결과로 스키마를 덮어씀 (병합 없음)
func Apply(adapter *models.AdapterDescription, schema *models.EventSchema) {
	if adapter == nil {
		return
	}
	if adapter.DataSet == nil {
		adapter.DataSet = &models.DataSetDescription{}
	}
	adapter.DataSet.EventSchema = schema
}

// Guess 백엔드에 스키마 추론 요청, 결과 적용은 호출자가 결정
func (l *Loader) Guess(ctx context.Context, adapter *models.AdapterDescription) (*models.EventSchema, error) {
	if adapter == nil {
		return nil, fmt.Errorf("adapter description is required")
	}

	schema, err := l.guesser.GuessSchema(ctx, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to guess schema for %q: %w", adapter.Name, err)
	}
	if schema == nil {
		return nil, fmt.Errorf("failed to guess schema for %q: empty response", adapter.Name)
	}

	l.logger.Debug("schema guessed", "adapter", adapter.Name, "properties", len(schema.EventProperties))
	return schema, nil
}

// GuessAndApply 추론 후 적용, 실패 시 기존 스키마 유지
func (l *Loader) GuessAndApply(ctx context.Context, adapter *models.AdapterDescription) error {
	schema, err := l.Guess(ctx, adapter)
	if err != nil {
		return err
	}
	Apply(adapter, schema)
	return nil
}
