package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// CommandType 엘리먼트 런타임 명령 타입
type CommandType string

const (
	CommandStart       CommandType = "start"
	CommandStop        CommandType = "stop"
	CommandReconfigure CommandType = "reconfigure"
	CommandMigrate     CommandType = "migrate"
)

// PipelineCommand 엘리먼트 런타임에 전달되는 명령
type PipelineCommand struct {
	ID         string                  `json:"id"`
	Type       CommandType             `json:"type"`
	PipelineID string                  `json:"pipelineId"`
	Element    *models.PipelineElement `json:"element,omitempty"`
	Timestamp  time.Time               `json:"timestamp"`
}

// NewPipelineCommand 새 명령 생성
func NewPipelineCommand(cmdType CommandType, pipelineID string, element *models.PipelineElement) PipelineCommand {
	return PipelineCommand{
		ID:         uuid.New().String(),
		Type:       cmdType,
		PipelineID: pipelineID,
		Element:    element,
		Timestamp:  time.Now(),
	}
}

// CommandDispatcher 명령 전달 인터페이스
type CommandDispatcher interface {
	Dispatch(ctx context.Context, cmd PipelineCommand) error
}

// CommandChannel 파이프라인 명령 채널 이름
func CommandChannel(pipelineID string) string {
	return fmt.Sprintf("pipeline:commands:%s", pipelineID)
}

// RedisDispatcher Redis pub/sub 기반 명령 전달
type RedisDispatcher struct {
	client *redis.Client
	logger *slog.Logger
}

// RedisDispatcherConfig Redis 설정
type RedisDispatcherConfig struct {
	Addr     string
	Password string
	DB       int
	Logger   *slog.Logger
}

// NewRedisDispatcher Redis 연결 후 dispatcher 생성
func NewRedisDispatcher(ctx context.Context, cfg *RedisDispatcherConfig) (*RedisDispatcher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisDispatcher{client: client, logger: logger}, nil
}

// Dispatch 파이프라인 채널로 명령 발행
func (d *RedisDispatcher) Dispatch(ctx context.Context, cmd PipelineCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	channel := CommandChannel(cmd.PipelineID)
	if err := d.client.Publish(ctx, channel, data).Err(); err != nil {
		d.logger.Warn("Failed to publish command", "channel", channel, "type", cmd.Type, "error", err)
		return fmt.Errorf("failed to publish command: %w", err)
	}

	d.logger.Debug("Command published", "channel", channel, "type", cmd.Type, "id", cmd.ID)
	return nil
}

// IsHealthy Redis 연결 상태 확인
func (d *RedisDispatcher) IsHealthy(ctx context.Context) bool {
	return d.client.Ping(ctx).Err() == nil
}

// Close 연결 종료
func (d *RedisDispatcher) Close() error {
	return d.client.Close()
}

// LogDispatcher Redis 없이 실행할 때 명령을 로그로만 남김
type LogDispatcher struct {
	Logger *slog.Logger
}

// Dispatch 명령 기록
func (d *LogDispatcher) Dispatch(_ context.Context, cmd PipelineCommand) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{"type", cmd.Type, "pipeline", cmd.PipelineID}
	if cmd.Element != nil {
		attrs = append(attrs, "element", cmd.Element.Dom)
	}
	logger.Info("Pipeline command", attrs...)
	return nil
}
