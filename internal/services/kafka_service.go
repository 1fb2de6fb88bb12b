package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/segmentio/kafka-go"
)

// maxTopicNameLength Kafka 토픽 이름 최대 길이
const maxTopicNameLength = 249

// TopicProvisioner 파이프라인 출력 토픽 준비
type TopicProvisioner interface {
	GenerateTopicName(pipelineID, elementDom string) string
	EnsureTopic(ctx context.Context, topicName string) error
	DeleteTopic(ctx context.Context, topicName string) error
}

// KafkaService Kafka 토픽 관리 서비스
type KafkaService struct {
	brokers           []string
	prefix            string
	numPartitions     int
	replicationFactor int
	retentionMs       int64
	logger            *slog.Logger
}

// KafkaServiceConfig Kafka 서비스 설정
type KafkaServiceConfig struct {
	Brokers           []string
	TopicPrefix       string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
	Logger            *slog.Logger
}

// NewKafkaService KafkaService 생성
func NewKafkaService(cfg *KafkaServiceConfig) *KafkaService {
	if cfg == nil {
		cfg = &KafkaServiceConfig{}
	}

	brokers := cfg.Brokers
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = "org.apache.streampipes"
	}

	numPartitions := cfg.NumPartitions
	if numPartitions <= 0 {
		numPartitions = 1
	}

	replicationFactor := cfg.ReplicationFactor
	if replicationFactor <= 0 {
		replicationFactor = 1
	}

	retentionMs := cfg.RetentionMs
	if retentionMs <= 0 {
		retentionMs = 7 * 24 * 60 * 60 * 1000 // 7일
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &KafkaService{
		brokers:           brokers,
		prefix:            prefix,
		numPartitions:     numPartitions,
		replicationFactor: replicationFactor,
		retentionMs:       retentionMs,
		logger:            logger,
	}
}

// GenerateTopicName 엘리먼트 출력 토픽 이름 생성
// 형식: {prefix}.{pipeline_id}.{element_dom}
// 249자 초과 시 해시 suffix로 축약
func (s *KafkaService) GenerateTopicName(pipelineID, elementDom string) string {
	baseName := sanitizeTopicName(fmt.Sprintf("%s.%s.%s", s.prefix, pipelineID, elementDom))

	if len(baseName) <= maxTopicNameLength {
		return baseName
	}

	hash := sha256.Sum256([]byte(baseName))
	hashSuffix := hex.EncodeToString(hash[:])[:8]

	// 해시 8자 + 구분자 1자
	maxBaseLen := maxTopicNameLength - 9
	return fmt.Sprintf("%s_%s", baseName[:maxBaseLen], hashSuffix)
}

// sanitizeTopicName 토픽 이름에서 허용되지 않는 문자 제거
func sanitizeTopicName(name string) string {
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.' {
			result.WriteRune(r)
		} else if r == ' ' {
			result.WriteRune('_')
		}
	}
	return strings.ToLower(result.String())
}

// controller 컨트롤러 브로커 연결
func (s *KafkaService) controller(ctx context.Context) (*kafka.Conn, error) {
	if len(s.brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", s.brokers[0])
	if err != nil {
		return nil, fmt.Errorf("failed to connect to kafka: %w", err)
	}
	defer func() { _ = conn.Close() }()

	controller, err := conn.Controller()
	if err != nil {
		return nil, fmt.Errorf("failed to get controller: %w", err)
	}

	controllerConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to controller: %w", err)
	}
	return controllerConn, nil
}

// EnsureTopic 토픽이 없으면 생성
func (s *KafkaService) EnsureTopic(ctx context.Context, topicName string) error {
	conn, err := s.controller(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     s.numPartitions,
		ReplicationFactor: s.replicationFactor,
		ConfigEntries: []kafka.ConfigEntry{
			{
				ConfigName:  "retention.ms",
				ConfigValue: strconv.FormatInt(s.retentionMs, 10),
			},
		},
	})
	if errors.Is(err, kafka.TopicAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}

	s.logger.Info("Kafka topic created", "topic", topicName)
	return nil
}

// DeleteTopic Kafka 토픽 삭제
func (s *KafkaService) DeleteTopic(ctx context.Context, topicName string) error {
	conn, err := s.controller(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if err := conn.DeleteTopics(topicName); err != nil && !errors.Is(err, kafka.UnknownTopicOrPartition) {
		return fmt.Errorf("failed to delete topic: %w", err)
	}

	s.logger.Info("Kafka topic deleted", "topic", topicName)
	return nil
}

// GetBrokers 브로커 목록 반환
func (s *KafkaService) GetBrokers() []string {
	return s.brokers
}
