// Package services 파이프라인 라이프사이클과 백그라운드 작업
package services

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// StatusPurger 오래된 상태 이력 삭제
type StatusPurger interface {
	PurgeStatusMessages(before time.Time) (int64, error)
}

// MaintenanceConfig 유지보수 설정
type MaintenanceConfig struct {
	Schedule  string        // cron 표현식 (기본: 매시 정각)
	Retention time.Duration // 상태 이력 보존 기간 (기본: 7일)
	Logger    *slog.Logger
}

// MaintenanceService 주기적 상태 이력 정리
type MaintenanceService struct {
	purger    StatusPurger
	cron      *cron.Cron
	schedule  string
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
}

// NewMaintenanceService 유지보수 서비스 생성
func NewMaintenanceService(purger StatusPurger, cfg *MaintenanceConfig) *MaintenanceService {
	if cfg == nil {
		cfg = &MaintenanceConfig{}
	}

	schedule := cfg.Schedule
	if schedule == "" {
		schedule = "0 * * * *"
	}

	retention := cfg.Retention
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MaintenanceService{
		purger:    purger,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		schedule:  schedule,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Start 스케줄 등록 후 시작
func (s *MaintenanceService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	job := cron.FuncJob(func() { _, _ = s.RunOnce() })
	if _, err := s.cron.AddJob(s.schedule, cron.NewChain(cron.Recover(cron.DefaultLogger)).Then(job)); err != nil {
		return fmt.Errorf("invalid cron expression '%s': %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("Maintenance started", "schedule", s.schedule, "retention", s.retention)
	return nil
}

// Stop 실행 중인 작업 완료 후 중지
func (s *MaintenanceService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info("Maintenance stopped")
}

// RunOnce 보존 기간이 지난 상태 이력 삭제
func (s *MaintenanceService) RunOnce() (int64, error) {
	before := s.now().Add(-s.retention)
	purged, err := s.purger.PurgeStatusMessages(before)
	if err != nil {
		s.logger.Error("Failed to purge status messages", "error", err)
		return 0, err
	}
	if purged > 0 {
		s.logger.Info("Purged status messages", "count", purged, "before", before.Format(time.RFC3339))
	}
	return purged, nil
}
