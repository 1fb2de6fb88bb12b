package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kshitiz-Mhto/streampipes/pkg/database"
	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

var (
	// ErrPipelineNotFound 파이프라인 없음 (다른 사용자 소유 포함)
	ErrPipelineNotFound = errors.New("pipeline not found")
	// ErrInvalidPipeline 파이프라인 구조 오류
	ErrInvalidPipeline = errors.New("invalid pipeline")
)

// 상태 제목
const (
	TitleConflict = "conflict"

	titleStarted        = "Pipeline started"
	titleStopped        = "Pipeline stopped"
	titleReconfigured   = "Pipeline reconfigured"
	titleMigrated       = "Pipeline migrated"
	titleAlreadyRunning = "Pipeline is already running"
	titleNotRunning     = "Pipeline is not running"
	titleStartFailed    = "Pipeline could not be started"
	titleStopFailed     = "Pipeline could not be stopped"
	titleReconfFailed   = "Pipeline could not be reconfigured"
	titleMigrateFailed  = "Pipeline could not be migrated"
	titleTopicFailed    = "Output topic could not be provisioned"
)

// PipelineManagerConfig 매니저 설정
type PipelineManagerConfig struct {
	DB         *database.DB
	Dispatcher CommandDispatcher
	Topics     TopicProvisioner // nil이면 토픽 준비 생략
	// SystemOwner 이 사용자가 저장한 파이프라인은 시스템 파이프라인으로 표시
	SystemOwner string
	Logger      *slog.Logger
}

// PipelineManager 파이프라인 저장과 라이프사이클 관리
// 라이프사이클 동작은 직렬화됨
type PipelineManager struct {
	db          *database.DB
	dispatcher  CommandDispatcher
	topics      TopicProvisioner
	systemOwner string
	logger      *slog.Logger

	mu sync.Mutex
}

// NewPipelineManager 매니저 생성
func NewPipelineManager(cfg *PipelineManagerConfig) *PipelineManager {
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = &LogDispatcher{Logger: cfg.Logger}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &PipelineManager{
		db:          cfg.DB,
		dispatcher:  dispatcher,
		topics:      cfg.Topics,
		systemOwner: cfg.SystemOwner,
		logger:      logger,
	}
}

// Store 새 파이프라인 저장
func (m *PipelineManager) Store(_ context.Context, owner string, p *models.Pipeline) (*models.Message, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	doc := p.Clone()
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	doc.CreatedAt = time.Now().UnixMilli()

	rec, err := database.NewPipelineRecord(owner, doc)
	if err != nil {
		return nil, err
	}
	rec.System = m.systemOwner != "" && owner == m.systemOwner

	if err := m.db.CreatePipelineRecord(rec); err != nil {
		return nil, err
	}

	m.logger.Info("Pipeline stored", "pipeline", doc.ID, "owner", owner, "system", rec.System)
	return models.SuccessMessage(doc.ID, models.Notification{Title: "Pipeline stored"}), nil
}

// Get 파이프라인 조회
func (m *PipelineManager) Get(owner, id string) (*models.Pipeline, error) {
	_, p, err := m.load(owner, id)
	return p, err
}

// ListOwn 사용자 파이프라인 목록
func (m *PipelineManager) ListOwn(owner string) ([]models.Pipeline, error) {
	return m.db.ListOwnPipelines(owner)
}

// ListSystem 시스템 파이프라인 목록
func (m *PipelineManager) ListSystem() ([]models.Pipeline, error) {
	return m.db.ListSystemPipelines()
}

// Status 파이프라인 상태 이력 (최신순)
func (m *PipelineManager) Status(owner, id string) ([]models.PipelineStatusMessage, error) {
	if _, _, err := m.load(owner, id); err != nil {
		return nil, err
	}
	return m.db.ListStatusMessages(id, 0)
}

// Update 파이프라인 문서 교체
// 실행 중인 파이프라인은 이전 엘리먼트를 중지하고 새 엘리먼트를 시작함
func (m *PipelineManager) Update(ctx context.Context, owner string, p *models.Pipeline) (*models.Message, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, current, err := m.loadOwned(owner, p.ID)
	if err != nil {
		return nil, err
	}

	if rec.Running {
		if err := m.restartLocked(ctx, rec, current, p); err != nil {
			return restartFailed(p.ID, err), nil
		}
		now := time.Now()
		rec.StartedAt = &now
	}

	if err := rec.SetPipeline(p); err != nil {
		return nil, err
	}
	if err := m.db.SavePipeline(rec); err != nil {
		return nil, err
	}
	m.record(rec.ID, models.StatusPipelineUpdated, "Pipeline updated")

	return models.SuccessMessage(rec.ID, models.Notification{Title: "Pipeline updated"}), nil
}

// Delete 파이프라인 삭제 (실행 중이면 먼저 중지)
func (m *PipelineManager) Delete(ctx context.Context, owner, id string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, p, err := m.loadOwned(owner, id)
	if err != nil {
		return nil, err
	}

	if rec.Running {
		status, err := m.stopLocked(ctx, rec, p)
		if err != nil {
			return nil, err
		}
		if !status.Success {
			return &models.Message{
				Success:       false,
				ElementName:   id,
				Notifications: []models.Notification{{Title: status.Title}},
			}, nil
		}
	}

	if m.topics != nil {
		for _, e := range p.Sepas {
			topic := m.topics.GenerateTopicName(p.ID, e.Dom)
			if err := m.topics.DeleteTopic(ctx, topic); err != nil {
				m.logger.Warn("Failed to delete output topic", "pipeline", id, "topic", topic, "error", err)
			}
		}
	}

	if err := m.db.DeletePipeline(owner, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrPipelineNotFound
		}
		return nil, err
	}

	m.logger.Info("Pipeline deleted", "pipeline", id, "owner", owner)
	return models.SuccessMessage(id, models.Notification{Title: "Pipeline deleted"}), nil
}

// Start 파이프라인 시작
// 실패는 에러가 아니라 Success=false 상태로 반환됨
func (m *PipelineManager) Start(ctx context.Context, owner, id string) (*models.PipelineOperationStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, p, err := m.loadOwned(owner, id)
	if err != nil {
		return nil, err
	}

	status := newStatus(p, titleStarted)
	if rec.Running {
		status.Title = titleAlreadyRunning
		return status, nil
	}

	if m.topics != nil {
		for _, e := range p.Sepas {
			topic := m.topics.GenerateTopicName(p.ID, e.Dom)
			if err := m.topics.EnsureTopic(ctx, topic); err != nil {
				m.logger.Warn("Failed to provision output topic", "pipeline", id, "topic", topic, "error", err)
				status.Title = titleTopicFailed
				status.ElementStatus = append(status.ElementStatus, elementStatus(e, err))
				return status, nil
			}
		}
	}

	results, err := m.dispatchOrRollback(ctx, CommandStart, CommandStop, p.ID, p.AllElements())
	status.ElementStatus = append(status.ElementStatus, results...)
	if err != nil {
		status.Title = titleStartFailed
		m.record(id, models.StatusPipelineFailed, err.Error())
		return status, nil
	}

	now := time.Now()
	rec.Running = true
	rec.StartedAt = &now
	if err := m.db.SavePipeline(rec); err != nil {
		return nil, err
	}

	status.Success = true
	m.record(id, models.StatusPipelineStarted, status.Title)
	m.logger.Info("Pipeline started", "pipeline", id, "elements", len(results))
	return status, nil
}

// Stop 파이프라인 중지
func (m *PipelineManager) Stop(ctx context.Context, owner, id string) (*models.PipelineOperationStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, p, err := m.loadOwned(owner, id)
	if err != nil {
		return nil, err
	}
	return m.stopLocked(ctx, rec, p)
}

func (m *PipelineManager) stopLocked(ctx context.Context, rec *database.PipelineRecord, p *models.Pipeline) (*models.PipelineOperationStatus, error) {
	status := newStatus(p, titleStopped)
	if !rec.Running {
		status.Title = titleNotRunning
		return status, nil
	}

	results, err := m.dispatchAll(ctx, CommandStop, p.ID, p.AllElements())
	status.ElementStatus = results
	if err != nil {
		status.Title = titleStopFailed
		m.record(p.ID, models.StatusPipelineFailed, err.Error())
		return status, nil
	}

	rec.Running = false
	rec.StartedAt = nil
	if err := m.db.SavePipeline(rec); err != nil {
		return nil, err
	}

	status.Success = true
	m.record(p.ID, models.StatusPipelineStopped, status.Title)
	m.logger.Info("Pipeline stopped", "pipeline", p.ID)
	return status, nil
}

// Reconfigure 실행 중인 파이프라인의 설정값 변경
// 엘리먼트 구성이 저장된 파이프라인과 다르면 conflict 상태 반환
func (m *PipelineManager) Reconfigure(ctx context.Context, owner string, p *models.Pipeline) (*models.PipelineOperationStatus, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, current, err := m.loadOwned(owner, p.ID)
	if err != nil {
		return nil, err
	}

	status := newStatus(current, titleReconfigured)
	if !rec.Running {
		status.Title = titleNotRunning
		return status, nil
	}
	if !sameElements(current, p) {
		status.Title = TitleConflict
		return status, nil
	}

	var changed []models.PipelineElement
	for _, e := range p.AllElements() {
		old, _ := current.FindElement(e.Kind, e.Dom)
		if !staticPropertiesEqual(old.StaticProperties, e.StaticProperties) {
			changed = append(changed, e)
		}
	}

	results, err := m.dispatchAll(ctx, CommandReconfigure, p.ID, changed)
	status.ElementStatus = results
	if err != nil {
		status.Title = titleReconfFailed
		return status, nil
	}

	if err := rec.SetPipeline(p); err != nil {
		return nil, err
	}
	if err := m.db.SavePipeline(rec); err != nil {
		return nil, err
	}

	status.Success = true
	m.record(p.ID, models.StatusPipelineReconfigured, fmt.Sprintf("%d element(s) reconfigured", len(changed)))
	return status, nil
}

// Migrate 엘리먼트 배치 노드 변경
// 실행 중이면 배치 노드가 바뀐 엘리먼트에 migrate 명령 전달
func (m *PipelineManager) Migrate(ctx context.Context, owner string, p *models.Pipeline) (*models.PipelineOperationStatus, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, current, err := m.loadOwned(owner, p.ID)
	if err != nil {
		return nil, err
	}

	status := newStatus(current, titleMigrated)
	if !sameElements(current, p) {
		status.Title = TitleConflict
		return status, nil
	}

	var moved []models.PipelineElement
	for _, e := range p.AllElements() {
		old, _ := current.FindElement(e.Kind, e.Dom)
		if old.DeploymentTargetNodeID != e.DeploymentTargetNodeID {
			moved = append(moved, e)
		}
	}

	if rec.Running {
		results, err := m.dispatchAll(ctx, CommandMigrate, p.ID, moved)
		status.ElementStatus = results
		if err != nil {
			status.Title = titleMigrateFailed
			return status, nil
		}
	}

	if err := rec.SetPipeline(p); err != nil {
		return nil, err
	}
	if err := m.db.SavePipeline(rec); err != nil {
		return nil, err
	}

	status.Success = true
	m.record(p.ID, models.StatusPipelineMigrated, fmt.Sprintf("%d element(s) migrated", len(moved)))
	return status, nil
}

// PurgeStatusMessages 보존 기간이 지난 상태 이력 삭제
func (m *PipelineManager) PurgeStatusMessages(before time.Time) (int64, error) {
	return m.db.PurgeStatusMessages(before)
}

func (m *PipelineManager) load(owner, id string) (*database.PipelineRecord, *models.Pipeline, error) {
	rec, err := m.db.GetPipelineRecord(owner, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil, ErrPipelineNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	p, err := rec.Pipeline()
	if err != nil {
		return nil, nil, err
	}
	return rec, p, nil
}

// loadOwned 소유자만 변경할 수 있는 동작용 조회
// 시스템 파이프라인도 다른 사용자에게는 없는 것으로 취급
func (m *PipelineManager) loadOwned(owner, id string) (*database.PipelineRecord, *models.Pipeline, error) {
	rec, p, err := m.load(owner, id)
	if err != nil {
		return nil, nil, err
	}
	if rec.Owner != owner {
		return nil, nil, ErrPipelineNotFound
	}
	return rec, p, nil
}

// restartLocked 실행 중인 파이프라인을 새 문서로 재시작
// 실패하면 이전 엘리먼트 복구를 시도하고, 복구도 실패하면 중지 상태로 저장
func (m *PipelineManager) restartLocked(ctx context.Context, rec *database.PipelineRecord, current, next *models.Pipeline) error {
	if _, err := m.dispatchOrRollback(ctx, CommandStop, CommandStart, current.ID, current.AllElements()); err != nil {
		m.record(current.ID, models.StatusPipelineFailed, err.Error())
		return err
	}

	_, err := m.dispatchOrRollback(ctx, CommandStart, CommandStop, current.ID, next.AllElements())
	if err == nil {
		return nil
	}
	m.record(current.ID, models.StatusPipelineFailed, err.Error())

	if _, restoreErr := m.dispatchOrRollback(ctx, CommandStart, CommandStop, current.ID, current.AllElements()); restoreErr != nil {
		m.logger.Warn("Failed to restore previous elements", "pipeline", current.ID, "error", restoreErr)
		rec.Running = false
		rec.StartedAt = nil
		if saveErr := m.db.SavePipeline(rec); saveErr != nil {
			m.logger.Error("Failed to mark pipeline stopped", "pipeline", current.ID, "error", saveErr)
		}
		m.record(current.ID, models.StatusPipelineStopped, "Pipeline stopped after failed restart")
	}
	return err
}

// dispatchOrRollback 명령 전달, 실패하면 이미 처리된 엘리먼트에 undo 명령 전달
func (m *PipelineManager) dispatchOrRollback(ctx context.Context, cmdType, undo CommandType, pipelineID string, elements []models.PipelineElement) ([]models.PipelineElementStatus, error) {
	results, err := m.dispatchAll(ctx, cmdType, pipelineID, elements)
	if err == nil {
		return results, nil
	}

	done := elements[:len(results)-1]
	if _, rbErr := m.dispatchAll(ctx, undo, pipelineID, done); rbErr != nil {
		m.logger.Warn("Failed to roll back elements", "pipeline", pipelineID, "command", undo, "error", rbErr)
	}
	return results, err
}

// dispatchAll 엘리먼트별 명령 전달, 첫 실패에서 중단
// 반환된 결과의 마지막 항목이 실패한 엘리먼트
func (m *PipelineManager) dispatchAll(ctx context.Context, cmdType CommandType, pipelineID string, elements []models.PipelineElement) ([]models.PipelineElementStatus, error) {
	results := make([]models.PipelineElementStatus, 0, len(elements))
	for i := range elements {
		e := elements[i]
		err := m.dispatcher.Dispatch(ctx, NewPipelineCommand(cmdType, pipelineID, &e))
		results = append(results, elementStatus(e, err))
		if err != nil {
			return results, fmt.Errorf("failed to dispatch %s to %s: %w", cmdType, e.Dom, err)
		}
	}
	return results, nil
}

// record 상태 이력 저장 (실패해도 동작 결과에 영향 없음)
func (m *PipelineManager) record(pipelineID, messageType, message string) {
	if err := m.db.AddStatusMessage(pipelineID, messageType, message); err != nil {
		m.logger.Warn("Failed to record status message", "pipeline", pipelineID, "type", messageType, "error", err)
	}
}

func validate(p *models.Pipeline) error {
	if p == nil {
		return fmt.Errorf("%w: empty document", ErrInvalidPipeline)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPipeline, err)
	}
	return nil
}

func newStatus(p *models.Pipeline, title string) *models.PipelineOperationStatus {
	return &models.PipelineOperationStatus{
		PipelineID:    p.ID,
		PipelineName:  p.Name,
		Title:         title,
		ElementStatus: []models.PipelineElementStatus{},
	}
}

func elementStatus(e models.PipelineElement, err error) models.PipelineElementStatus {
	name := e.Name
	if name == "" {
		name = e.Dom
	}
	es := models.PipelineElementStatus{
		ElementID:   e.ElementID,
		ElementName: name,
		Success:     err == nil,
	}
	if err != nil {
		es.OptionalMessage = err.Error()
	}
	return es
}

func restartFailed(id string, err error) *models.Message {
	return &models.Message{
		Success:     false,
		ElementName: id,
		Notifications: []models.Notification{{
			Title:       "Pipeline could not be restarted",
			Description: err.Error(),
		}},
	}
}

// sameElements 두 파이프라인의 엘리먼트 식별 집합 비교
func sameElements(a, b *models.Pipeline) bool {
	ids := func(p *models.Pipeline) map[string]bool {
		set := make(map[string]bool)
		for _, e := range p.AllElements() {
			set[string(e.Kind)+"/"+e.Dom] = true
		}
		return set
	}

	left, right := ids(a), ids(b)
	if len(left) != len(right) {
		return false
	}
	for id := range left {
		if !right[id] {
			return false
		}
	}
	return true
}

func staticPropertiesEqual(a, b []models.StaticProperty) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].InternalName != b[i].InternalName || a[i].Value != b[i].Value || !slices.Equal(a[i].Options, b[i].Options) {
			return false
		}
	}
	return true
}
