// Package editor 실행 중인 파이프라인의 퀵 에디트 상태 관리
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

var (
	// ErrNoSelection 선택된 엘리먼트 없음
	ErrNoSelection = errors.New("no pipeline element selected")
	// ErrElementNotFound 선택된 엘리먼트의 dom이 파이프라인에 없음
	ErrElementNotFound = errors.New("pipeline element not found")
	// ErrPropertyNotFound 설정값 이름이 엘리먼트에 없음
	ErrPropertyNotFound = errors.New("static property not found")
	// ErrOperationFailed 백엔드가 실패 상태를 반환
	ErrOperationFailed = errors.New("pipeline operation failed")
)

// Gateway 에디터가 사용하는 백엔드 호출
type Gateway interface {
	UpdatePipeline(ctx context.Context, pipeline *models.Pipeline) (*models.Message, error)
	ReconfigurePipeline(ctx context.Context, pipeline *models.Pipeline) (*models.PipelineOperationStatus, error)
}

// Presenter 동작 결과 표시 (상태 다이얼로그)
// 전송 실패 시 status는 nil
type Presenter interface {
	Show(status *models.PipelineOperationStatus)
}

// PresenterFunc 함수형 Presenter
type PresenterFunc func(status *models.PipelineOperationStatus)

// Show implements Presenter
func (f PresenterFunc) Show(status *models.PipelineOperationStatus) {
	f(status)
}

// Options 에디터 옵션
type Options struct {
	Presenter Presenter
	OnReload  func()
	Logger    *slog.Logger
}

// Editor 파이프라인 엘리먼트 에디터
// 한 번에 하나의 엘리먼트만 선택되며, 선택 변경 시 이전 편집 내용이 파이프라인에 반영됨
type Editor struct {
	mu            sync.Mutex
	pipeline      *models.Pipeline
	selected      *models.PipelineElement
	eventSchemas  []models.EventSchema
	invocable     bool
	processor     bool
	updating      bool
	reconfiguring bool

	gateway   Gateway
	presenter Presenter
	onReload  func()
	logger    *slog.Logger
}

// New 새 에디터 생성
func New(pipeline *models.Pipeline, gateway Gateway, opts Options) *Editor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	presenter := opts.Presenter
	if presenter == nil {
		presenter = PresenterFunc(func(*models.PipelineOperationStatus) {})
	}

	return &Editor{
		pipeline:     pipeline,
		eventSchemas: []models.EventSchema{},
		gateway:      gateway,
		presenter:    presenter,
		onReload:     opts.OnReload,
		logger:       logger,
	}
}

// Pipeline 편집 중인 파이프라인
func (e *Editor) Pipeline() *models.Pipeline {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pipeline
}

// Select 엘리먼트 선택
// 기존 선택이 있으면 편집 내용을 먼저 파이프라인에 반영한 뒤 선택을 바꿈
func (e *Editor) Select(element models.PipelineElement) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.selected != nil {
		if err := e.commitLocked(); err != nil {
			return err
		}
	}

	working := element.Clone()
	e.selected = &working

	e.eventSchemas = []models.EventSchema{}
	if working.IsInvocable() {
		e.eventSchemas = append(e.eventSchemas, working.EventSchemas()...)
	}
	e.updateTypeInfo()

	e.logger.Debug("pipeline element selected", "dom", working.Dom, "kind", working.Kind)
	return nil
}

// SelectByDom 파이프라인에서 dom 토큰으로 엘리먼트를 찾아 선택
func (e *Editor) SelectByDom(kind models.ElementKind, dom string) error {
	e.mu.Lock()
	found, ok := e.pipeline.FindElement(kind, dom)
	var element models.PipelineElement
	if ok {
		element = found.Clone()
	}
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s %q", ErrElementNotFound, kind, dom)
	}
	return e.Select(element)
}

// Clear 편집 내용을 반영하지 않고 선택 해제
func (e *Editor) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selected = nil
	e.eventSchemas = []models.EventSchema{}
	e.updateTypeInfo()
}

// Selected 선택된 엘리먼트의 복사본
func (e *Editor) Selected() (models.PipelineElement, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.selected == nil {
		return models.PipelineElement{}, false
	}
	return e.selected.Clone(), true
}

// Edit 선택된 엘리먼트 수정 (파이프라인 반영은 Commit 시점)
func (e *Editor) Edit(fn func(element *models.PipelineElement)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.selected == nil {
		return ErrNoSelection
	}
	fn(e.selected)
	return nil
}

// SetStaticProperty 선택된 엘리먼트의 설정값 변경
func (e *Editor) SetStaticProperty(internalName, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.selected == nil {
		return ErrNoSelection
	}
	prop, ok := e.selected.StaticProperty(internalName)
	if !ok {
		return fmt.Errorf("%w: %q on %q", ErrPropertyNotFound, internalName, e.selected.Dom)
	}
	prop.Value = value
	return nil
}

// Commit 선택된 엘리먼트를 파이프라인 리스트에 반영
func (e *Editor) Commit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commitLocked()
}

// commitLocked 종류에 맞는 리스트에서 같은 dom을 가진 엔트리를 교체
func (e *Editor) commitLocked() error {
	if e.selected == nil || !e.selected.IsInvocable() {
		return nil
	}

	kind := e.selected.Kind
	updated, found := ReplaceByID(e.pipeline.Elements(kind), e.selected.Dom, e.selected.Clone())
	if !found {
		e.logger.Warn("selected element not found in pipeline", "dom", e.selected.Dom, "kind", kind)
		return fmt.Errorf("%w: %s %q", ErrElementNotFound, kind, e.selected.Dom)
	}
	return e.pipeline.SetElements(kind, updated)
}

// updateTypeInfo 선택 엘리먼트 기준 파생 플래그 갱신
func (e *Editor) updateTypeInfo() {
	e.processor = e.selected.IsProcessor()
	e.invocable = e.selected.IsInvocable()
}

// EventSchemas 선택된 엘리먼트의 입력 스트림 스키마
func (e *Editor) EventSchemas() []models.EventSchema {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.EventSchema, len(e.eventSchemas))
	copy(out, e.eventSchemas)
	return out
}

// IsInvocable 선택된 엘리먼트가 프로세서/싱크인지
func (e *Editor) IsInvocable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invocable
}

// IsDataProcessor 선택된 엘리먼트가 프로세서인지
func (e *Editor) IsDataProcessor() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processor
}

// Updating 전체 수정 요청 진행 중 여부
func (e *Editor) Updating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updating
}

// Reconfiguring 재설정 요청 진행 중 여부
func (e *Editor) Reconfiguring() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reconfiguring
}

// Update 편집 내용을 반영한 뒤 파이프라인 전체 수정 요청
func (e *Editor) Update(ctx context.Context) (*models.Message, error) {
	snapshot, err := e.begin(&e.updating)
	if err != nil {
		return nil, err
	}

	msg, err := e.gateway.UpdatePipeline(ctx, snapshot)
	e.finish(&e.updating)
	if err != nil {
		e.logger.Error("pipeline update failed", "pipeline_id", snapshot.ID, "error", err)
		return nil, fmt.Errorf("failed to update pipeline: %w", err)
	}

	e.reload()
	return msg, nil
}

// Reconfigure 편집 내용을 반영한 뒤 실행 중인 파이프라인 재설정 요청
// 결과는 성공/실패와 관계없이 Presenter로 표시되며, 메모리 반영은 롤백하지 않음
func (e *Editor) Reconfigure(ctx context.Context) (*models.PipelineOperationStatus, error) {
	snapshot, err := e.begin(&e.reconfiguring)
	if err != nil {
		return nil, err
	}

	status, err := e.gateway.ReconfigurePipeline(ctx, snapshot)
	e.finish(&e.reconfiguring)

	if err != nil {
		e.logger.Error("pipeline reconfiguration failed", "pipeline_id", snapshot.ID, "error", err)
		e.presenter.Show(nil)
		return nil, fmt.Errorf("failed to reconfigure pipeline: %w", err)
	}

	if status == nil || !status.Success {
		e.logger.Warn("pipeline reconfiguration rejected", "pipeline_id", snapshot.ID)
		e.presenter.Show(status)
		title := ""
		if status != nil {
			title = status.Title
		}
		return status, fmt.Errorf("%w: %s", ErrOperationFailed, title)
	}

	e.presenter.Show(status)
	e.reload()
	return status, nil
}

// begin 편집 반영 후 진행 플래그 설정, 전송용 스냅샷 반환
func (e *Editor) begin(flag *bool) (*models.Pipeline, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.commitLocked(); err != nil {
		return nil, err
	}
	*flag = true
	return e.pipeline.Clone(), nil
}

func (e *Editor) finish(flag *bool) {
	e.mu.Lock()
	*flag = false
	e.mu.Unlock()
}

func (e *Editor) reload() {
	if e.onReload != nil {
		e.onReload()
	}
}
