package database

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// PipelineRecord 파이프라인 레코드
// 엘리먼트 구성은 Document에 JSON으로 저장하고, 조회/상태 필드는 컬럼으로 유지
type PipelineRecord struct {
	ID        string `gorm:"primaryKey;size:36"`
	Owner     string `gorm:"size:255;not null;index"`
	Name      string `gorm:"size:255;not null"`
	System    bool   `gorm:"default:false;index"`
	Running   bool   `gorm:"default:false"`
	StartedAt *time.Time
	Document  string `gorm:"type:text;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName 테이블 이름
func (PipelineRecord) TableName() string {
	return "pipelines"
}

// NewPipelineRecord 모델에서 레코드 생성
func NewPipelineRecord(owner string, p *models.Pipeline) (*PipelineRecord, error) {
	rec := &PipelineRecord{ID: p.ID, Owner: owner}
	if err := rec.SetPipeline(p); err != nil {
		return nil, err
	}
	if p.CreatedAt > 0 {
		rec.CreatedAt = time.UnixMilli(p.CreatedAt)
	}
	return rec, nil
}

// SetPipeline 문서와 컬럼 갱신 (실행 상태 컬럼은 변경하지 않음)
func (r *PipelineRecord) SetPipeline(p *models.Pipeline) error {
	doc := p.Clone()
	doc.ID = r.ID
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline: %w", err)
	}
	r.Name = p.Name
	r.Document = string(data)
	return nil
}

// Pipeline 레코드를 모델로 변환 (컬럼 값이 문서보다 우선)
func (r *PipelineRecord) Pipeline() (*models.Pipeline, error) {
	var p models.Pipeline
	if err := json.Unmarshal([]byte(r.Document), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline %s: %w", r.ID, err)
	}
	p.ID = r.ID
	p.Name = r.Name
	p.CreatedByUser = r.Owner
	p.Running = r.Running
	p.StartedAt = 0
	if r.StartedAt != nil {
		p.StartedAt = r.StartedAt.UnixMilli()
	}
	if !r.CreatedAt.IsZero() {
		p.CreatedAt = r.CreatedAt.UnixMilli()
	}
	return &p, nil
}

// CategoryRecord 파이프라인 카테고리 레코드
type CategoryRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	Owner       string `gorm:"size:255;not null;index"`
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
}

// TableName 테이블 이름
func (CategoryRecord) TableName() string {
	return "pipeline_categories"
}

// Category 모델 변환
func (r *CategoryRecord) Category() models.PipelineCategory {
	return models.PipelineCategory{
		ID:                  r.ID,
		CategoryName:        r.Name,
		CategoryDescription: r.Description,
	}
}

// StatusMessageRecord 파이프라인 상태 이력 레코드
type StatusMessageRecord struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	PipelineID  string    `gorm:"size:36;not null;index"`
	MessageType string    `gorm:"size:50;not null"`
	Message     string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index"`
}

// TableName 테이블 이름
func (StatusMessageRecord) TableName() string {
	return "pipeline_status_messages"
}

// StatusMessage 모델 변환
func (r *StatusMessageRecord) StatusMessage() models.PipelineStatusMessage {
	return models.PipelineStatusMessage{
		PipelineID:  r.PipelineID,
		Timestamp:   r.CreatedAt.UnixMilli(),
		MessageType: r.MessageType,
		Message:     r.Message,
	}
}
