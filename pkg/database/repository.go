package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// CreatePipeline 파이프라인 저장
func (db *DB) CreatePipeline(owner string, p *models.Pipeline) error {
	rec, err := NewPipelineRecord(owner, p)
	if err != nil {
		return err
	}
	return db.CreatePipelineRecord(rec)
}

// CreatePipelineRecord 레코드 직접 저장
func (db *DB) CreatePipelineRecord(rec *PipelineRecord) error {
	if err := db.Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	return nil
}

// GetPipelineRecord 파이프라인 레코드 조회 (소유자 또는 시스템 파이프라인)
func (db *DB) GetPipelineRecord(owner, id string) (*PipelineRecord, error) {
	var rec PipelineRecord
	err := db.Where("id = ? AND (owner = ? OR `system` = ?)", id, owner, true).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline: %w", err)
	}
	return &rec, nil
}

// GetPipeline 파이프라인 조회
func (db *DB) GetPipeline(owner, id string) (*models.Pipeline, error) {
	rec, err := db.GetPipelineRecord(owner, id)
	if err != nil {
		return nil, err
	}
	return rec.Pipeline()
}

// SavePipeline 파이프라인 문서 갱신 (실행 상태 포함)
func (db *DB) SavePipeline(rec *PipelineRecord) error {
	if err := db.Save(rec).Error; err != nil {
		return fmt.Errorf("failed to save pipeline: %w", err)
	}
	return nil
}

// DeletePipeline 파이프라인 삭제
func (db *DB) DeletePipeline(owner, id string) error {
	result := db.Where("id = ? AND owner = ?", id, owner).Delete(&PipelineRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete pipeline: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOwnPipelines 사용자 소유 파이프라인 목록
func (db *DB) ListOwnPipelines(owner string) ([]models.Pipeline, error) {
	return db.listPipelines(db.Where("owner = ? AND `system` = ?", owner, false))
}

// ListSystemPipelines 시스템 파이프라인 목록
func (db *DB) ListSystemPipelines() ([]models.Pipeline, error) {
	return db.listPipelines(db.Where("`system` = ?", true))
}

func (db *DB) listPipelines(query *gorm.DB) ([]models.Pipeline, error) {
	var records []PipelineRecord
	if err := query.Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}

	pipelines := make([]models.Pipeline, 0, len(records))
	for i := range records {
		p, err := records[i].Pipeline()
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, *p)
	}
	return pipelines, nil
}

// ListCategories 카테고리 목록
func (db *DB) ListCategories(owner string) ([]models.PipelineCategory, error) {
	var records []CategoryRecord
	if err := db.Where("owner = ?", owner).Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories := make([]models.PipelineCategory, 0, len(records))
	for i := range records {
		categories = append(categories, records[i].Category())
	}
	return categories, nil
}

// SaveCategory 카테고리 저장 (같은 사용자의 같은 ID가 있으면 덮어씀)
// 다른 사용자의 ID면 ErrConflict
func (db *DB) SaveCategory(owner string, c *models.PipelineCategory) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var existing CategoryRecord
		err := tx.Where("id = ?", c.ID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec := CategoryRecord{
				ID:          c.ID,
				Owner:       owner,
				Name:        c.CategoryName,
				Description: c.CategoryDescription,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("failed to save category: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to get category: %w", err)
		case existing.Owner != owner:
			return fmt.Errorf("%w: category %s", ErrConflict, c.ID)
		}

		err = tx.Model(&existing).Updates(map[string]any{
			"name":        c.CategoryName,
			"description": c.CategoryDescription,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to save category: %w", err)
		}
		return nil
	})
}

// DeleteCategory 카테고리 삭제
func (db *DB) DeleteCategory(owner, id string) error {
	result := db.Where("id = ? AND owner = ?", id, owner).Delete(&CategoryRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddStatusMessage 상태 이력 추가
func (db *DB) AddStatusMessage(pipelineID, messageType, message string) error {
	rec := StatusMessageRecord{
		PipelineID:  pipelineID,
		MessageType: messageType,
		Message:     message,
	}
	if err := db.Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to add status message: %w", err)
	}
	return nil
}

// ListStatusMessages 상태 이력 조회 (최신순)
func (db *DB) ListStatusMessages(pipelineID string, limit int) ([]models.PipelineStatusMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []StatusMessageRecord
	err := db.Where("pipeline_id = ?", pipelineID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list status messages: %w", err)
	}

	messages := make([]models.PipelineStatusMessage, 0, len(records))
	for i := range records {
		messages = append(messages, records[i].StatusMessage())
	}
	return messages, nil
}

// PurgeStatusMessages before 이전 상태 이력 삭제
func (db *DB) PurgeStatusMessages(before time.Time) (int64, error) {
	result := db.Where("created_at < ?", before).Delete(&StatusMessageRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge status messages: %w", result.Error)
	}
	return result.RowsAffected, nil
}
