package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"studymate/internal/model"
)

type DocumentChunkRepository struct {
	db *gorm.DB
}

func NewDocumentChunkRepository(db *gorm.DB) *DocumentChunkRepository {
	return &DocumentChunkRepository{db: db}
}

func (r *DocumentChunkRepository) CreateBatch(ctx context.Context, chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&chunks, 100).Error; err != nil {
		return fmt.Errorf("create document chunks failed: %w", err)
	}
	return nil
}

// ListByExternalFileIDs loads chunks for the given external ids only. The
// caller is responsible for having authorised the ids.
func (r *DocumentChunkRepository) ListByExternalFileIDs(ctx context.Context, externalIDs []string) ([]model.DocumentChunk, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	var chunks []model.DocumentChunk
	if err := r.db.WithContext(ctx).Where("external_file_id IN ?", externalIDs).Order("document_id ASC, position ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list document chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *DocumentChunkRepository) DeleteByDocumentID(ctx context.Context, documentID uint) error {
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.DocumentChunk{}).Error; err != nil {
		return fmt.Errorf("delete document chunks failed: %w", err)
	}
	return nil
}
