package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"studymate/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ListByUserID(ctx context.Context, userID uint) ([]model.Document, error) {
	var list []model.Document
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

// ListExternalIDsByUserID returns the external file ids owned by the user.
func (r *DocumentRepository) ListExternalIDsByUserID(ctx context.Context, userID uint) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Where("user_id = ?", userID).Pluck("external_file_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list document external ids failed: %w", err)
	}
	return ids, nil
}

func (r *DocumentRepository) ListByExternalIDs(ctx context.Context, userID uint, externalIDs []string) ([]model.Document, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	var list []model.Document
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND external_file_id IN ?", userID, externalIDs).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents by external ids failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) GetByIDAndUserID(ctx context.Context, id, userID uint) (*model.Document, error) {
	return r.first(ctx, "id = ? AND user_id = ?", id, userID)
}

func (r *DocumentRepository) GetByExternalIDAndUserID(ctx context.Context, externalID string, userID uint) (*model.Document, error) {
	return r.first(ctx, "external_file_id = ? AND user_id = ?", externalID, userID)
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uint) (*model.Document, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id uint, status model.DocumentStatus, chunkCount int) error {
	updates := map[string]interface{}{"status": status}
	if chunkCount > 0 {
		updates["chunk_count"] = chunkCount
	}
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("update document status failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) DeleteByIDAndUserID(ctx context.Context, id, userID uint) error {
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) first(ctx context.Context, query string, args ...interface{}) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where(query, args...).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}
