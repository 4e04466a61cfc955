package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"studymate/internal/model"
)

type SummaryRepository struct {
	db *gorm.DB
}

func NewSummaryRepository(db *gorm.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

func (r *SummaryRepository) Create(ctx context.Context, summary *model.Summary) error {
	if err := r.db.WithContext(ctx).Create(summary).Error; err != nil {
		return fmt.Errorf("create summary failed: %w", err)
	}
	return nil
}

func (r *SummaryRepository) ListByUserID(ctx context.Context, userID uint) ([]model.SummaryListItem, error) {
	var items []model.SummaryListItem
	if err := r.db.WithContext(ctx).
		Table("summaries").
		Select("summaries.id, summaries.title, summaries.content, summaries.model, summaries.tokens, " +
			"COALESCE(documents.file_name, '') AS file_name, summaries.created_at, summaries.updated_at").
		Joins("LEFT JOIN documents ON documents.id = summaries.document_id").
		Where("summaries.user_id = ?", userID).
		Order("summaries.created_at DESC").
		Scan(&items).Error; err != nil {
		return nil, fmt.Errorf("list summaries failed: %w", err)
	}
	return items, nil
}
