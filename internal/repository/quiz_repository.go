package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"studymate/internal/model"
)

type QuizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

func (r *QuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	if err := r.db.WithContext(ctx).Create(quiz).Error; err != nil {
		return fmt.Errorf("create quiz failed: %w", err)
	}
	return nil
}

func (r *QuizRepository) GetByIDAndUserID(ctx context.Context, id string, userID uint) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&quiz).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get quiz failed: %w", err)
	}
	return &quiz, nil
}

func (r *QuizRepository) ListByUserID(ctx context.Context, userID uint) ([]model.Quiz, error) {
	var list []model.Quiz
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list quizzes failed: %w", err)
	}
	return list, nil
}

func (r *QuizRepository) CountByUserID(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Quiz{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count quizzes failed: %w", err)
	}
	return count, nil
}
