package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"studymate/internal/model"
)

// ErrNoRowsAffected is returned when a scoped update matched nothing.
var ErrNoRowsAffected = errors.New("no rows affected")

type QuizAttemptRepository struct {
	db *gorm.DB
}

type AttemptAggregate struct {
	Total   int64
	Average *float64
}

func NewQuizAttemptRepository(db *gorm.DB) *QuizAttemptRepository {
	return &QuizAttemptRepository{db: db}
}

// Record appends the attempt and folds its score into the quiz aggregates in
// one transaction. Both aggregate expressions are evaluated by the database
// against the stored row, so concurrent attempts cannot overwrite each other.
// The quiz update runs first and is scoped by owner; when it matches no row
// nothing is written and ErrNoRowsAffected is returned.
func (r *QuizAttemptRepository) Record(ctx context.Context, attempt *model.QuizAttempt) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Quiz{}).
			Where("id = ? AND user_id = ?", attempt.QuizID, attempt.UserID).
			Updates(map[string]interface{}{
				"attempts":   gorm.Expr("attempts + ?", 1),
				"best_score": greatest(tx, "best_score", attempt.Score),
			})
		if result.Error != nil {
			return fmt.Errorf("update quiz aggregates failed: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNoRowsAffected
		}

		if err := tx.Create(attempt).Error; err != nil {
			return fmt.Errorf("insert quiz attempt failed: %w", err)
		}
		return nil
	})
}

// Aggregate returns the attempt count and mean score for the user. Average is
// nil when the user has no attempts.
func (r *QuizAttemptRepository) Aggregate(ctx context.Context, userID uint) (AttemptAggregate, error) {
	var row AttemptAggregate
	if err := r.db.WithContext(ctx).
		Model(&model.QuizAttempt{}).
		Select("COUNT(*) AS total, AVG(score) AS average").
		Where("user_id = ?", userID).
		Scan(&row).Error; err != nil {
		return AttemptAggregate{}, fmt.Errorf("aggregate quiz attempts failed: %w", err)
	}
	return row, nil
}

// ListAttemptTimes returns the creation time of every attempt by the user,
// newest first.
func (r *QuizAttemptRepository) ListAttemptTimes(ctx context.Context, userID uint) ([]time.Time, error) {
	var times []time.Time
	if err := r.db.WithContext(ctx).
		Model(&model.QuizAttempt{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("created_at", &times).Error; err != nil {
		return nil, fmt.Errorf("list quiz attempt times failed: %w", err)
	}
	return times, nil
}

func greatest(tx *gorm.DB, column string, value int) interface{} {
	if tx.Dialector.Name() == "sqlite" {
		return gorm.Expr("MAX("+column+", ?)", value)
	}
	return gorm.Expr("GREATEST("+column+", ?)", value)
}
