package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuizAttempt is append-only; rows are never updated after insert.
type QuizAttempt struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_attempt_user_created,priority:1" json:"userId"`
	QuizID    string    `gorm:"type:char(36);not null;index" json:"quizId"`
	Score     int       `gorm:"not null" json:"score"`
	CreatedAt time.Time `gorm:"not null;index:idx_attempt_user_created,priority:2" json:"createdAt"`
}

func (a *QuizAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
