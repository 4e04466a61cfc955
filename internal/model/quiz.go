package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DefaultQuizName = "Untitled Quiz"

type QuizQuestion struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswer"`
}

// QuizResult is the question list stored inline on the quiz row.
type QuizResult struct {
	Quiz []QuizQuestion `json:"quiz"`
}

// Quiz carries denormalised attempt aggregates. BestScore is the max over all
// recorded attempts and only ever moves up.
type Quiz struct {
	ID         string                         `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     uint                           `gorm:"not null;index" json:"userId"`
	Name       string                         `gorm:"size:256;not null" json:"name"`
	Difficulty string                         `gorm:"size:16;not null" json:"difficulty"`
	Attempts   int                            `gorm:"not null;default:0" json:"attempts"`
	BestScore  int                            `gorm:"not null;default:0" json:"bestScore"`
	Questions  datatypes.JSONType[QuizResult] `gorm:"not null" json:"questions"`
	CreatedAt  time.Time                      `json:"createdAt"`
	UpdatedAt  time.Time                      `json:"updatedAt"`

	AttemptRows []QuizAttempt `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Name == "" {
		q.Name = DefaultQuizName
	}
	return nil
}
