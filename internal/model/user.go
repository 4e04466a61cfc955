package model

import "time"

// User owns every other row; deleting a user cascades to them.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Documents []Document    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Quizzes   []Quiz        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Attempts  []QuizAttempt `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Summaries []Summary     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
