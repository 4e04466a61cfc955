package model

import "time"

// Summary is inserted once per generation request; requests are not deduplicated.
type Summary struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"userId"`
	DocumentID     uint      `gorm:"not null;index" json:"documentId"`
	ExternalFileID string    `gorm:"size:96;not null" json:"externalFileId"`
	Title          string    `gorm:"size:512;not null" json:"title"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Model          string    `gorm:"size:128;not null" json:"model"`
	Tokens         *int      `json:"tokens,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	Document *Document `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// SummaryListItem is a summary joined with its document's file name.
type SummaryListItem struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Model     string    `json:"model"`
	Tokens    *int      `json:"tokens,omitempty"`
	FileName  string    `json:"fileName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
