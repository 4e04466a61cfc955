package model

import "time"

type DocumentStatus string

const (
	DocumentUploaded  DocumentStatus = "uploaded"
	DocumentIngesting DocumentStatus = "ingesting"
	DocumentReady     DocumentStatus = "ready"
	DocumentFailed    DocumentStatus = "failed"
)

// Document is an uploaded file registered with the chunk index. ID is the
// index-side identifier; ExternalFileID ("<userId>:<uuid>") is the value
// retrieval filters are expressed over.
type Document struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         uint           `gorm:"not null;index" json:"userId"`
	ExternalFileID string         `gorm:"size:96;not null;uniqueIndex" json:"externalFileId"`
	FileName       string         `gorm:"size:256;not null" json:"fileName"`
	Status         DocumentStatus `gorm:"size:16;not null;index" json:"status"`
	ChunkCount     int            `gorm:"not null;default:0" json:"chunkCount"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`

	Chunks []DocumentChunk `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
