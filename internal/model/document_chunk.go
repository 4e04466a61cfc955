package model

import (
	"encoding/json"
	"time"
)

// DocumentChunk is one retrievable slice of a document. Embedding is a JSON
// array so the table works on both mysql and sqlite.
type DocumentChunk struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DocumentID     uint      `gorm:"not null;index" json:"documentId"`
	ExternalFileID string    `gorm:"size:96;not null;index" json:"externalFileId"`
	Position       int       `gorm:"not null" json:"position"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Embedding      string    `gorm:"type:text" json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}

// EmbeddingVector returns the parsed embedding; nil on parse error.
func (c *DocumentChunk) EmbeddingVector() []float64 {
	if c.Embedding == "" {
		return nil
	}
	var v []float64
	if err := json.Unmarshal([]byte(c.Embedding), &v); err != nil {
		return nil
	}
	return v
}

func (c *DocumentChunk) SetEmbedding(vec []float64) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}
