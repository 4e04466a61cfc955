package model

// IngestJob asks the ingestion worker to chunk and index one document.
type IngestJob struct {
	DocumentID     uint   `json:"documentId"`
	UserID         uint   `json:"userId"`
	ExternalFileID string `json:"externalFileId"`
	Content        string `json:"content"`
}
