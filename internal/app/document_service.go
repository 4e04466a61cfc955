package app

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studymate/internal/model"
)

const MaxDocumentNameLength = 256

type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	ListByUserID(ctx context.Context, userID uint) ([]model.Document, error)
	GetByIDAndUserID(ctx context.Context, id, userID uint) (*model.Document, error)
	UpdateStatus(ctx context.Context, id uint, status model.DocumentStatus, chunkCount int) error
	DeleteByIDAndUserID(ctx context.Context, id, userID uint) error
}

type IngestPublisher interface {
	PublishIngest(ctx context.Context, job model.IngestJob) error
}

type IndexRemover interface {
	DeleteDocument(ctx context.Context, documentID uint) error
}

// DocumentService registers uploaded files and hands them to the ingestion
// pipeline. Deletion removes the indexed chunks and then the record.
type DocumentService struct {
	documents DocumentStore
	publisher IngestPublisher
	index     IndexRemover
	logger    *zap.Logger
}

func NewDocumentService(documents DocumentStore, publisher IngestPublisher, index IndexRemover, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		documents: documents,
		publisher: publisher,
		index:     index,
		logger:    logger,
	}
}

type UploadDocumentInput struct {
	UserID   uint
	FileName string
	Content  string
}

func (s *DocumentService) Upload(ctx context.Context, input UploadDocumentInput) (*model.Document, error) {
	if input.UserID == 0 {
		return nil, ErrAuthRequired
	}
	name := strings.TrimSpace(input.FileName)
	if name == "" {
		return nil, invalid("name", "File name is required")
	}
	if utf8.RuneCountInString(name) > MaxDocumentNameLength {
		return nil, invalid("name", "File name must be 256 characters or less")
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, invalid("file", "Document has no extractable text")
	}

	doc := &model.Document{
		UserID:         input.UserID,
		ExternalFileID: fmt.Sprintf("%d:%s", input.UserID, uuid.NewString()),
		FileName:       name,
		Status:         model.DocumentUploaded,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	err := s.publisher.PublishIngest(ctx, model.IngestJob{
		DocumentID:     doc.ID,
		UserID:         doc.UserID,
		ExternalFileID: doc.ExternalFileID,
		Content:        input.Content,
	})
	if err != nil {
		s.logger.Error("publish ingest job failed", zap.Uint("document_id", doc.ID), zap.Error(err))
		if statusErr := s.documents.UpdateStatus(ctx, doc.ID, model.DocumentFailed, 0); statusErr != nil {
			s.logger.Warn("mark document failed", zap.Uint("document_id", doc.ID), zap.Error(statusErr))
		}
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, userID uint) ([]model.Document, error) {
	if userID == 0 {
		return nil, ErrAuthRequired
	}
	return s.documents.ListByUserID(ctx, userID)
}

// Delete hard-deletes an owned document. A document the caller does not own
// is reported exactly like a missing one.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID uint) error {
	if userID == 0 {
		return ErrAuthRequired
	}
	doc, err := s.documents.GetByIDAndUserID(ctx, documentID, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrNotFoundOrForbidden
	}

	if err := s.index.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}
	if err := s.documents.DeleteByIDAndUserID(ctx, doc.ID, userID); err != nil {
		return err
	}
	s.logger.Info("document deleted", zap.Uint("document_id", doc.ID), zap.String("external_file_id", doc.ExternalFileID))
	return nil
}
