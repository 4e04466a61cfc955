package app

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"studymate/internal/model"
	"studymate/internal/parser"
	"studymate/internal/rag"
)

const DefaultTargetWords = 200

type SummaryStore interface {
	Create(ctx context.Context, summary *model.Summary) error
	ListByUserID(ctx context.Context, userID uint) ([]model.SummaryListItem, error)
}

type DocumentGetter interface {
	GetByExternalIDAndUserID(ctx context.Context, externalID string, userID uint) (*model.Document, error)
}

type SummaryService struct {
	summaries SummaryStore
	documents DocumentGetter
	scopes    ScopeResolver
	generator Generator
	validator *validator.Validate
	logger    *zap.Logger
}

func NewSummaryService(
	summaries SummaryStore,
	documents DocumentGetter,
	scopes ScopeResolver,
	generator Generator,
	validate *validator.Validate,
	logger *zap.Logger,
) *SummaryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{
		summaries: summaries,
		documents: documents,
		scopes:    scopes,
		generator: generator,
		validator: validate,
		logger:    logger,
	}
}

type CreateSummaryInput struct {
	UserID         uint
	ExternalFileID string `validate:"required"`
	Topic          string `validate:"max=100"`
	TargetWords    *int   `validate:"omitempty,min=50,max=1000"`
}

var createSummaryMessages = fieldMessages{
	"ExternalFileID": "File ID is required",
	"Topic":          "Topic must be 100 characters or less",
	"TargetWords":    "Target words must be between 50 and 1000",
}

// Create summarises one owned document and stores the result. Every call
// inserts a new row.
func (s *SummaryService) Create(ctx context.Context, input CreateSummaryInput) (*model.Summary, error) {
	if input.UserID == 0 {
		return nil, ErrAuthRequired
	}
	input.ExternalFileID = strings.TrimSpace(input.ExternalFileID)
	input.Topic = strings.TrimSpace(input.Topic)
	if err := validate(s.validator, input, createSummaryMessages); err != nil {
		return nil, err
	}
	targetWords := DefaultTargetWords
	if input.TargetWords != nil {
		targetWords = *input.TargetWords
	}

	scope, err := s.scopes.Resolve(ctx, input.UserID, []string{input.ExternalFileID})
	if err != nil {
		return nil, err
	}
	doc, err := s.documents.GetByExternalIDAndUserID(ctx, input.ExternalFileID, input.UserID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFoundOrForbidden
	}

	res, err := s.generator.Generate(ctx, rag.Request{
		Kind:         "summary",
		Filter:       scope.Filter,
		SystemPrompt: summarySystemPrompt(targetWords, input.Topic),
		Message:      summaryUserMessage(input.Topic),
	})
	if err != nil {
		s.logger.Error("summary generation failed", zap.Uint("user_id", input.UserID), zap.Error(err))
		return nil, err
	}

	parsed := parser.ParseSummary(res.Content)
	summary := &model.Summary{
		UserID:         input.UserID,
		DocumentID:     doc.ID,
		ExternalFileID: doc.ExternalFileID,
		Title:          parsed.Title,
		Content:        parsed.Content,
		Model:          res.Model,
		Tokens:         res.Tokens,
	}
	if err := s.summaries.Create(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *SummaryService) List(ctx context.Context, userID uint) ([]model.SummaryListItem, error) {
	if userID == 0 {
		return nil, ErrAuthRequired
	}
	return s.summaries.ListByUserID(ctx, userID)
}
