package app

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"studymate/internal/rag"
)

const MaxChatMessageLength = 2000

type StreamGenerator interface {
	Generator
	StreamChat(ctx context.Context, req rag.Request, emit rag.Emitter) error
}

type ChatService struct {
	scopes    ScopeResolver
	generator StreamGenerator
	logger    *zap.Logger
}

func NewChatService(scopes ScopeResolver, generator StreamGenerator, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{scopes: scopes, generator: generator, logger: logger}
}

type AskInput struct {
	UserID         uint
	ExternalFileID string
	Message        string
	History        []rag.Turn
}

type AskResult struct {
	Answer string `json:"answer"`
	Model  string `json:"model"`
	Tokens *int   `json:"tokens,omitempty"`
}

// Ask answers one question about a single owned document.
func (s *ChatService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	req, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	res, err := s.generator.Generate(ctx, req)
	if err != nil {
		s.logger.Error("chat generation failed", zap.Uint("user_id", input.UserID), zap.Error(err))
		return nil, err
	}
	return &AskResult{Answer: res.Content, Model: res.Model, Tokens: res.Tokens}, nil
}

// Stream validates and authorises the request, then streams the answer into
// emit. Validation and authorisation errors are returned before emit is
// called.
func (s *ChatService) Stream(ctx context.Context, input AskInput, emit rag.Emitter) error {
	req, err := s.prepare(ctx, input)
	if err != nil {
		return err
	}
	return s.generator.StreamChat(ctx, req, emit)
}

func (s *ChatService) prepare(ctx context.Context, input AskInput) (rag.Request, error) {
	if input.UserID == 0 {
		return rag.Request{}, ErrAuthRequired
	}
	externalID := strings.TrimSpace(input.ExternalFileID)
	if externalID == "" {
		return rag.Request{}, invalid("externalFileId", "File ID is required")
	}
	if strings.TrimSpace(input.Message) == "" {
		return rag.Request{}, invalid("message", "Message is required")
	}
	if utf8.RuneCountInString(input.Message) > MaxChatMessageLength {
		return rag.Request{}, invalid("message", "Message must be 2000 characters or less")
	}
	for _, turn := range input.History {
		if turn.Role != "user" && turn.Role != "assistant" {
			return rag.Request{}, invalid("history", "History roles must be user or assistant")
		}
	}

	scope, err := s.scopes.Resolve(ctx, input.UserID, []string{externalID})
	if err != nil {
		return rag.Request{}, err
	}
	return rag.Request{
		Kind:         "chat",
		Filter:       scope.Filter,
		SystemPrompt: chatSystemPrompt,
		Message:      input.Message,
		History:      input.History,
	}, nil
}
