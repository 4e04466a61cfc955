package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"studymate/internal/metrics"
)

const (
	DefaultTopK = 8
	// MaxHistoryTurns bounds how much prior conversation is replayed.
	MaxHistoryTurns = 4

	defaultTimeout = 90 * time.Second
)

// Turn is one prior chat message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one grounded chat turn. Kind labels metrics and traces.
type Request struct {
	Kind         string
	Filter       Filter
	SystemPrompt string
	Message      string
	History      []Turn
}

type Result struct {
	Content string
	Model   string
	Tokens  *int
}

type GeneratorConfig struct {
	ModelName string
	TopK      int
	Timeout   time.Duration
}

// Generator drives a chat model with context retrieved from an Oracle.
type Generator struct {
	oracle    Oracle
	chat      model.BaseChatModel
	modelName string
	topK      int
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewGenerator(oracle Oracle, chat model.BaseChatModel, cfg GeneratorConfig, logger *zap.Logger, m *metrics.Metrics) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Generator{
		oracle:    oracle,
		chat:      chat,
		modelName: cfg.ModelName,
		topK:      topK,
		timeout:   timeout,
		logger:    logger,
		metrics:   m,
	}
}

func (g *Generator) ModelName() string {
	return g.modelName
}

// Generate waits for the complete answer. Transport and provider failures,
// including the call timeout, are reported as ErrUpstream.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	ctx, span := otel.Tracer("rag").Start(ctx, "rag.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("kind", req.Kind))

	messages, err := g.buildMessages(ctx, req)
	if err != nil {
		g.observe(req.Kind, "error")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res, err := g.complete(ctx, messages)
	if err != nil {
		g.observe(req.Kind, outcomeOf(err))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	g.observe(req.Kind, "ok")
	return res, nil
}

func (g *Generator) complete(ctx context.Context, messages []*schema.Message) (*Result, error) {
	msg, err := g.chat.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return nil, ErrEmptyResponse
	}

	res := &Result{Content: msg.Content, Model: g.modelName}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil && msg.ResponseMeta.Usage.TotalTokens > 0 {
		tokens := msg.ResponseMeta.Usage.TotalTokens
		res.Tokens = &tokens
	}
	return res, nil
}

// buildMessages retrieves context for the current question and assembles the
// system and user messages.
func (g *Generator) buildMessages(ctx context.Context, req Request) ([]*schema.Message, error) {
	if req.Filter.Empty() {
		return nil, ErrNotAuthorized
	}

	docs, err := g.oracle.AsRetriever(g.topK, req.Filter).Retrieve(ctx, req.Message)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve: %w", ErrUpstream, err)
	}

	return []*schema.Message{
		schema.SystemMessage(systemWithContext(req.SystemPrompt, docs)),
		schema.UserMessage(FlattenHistory(req.History, req.Message)),
	}, nil
}

func systemWithContext(prompt string, docs []*schema.Document) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(prompt))
	b.WriteString("\n\nContext information is below.\n---------------------\n")
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(d.Content)
	}
	b.WriteString("\n---------------------\n")
	return b.String()
}

// FlattenHistory folds the last MaxHistoryTurns turns into the user message.
func FlattenHistory(history []Turn, message string) string {
	if len(history) == 0 {
		return message
	}
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}
	lines := make([]string, 0, len(history))
	for _, t := range history {
		lines = append(lines, t.Role+": "+t.Content)
	}
	return "Previous conversation:\n" + strings.Join(lines, "\n") + "\n\nCurrent question: " + message
}

func (g *Generator) observe(kind, outcome string) {
	if kind == "" {
		kind = "unknown"
	}
	g.metrics.ObserveGeneration(kind, outcome)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrEmptyResponse):
		return "empty"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
