package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"studymate/internal/metrics"
	"studymate/internal/model"
	"studymate/internal/parser"
	"studymate/internal/rag"
	"studymate/internal/repository"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"

	DefaultQuestionCount = 5
	MaxTopicLength       = 100
)

type QuizStore interface {
	Create(ctx context.Context, quiz *model.Quiz) error
	GetByIDAndUserID(ctx context.Context, id string, userID uint) (*model.Quiz, error)
	ListByUserID(ctx context.Context, userID uint) ([]model.Quiz, error)
	CountByUserID(ctx context.Context, userID uint) (int64, error)
}

type AttemptLedger interface {
	Record(ctx context.Context, attempt *model.QuizAttempt) error
	Aggregate(ctx context.Context, userID uint) (repository.AttemptAggregate, error)
	ListAttemptTimes(ctx context.Context, userID uint) ([]time.Time, error)
}

type DocumentLookup interface {
	ListByExternalIDs(ctx context.Context, userID uint, externalIDs []string) ([]model.Document, error)
}

type ScopeResolver interface {
	Resolve(ctx context.Context, userID uint, requested []string) (*rag.Scope, error)
}

type Generator interface {
	Generate(ctx context.Context, req rag.Request) (*rag.Result, error)
}

// CachedStats is one cache read. Stats is nil on a miss. Generation is the
// user's invalidation count at read time and must be handed back to SetStats.
type CachedStats struct {
	Stats      *Stats
	Generation int64
}

// StatsCache holds one computed Stats per user for the calendar day it was
// computed on. InvalidateStats bumps the generation, and a snapshot stored
// under an older generation is never served.
type StatsCache interface {
	GetStats(ctx context.Context, userID uint, day string) (CachedStats, error)
	SetStats(ctx context.Context, userID uint, day string, generation int64, stats *Stats) error
	InvalidateStats(ctx context.Context, userID uint) error
}

type QuizService struct {
	quizzes   QuizStore
	attempts  AttemptLedger
	documents DocumentLookup
	scopes    ScopeResolver
	generator Generator
	cache     StatsCache
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *metrics.Metrics
	location  *time.Location
	now       func() time.Time
}

type QuizServiceDeps struct {
	Quizzes   QuizStore
	Attempts  AttemptLedger
	Documents DocumentLookup
	Scopes    ScopeResolver
	Generator Generator
	Cache     StatsCache
	Validator *validator.Validate
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Location  *time.Location
}

func NewQuizService(deps QuizServiceDeps) *QuizService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	return &QuizService{
		quizzes:   deps.Quizzes,
		attempts:  deps.Attempts,
		documents: deps.Documents,
		scopes:    deps.Scopes,
		generator: deps.Generator,
		cache:     deps.Cache,
		validator: deps.Validator,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		location:  deps.Location,
		now:       time.Now,
	}
}

type CreateQuizInput struct {
	UserID          uint
	ExternalFileIDs []string `validate:"min=1"`
	Topic           string   `validate:"max=100"`
	Count           *int     `validate:"omitempty,min=1,max=20"`
	Difficulty      string   `validate:"omitempty,oneof=easy medium hard"`
}

var createQuizMessages = fieldMessages{
	"ExternalFileIDs": "Please select at least one document",
	"Topic":           "Topic must be 100 characters or less",
	"Count":           "Question count must be between 1 and 20",
	"Difficulty":      "Difficulty must be easy, medium or hard",
}

// Create authorises the requested documents, generates a quiz grounded on
// them and stores it. Nothing is stored unless the model output parses.
func (s *QuizService) Create(ctx context.Context, input CreateQuizInput) (*model.Quiz, error) {
	if input.UserID == 0 {
		return nil, ErrAuthRequired
	}
	input.Topic = strings.TrimSpace(input.Topic)
	if err := validate(s.validator, input, createQuizMessages); err != nil {
		return nil, err
	}
	count := DefaultQuestionCount
	if input.Count != nil {
		count = *input.Count
	}
	difficulty := input.Difficulty
	if difficulty == "" {
		difficulty = DifficultyMedium
	}

	scope, err := s.scopes.Resolve(ctx, input.UserID, input.ExternalFileIDs)
	if err != nil {
		return nil, err
	}

	res, err := s.generator.Generate(ctx, rag.Request{
		Kind:         "quiz",
		Filter:       scope.Filter,
		SystemPrompt: quizSystemPrompt(count, difficulty),
		Message:      quizUserMessage(input.Topic),
	})
	if err != nil {
		s.logger.Error("quiz generation failed", zap.Uint("user_id", input.UserID), zap.Error(err))
		return nil, err
	}

	questions, err := parser.ParseQuiz(res.Content)
	if err == nil && len(questions.Quiz) == 0 {
		err = fmt.Errorf("%w: no questions", parser.ErrMalformedQuiz)
	}
	if err != nil {
		s.logger.Error("quiz response rejected",
			zap.Uint("user_id", input.UserID),
			zap.Error(err),
			zap.String("raw", truncate(res.Content, 2000)),
		)
		return nil, err
	}

	quiz := &model.Quiz{
		UserID:     input.UserID,
		Name:       s.quizName(ctx, input.UserID, input.Topic, scope.ExternalFileIDs),
		Difficulty: difficulty,
		Questions:  datatypes.NewJSONType(*questions),
	}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx, input.UserID)
	return quiz, nil
}

// quizName prefers the topic, then the first selected document's name.
func (s *QuizService) quizName(ctx context.Context, userID uint, topic string, externalIDs []string) string {
	if topic != "" {
		return topic + " Quiz"
	}
	if s.documents == nil || len(externalIDs) == 0 {
		return model.DefaultQuizName
	}
	docs, err := s.documents.ListByExternalIDs(ctx, userID, externalIDs)
	if err != nil {
		s.logger.Warn("load quiz document names failed", zap.Error(err))
		return model.DefaultQuizName
	}
	for _, doc := range docs {
		if doc.ExternalFileID != externalIDs[0] || strings.TrimSpace(doc.FileName) == "" {
			continue
		}
		name := doc.FileName + " Quiz"
		if len(externalIDs) > 1 {
			name += fmt.Sprintf(" (+%d more)", len(externalIDs)-1)
		}
		return name
	}
	return model.DefaultQuizName
}

func (s *QuizService) Get(ctx context.Context, userID uint, quizID string) (*model.Quiz, error) {
	if userID == 0 {
		return nil, ErrAuthRequired
	}
	if strings.TrimSpace(quizID) == "" {
		return nil, ErrNotFoundOrForbidden
	}
	quiz, err := s.quizzes.GetByIDAndUserID(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, ErrNotFoundOrForbidden
	}
	return quiz, nil
}

func (s *QuizService) List(ctx context.Context, userID uint) ([]model.Quiz, error) {
	if userID == 0 {
		return nil, ErrAuthRequired
	}
	return s.quizzes.ListByUserID(ctx, userID)
}

type RecordAttemptInput struct {
	UserID uint
	QuizID string
	Score  int
}

// RecordAttempt appends an attempt and folds it into the quiz aggregates.
// Out-of-range scores are rejected before anything is written.
func (s *QuizService) RecordAttempt(ctx context.Context, input RecordAttemptInput) error {
	if input.UserID == 0 {
		return ErrAuthRequired
	}
	if input.Score < 0 || input.Score > 100 {
		s.metrics.ObserveAttempt("invalid")
		return invalid("score", "Score must be between 0 and 100")
	}
	if strings.TrimSpace(input.QuizID) == "" {
		return ErrNotFoundOrForbidden
	}

	err := s.attempts.Record(ctx, &model.QuizAttempt{
		UserID: input.UserID,
		QuizID: input.QuizID,
		Score:  input.Score,
	})
	if errors.Is(err, repository.ErrNoRowsAffected) {
		s.metrics.ObserveAttempt("not_found")
		return ErrNotFoundOrForbidden
	}
	if err != nil {
		s.metrics.ObserveAttempt("error")
		return err
	}
	s.metrics.ObserveAttempt("ok")
	s.invalidateStats(ctx, input.UserID)
	return nil
}

// Stats computes the dashboard numbers for the user. Results are cached for
// the rest of the calendar day or until the next quiz or attempt.
func (s *QuizService) Stats(ctx context.Context, userID uint) (*Stats, error) {
	if userID == 0 {
		return nil, ErrAuthRequired
	}
	now := s.now().In(s.location)
	day := now.Format(dateLayout)

	// a snapshot is stored under the generation seen before computing it
	cacheable := false
	var generation int64
	if s.cache != nil {
		cached, err := s.cache.GetStats(ctx, userID, day)
		if err != nil {
			s.logger.Warn("stats cache read failed", zap.Uint("user_id", userID), zap.Error(err))
		}
		s.metrics.ObserveStatsCache(err == nil && cached.Stats != nil)
		if err == nil {
			if cached.Stats != nil {
				return cached.Stats, nil
			}
			cacheable = true
			generation = cached.Generation
		}
	}

	var (
		quizCount int64
		agg       repository.AttemptAggregate
		times     []time.Time
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quizCount, err = s.quizzes.CountByUserID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		agg, err = s.attempts.Aggregate(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		times, err = s.attempts.ListAttemptTimes(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &Stats{
		QuizCount:     quizCount,
		TotalAttempts: agg.Total,
		AverageScore:  NewAverageScore(agg.Average),
		StreakDays:    StreakDays(times, now, s.location),
	}

	if cacheable {
		if err := s.cache.SetStats(ctx, userID, day, generation, stats); err != nil {
			s.logger.Warn("stats cache write failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return stats, nil
}

func (s *QuizService) invalidateStats(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateStats(ctx, userID); err != nil {
		s.logger.Warn("stats cache invalidate failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
