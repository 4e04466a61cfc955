package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"studymate/internal/model"
	"studymate/internal/rag"
	"studymate/internal/repository"
)

type fakeOwned struct {
	ids []string
}

func (f fakeOwned) ListExternalIDsByUserID(_ context.Context, _ uint) ([]string, error) {
	return f.ids, nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	content  string
	err      error
	requests []rag.Request
	chunks   []string
}

func (f *fakeGenerator) Generate(_ context.Context, req rag.Request) (*rag.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	tokens := 42
	return &rag.Result{Content: f.content, Model: "test-model", Tokens: &tokens}, nil
}

func (f *fakeGenerator) StreamChat(_ context.Context, req rag.Request, emit rag.Emitter) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	chunks, err := f.chunks, f.err
	f.mu.Unlock()
	for _, c := range chunks {
		if emitErr := emit(c); emitErr != nil {
			return emitErr
		}
	}
	return err
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeQuizStore struct {
	mu      sync.Mutex
	quizzes map[string]*model.Quiz
	next    int
}

func newFakeQuizStore() *fakeQuizStore {
	return &fakeQuizStore{quizzes: map[string]*model.Quiz{}}
}

func (f *fakeQuizStore) Create(_ context.Context, quiz *model.Quiz) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	quiz.ID = fmt.Sprintf("quiz-%d", f.next)
	f.quizzes[quiz.ID] = quiz
	return nil
}

func (f *fakeQuizStore) GetByIDAndUserID(_ context.Context, id string, userID uint) (*model.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.quizzes[id]
	if q == nil || q.UserID != userID {
		return nil, nil
	}
	return q, nil
}

func (f *fakeQuizStore) ListByUserID(_ context.Context, userID uint) ([]model.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Quiz
	for _, q := range f.quizzes {
		if q.UserID == userID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeQuizStore) CountByUserID(ctx context.Context, userID uint) (int64, error) {
	list, _ := f.ListByUserID(ctx, userID)
	return int64(len(list)), nil
}

type fakeLedger struct {
	mu       sync.Mutex
	quizzes  *fakeQuizStore
	attempts []model.QuizAttempt
	now      func() time.Time
	// afterAggregate runs once, after Aggregate has read the attempts
	afterAggregate func()
}

func (f *fakeLedger) Record(_ context.Context, attempt *model.QuizAttempt) error {
	f.quizzes.mu.Lock()
	q := f.quizzes.quizzes[attempt.QuizID]
	if q == nil || q.UserID != attempt.UserID {
		f.quizzes.mu.Unlock()
		return repository.ErrNoRowsAffected
	}
	q.Attempts++
	if attempt.Score > q.BestScore {
		q.BestScore = attempt.Score
	}
	f.quizzes.mu.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	attempt.CreatedAt = f.now()
	f.attempts = append(f.attempts, *attempt)
	return nil
}

func (f *fakeLedger) Aggregate(_ context.Context, userID uint) (repository.AttemptAggregate, error) {
	f.mu.Lock()
	agg := f.aggregateLocked(userID)
	hook := f.afterAggregate
	f.afterAggregate = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return agg, nil
}

func (f *fakeLedger) aggregateLocked(userID uint) repository.AttemptAggregate {
	var agg repository.AttemptAggregate
	sum := 0
	for _, a := range f.attempts {
		if a.UserID == userID {
			agg.Total++
			sum += a.Score
		}
	}
	if agg.Total > 0 {
		mean := float64(sum) / float64(agg.Total)
		agg.Average = &mean
	}
	return agg
}

func (f *fakeLedger) ListAttemptTimes(_ context.Context, userID uint) ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []time.Time
	for _, a := range f.attempts {
		if a.UserID == userID {
			out = append(out, a.CreatedAt)
		}
	}
	return out, nil
}

type fakeDocuments struct {
	mu       sync.Mutex
	docs     map[uint]*model.Document
	next     uint
	statuses map[uint]model.DocumentStatus
}

func newFakeDocuments(docs ...model.Document) *fakeDocuments {
	f := &fakeDocuments{docs: map[uint]*model.Document{}, statuses: map[uint]model.DocumentStatus{}}
	for i := range docs {
		d := docs[i]
		f.docs[d.ID] = &d
		if d.ID > f.next {
			f.next = d.ID
		}
	}
	return f
}

func (f *fakeDocuments) Create(_ context.Context, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	doc.ID = f.next
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocuments) ListByUserID(_ context.Context, userID uint) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Document
	for _, d := range f.docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDocuments) ListExternalIDsByUserID(ctx context.Context, userID uint) ([]string, error) {
	docs, _ := f.ListByUserID(ctx, userID)
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ExternalFileID)
	}
	return ids, nil
}

func (f *fakeDocuments) ListByExternalIDs(_ context.Context, userID uint, externalIDs []string) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Document
	for _, id := range externalIDs {
		for _, d := range f.docs {
			if d.UserID == userID && d.ExternalFileID == id {
				out = append(out, *d)
			}
		}
	}
	return out, nil
}

func (f *fakeDocuments) GetByIDAndUserID(_ context.Context, id, userID uint) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.docs[id]
	if d == nil || d.UserID != userID {
		return nil, nil
	}
	return d, nil
}

func (f *fakeDocuments) GetByExternalIDAndUserID(_ context.Context, externalID string, userID uint) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.UserID == userID && d.ExternalFileID == externalID {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeDocuments) UpdateStatus(_ context.Context, id uint, status model.DocumentStatus, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	return nil
}

func (f *fakeDocuments) DeleteByIDAndUserID(_ context.Context, id, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d := f.docs[id]; d != nil && d.UserID == userID {
		delete(f.docs, id)
	}
	return nil
}

type memStatsCache struct {
	mu          sync.Mutex
	entries     map[uint]memStatsEntry
	generations map[uint]int64
}

type memStatsEntry struct {
	day        string
	generation int64
	stats      *Stats
}

func newMemStatsCache() *memStatsCache {
	return &memStatsCache{entries: map[uint]memStatsEntry{}, generations: map[uint]int64{}}
}

func (c *memStatsCache) GetStats(_ context.Context, userID uint, day string) (CachedStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := CachedStats{Generation: c.generations[userID]}
	if e, ok := c.entries[userID]; ok && e.day == day && e.generation == out.Generation {
		out.Stats = e.stats
	}
	return out, nil
}

func (c *memStatsCache) SetStats(_ context.Context, userID uint, day string, generation int64, stats *Stats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = memStatsEntry{day: day, generation: generation, stats: stats}
	return nil
}

func (c *memStatsCache) InvalidateStats(_ context.Context, userID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[userID]++
	delete(c.entries, userID)
	return nil
}
