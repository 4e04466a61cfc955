package rag

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/embedding"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"studymate/internal/model"
)

type fakeOracle struct {
	mu      sync.Mutex
	calls   []Filter
	queries []string
	docs    []*schema.Document
	err     error
}

func (o *fakeOracle) AsRetriever(topK int, filter Filter) retriever.Retriever {
	o.mu.Lock()
	o.calls = append(o.calls, filter)
	o.mu.Unlock()
	return &fakeRetriever{oracle: o}
}

type fakeRetriever struct {
	oracle *fakeOracle
}

func (r *fakeRetriever) Retrieve(_ context.Context, query string, _ ...retriever.Option) ([]*schema.Document, error) {
	r.oracle.mu.Lock()
	defer r.oracle.mu.Unlock()
	r.oracle.queries = append(r.oracle.queries, query)
	return r.oracle.docs, r.oracle.err
}

type fakeChat struct {
	mu            sync.Mutex
	generateCalls int
	streamCalls   int
	lastInput     []*schema.Message
	generate      func(ctx context.Context) (*schema.Message, error)
	stream        func(ctx context.Context) (*schema.StreamReader[*schema.Message], error)
}

var _ einomodel.BaseChatModel = (*fakeChat)(nil)

func (c *fakeChat) Generate(ctx context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	c.mu.Lock()
	c.generateCalls++
	c.lastInput = input
	c.mu.Unlock()
	if c.generate == nil {
		return nil, errors.New("generate not configured")
	}
	return c.generate(ctx)
}

func (c *fakeChat) Stream(ctx context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	c.mu.Lock()
	c.streamCalls++
	c.lastInput = input
	c.mu.Unlock()
	if c.stream == nil {
		return nil, errors.New("stream not configured")
	}
	return c.stream(ctx)
}

// streamOf returns a finished stream of deltas, optionally ending in err.
func streamOf(err error, deltas ...string) *schema.StreamReader[*schema.Message] {
	sr, sw := schema.Pipe[*schema.Message](len(deltas) + 1)
	for _, d := range deltas {
		sw.Send(schema.AssistantMessage(d, nil), nil)
	}
	if err != nil {
		sw.Send(nil, err)
	}
	sw.Close()
	return sr
}

type memChunkStore struct {
	mu     sync.Mutex
	nextID uint
	chunks []model.DocumentChunk
	listed [][]string
}

func (s *memChunkStore) CreateBatch(_ context.Context, chunks []model.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.nextID++
		c.ID = s.nextID
		s.chunks = append(s.chunks, c)
	}
	return nil
}

func (s *memChunkStore) ListByExternalFileIDs(_ context.Context, ids []string) ([]model.DocumentChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listed = append(s.listed, ids)
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.DocumentChunk
	for _, c := range s.chunks {
		if want[c.ExternalFileID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memChunkStore) DeleteByDocumentID(_ context.Context, documentID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	s.chunks = kept
	return nil
}

// keywordEmbedder maps text onto a fixed vocabulary so similarity is
// predictable.
type keywordEmbedder struct {
	vocab []string
	calls int
}

var _ embedding.Embedder = (*keywordEmbedder)(nil)

func (e *keywordEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	e.calls++
	out := make([][]float64, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		vec := make([]float64, len(e.vocab)+1)
		vec[len(e.vocab)] = 0.01
		for j, w := range e.vocab {
			vec[j] = float64(strings.Count(lower, w))
		}
		out[i] = vec
	}
	return out, nil
}
