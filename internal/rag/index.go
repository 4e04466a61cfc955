package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"studymate/internal/model"
)

const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 64
)

var ErrEmptyContent = errors.New("document has no text content")

type ChunkStore interface {
	CreateBatch(ctx context.Context, chunks []model.DocumentChunk) error
	ListByExternalFileIDs(ctx context.Context, externalIDs []string) ([]model.DocumentChunk, error)
	DeleteByDocumentID(ctx context.Context, documentID uint) error
}

// Oracle is the retrieval side of the index as seen by generation.
type Oracle interface {
	AsRetriever(topK int, filter Filter) retriever.Retriever
}

type IndexOptions struct {
	ChunkSize    int
	ChunkOverlap int
}

// Index is an embedding-backed chunk index stored in the relational database.
// It is built once at startup and shared by all requests.
type Index struct {
	store    ChunkStore
	embedder embedding.Embedder
	size     int
	overlap  int
}

var _ Oracle = (*Index)(nil)

func NewIndex(store ChunkStore, embedder embedding.Embedder, opts IndexOptions) *Index {
	size := opts.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap := opts.ChunkOverlap
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 2
		}
	}
	return &Index{store: store, embedder: embedder, size: size, overlap: overlap}
}

// Ingest chunks and embeds content, storing chunks tagged with externalFileID.
// It returns the number of chunks written.
func (x *Index) Ingest(ctx context.Context, documentID uint, externalFileID, content string) (int, error) {
	ctx, span := otel.Tracer("rag").Start(ctx, "rag.Index.Ingest")
	defer span.End()
	span.SetAttributes(attribute.String("external_file_id", externalFileID))

	chunks := chunkText(strings.TrimSpace(content), x.size, x.overlap)
	if len(chunks) == 0 {
		return 0, ErrEmptyContent
	}

	vectors, err := x.embedder.EmbedStrings(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embed chunks failed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: want %d got %d", len(chunks), len(vectors))
	}

	rows := make([]model.DocumentChunk, len(chunks))
	for i := range chunks {
		rows[i] = model.DocumentChunk{
			DocumentID:     documentID,
			ExternalFileID: externalFileID,
			Position:       i,
			Content:        chunks[i],
		}
		rows[i].SetEmbedding(vectors[i])
	}
	if err := x.store.CreateBatch(ctx, rows); err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int("chunks", len(rows)))
	return len(rows), nil
}

func (x *Index) DeleteDocument(ctx context.Context, documentID uint) error {
	return x.store.DeleteByDocumentID(ctx, documentID)
}

// AsRetriever returns a retriever bound to filter. An empty filter retrieves
// nothing.
func (x *Index) AsRetriever(topK int, filter Filter) retriever.Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	ids := make([]string, len(filter.ExternalFileIDs))
	copy(ids, filter.ExternalFileIDs)
	return &boundRetriever{index: x, topK: topK, filter: Filter{ExternalFileIDs: ids}}
}

type boundRetriever struct {
	index  *Index
	topK   int
	filter Filter
}

func (r *boundRetriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	ctx, span := otel.Tracer("rag").Start(ctx, "rag.Retrieve")
	defer span.End()

	if r.filter.Empty() {
		return nil, nil
	}

	topK := r.topK
	options := retriever.GetCommonOptions(&retriever.Options{TopK: &topK}, opts...)
	if options.TopK != nil && *options.TopK > 0 {
		topK = *options.TopK
	}

	chunks, err := r.index.store.ListByExternalFileIDs(ctx, r.filter.ExternalFileIDs)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := r.index.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding count mismatch: want 1 got %d", len(vectors))
	}
	queryVec := vectors[0]

	type scored struct {
		chunk model.DocumentChunk
		score float64
	}
	ranked := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		// filter is re-checked so a store bug cannot widen the scope
		if !r.filter.Allows(c.ExternalFileID) {
			continue
		}
		ranked = append(ranked, scored{chunk: c, score: cosineSimilarity(queryVec, c.EmbeddingVector())})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if options.ScoreThreshold != nil {
		cut := len(ranked)
		for i, s := range ranked {
			if s.score < *options.ScoreThreshold {
				cut = i
				break
			}
		}
		ranked = ranked[:cut]
	}
	if topK < len(ranked) {
		ranked = ranked[:topK]
	}

	docs := make([]*schema.Document, 0, len(ranked))
	for _, s := range ranked {
		doc := &schema.Document{
			ID:      strconv.FormatUint(uint64(s.chunk.ID), 10),
			Content: s.chunk.Content,
			MetaData: map[string]any{
				MetadataExternalFileID: s.chunk.ExternalFileID,
				"documentId":           s.chunk.DocumentID,
				"position":             s.chunk.Position,
			},
		}
		docs = append(docs, doc.WithScore(s.score))
	}
	span.SetAttributes(attribute.Int("results", len(docs)))
	return docs, nil
}

// chunkText splits text into overlapping chunks by rune count.
func chunkText(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap >= size {
		overlap = size / 2
	}
	var chunks []string
	runes := []rune(text)
	for i := 0; i < len(runes); {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[i:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		i += size - overlap
	}
	return chunks
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
