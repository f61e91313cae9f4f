package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
)

// ScoredChunk is one retrieval hit: the chunk text, its ordinal position in
// the source document, and its similarity to the query.
type ScoredChunk struct {
	Position int
	Text     string
	Score    float64
}

// Index is a per-document searchable store of chunk embeddings. An index is
// immutable after construction and owned by at most one document.
type Index interface {
	DocumentID() string
	EmbeddingModel() string
	Len() int
	Search(ctx context.Context, queryVec []float32, k int) ([]ScoredChunk, error)
}

// IndexBuilder turns document text into a searchable Index. All chunks of one
// document are embedded with the same model; the model name is stamped on the
// index for query-time verification.
type IndexBuilder struct {
	chunker  Chunker
	embedder Embedder
	backend  IndexBackend
}

// IndexBackend assembles the storage side of an index from embedded chunks.
type IndexBackend interface {
	NewIndex(ctx context.Context, docID, model string, chunks []string, vectors [][]float32) (Index, error)
}

// NewIndexBuilder creates a builder over the given chunking policy, embedding
// provider and storage backend.
func NewIndexBuilder(chunker Chunker, embedder Embedder, backend IndexBackend) *IndexBuilder {
	return &IndexBuilder{chunker: chunker, embedder: embedder, backend: backend}
}

// Build constructs the index for one document's full text. Empty text and
// embedding failures surface as ErrIndexBuild; nothing partial is returned.
func (b *IndexBuilder) Build(ctx context.Context, docID, text string) (Index, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: document %s has no text", ErrIndexBuild, docID)
	}

	chunks, err := b.chunker.Split(text)
	if err != nil {
		return nil, fmt.Errorf("%w: could not chunk document %s: %v", ErrIndexBuild, docID, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document %s produced no chunks", ErrIndexBuild, docID)
	}
	log.Printf("INDEX: split document %s into %d chunks", docID, len(chunks))

	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		vec, err := b.embedder.Embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: could not embed chunk %d of document %s: %v", ErrIndexBuild, i, docID, err)
		}
		vectors[i] = vec
	}

	idx, err := b.backend.NewIndex(ctx, docID, b.embedder.Model(), chunks, vectors)
	if err != nil {
		return nil, fmt.Errorf("%w: could not store index for document %s: %v", ErrIndexBuild, docID, err)
	}
	log.Printf("INDEX: built index for document %s (model %s)", docID, b.embedder.Model())
	return idx, nil
}

// MemoryBackend keeps indexes in process memory, searched by brute-force
// cosine similarity.
type MemoryBackend struct{}

func (MemoryBackend) NewIndex(_ context.Context, docID, model string, chunks []string, vectors [][]float32) (Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	return &memoryIndex{docID: docID, model: model, chunks: chunks, vectors: vectors}, nil
}

type memoryIndex struct {
	docID   string
	model   string
	chunks  []string
	vectors [][]float32
}

func (m *memoryIndex) DocumentID() string     { return m.docID }
func (m *memoryIndex) EmbeddingModel() string { return m.model }
func (m *memoryIndex) Len() int               { return len(m.chunks) }

// Search returns the k chunks most similar to queryVec in descending score
// order. Ties keep the original chunk order, so results are deterministic.
// Fewer than k chunks means all of them are returned.
func (m *memoryIndex) Search(_ context.Context, queryVec []float32, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		k = 3
	}

	scored := make([]ScoredChunk, len(m.chunks))
	for i := range m.chunks {
		scored[i] = ScoredChunk{
			Position: i,
			Text:     m.chunks[i],
			Score:    cosineSimilarity(queryVec, m.vectors[i]),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
