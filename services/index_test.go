package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMemoryIndex(t *testing.T, embedder Embedder, docID, text string) Index {
	t.Helper()
	builder := NewIndexBuilder(NewSentenceChunker(1, 0), embedder, MemoryBackend{})
	idx, err := builder.Build(context.Background(), docID, text)
	require.NoError(t, err)
	return idx
}

func TestBuildRejectsEmptyText(t *testing.T) {
	builder := NewIndexBuilder(NewSentenceChunker(1, 0), newFakeEmbedder("a"), MemoryBackend{})

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := builder.Build(context.Background(), "doc1", text)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrIndexBuild)
	}
}

func TestBuildPropagatesEmbedderFailure(t *testing.T) {
	builder := NewIndexBuilder(NewSentenceChunker(1, 0), failingEmbedder{}, MemoryBackend{})

	_, err := builder.Build(context.Background(), "doc1", "Some real text.")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexBuild)
}

func TestBuildStampsModelAndDocument(t *testing.T) {
	embedder := newFakeEmbedder("a")
	idx := buildMemoryIndex(t, embedder, "doc1", "One. Two. Three.")

	assert.Equal(t, "doc1", idx.DocumentID())
	assert.Equal(t, "fake/a", idx.EmbeddingModel())
	assert.Equal(t, 3, idx.Len())
}

func TestSearchRanksByOverlap(t *testing.T) {
	embedder := newFakeEmbedder("a")
	idx := buildMemoryIndex(t, embedder, "doc1", "The sky is blue. Grass is green. Water is wet.")

	queryVec, err := embedder.Embed(context.Background(), "What color is grass?")
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), queryVec, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Grass is green.", hits[0].Text)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearchFewerChunksThanK(t *testing.T) {
	embedder := newFakeEmbedder("a")
	idx := buildMemoryIndex(t, embedder, "doc1", "Only one. And two.")

	queryVec, err := embedder.Embed(context.Background(), "one")
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), queryVec, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.NotEmpty(t, h.Text)
	}
}

func TestSearchTiesKeepChunkOrder(t *testing.T) {
	embedder := newFakeEmbedder("a")
	// Identical sentences score identically against any query.
	idx := buildMemoryIndex(t, embedder, "doc1", "Same words here. Same words here. Same words here.")

	queryVec, err := embedder.Embed(context.Background(), "same words")
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), queryVec, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, 0, hits[0].Position)
	assert.Equal(t, 1, hits[1].Position)
	assert.Equal(t, 2, hits[2].Position)
}

func TestSearchDeterministic(t *testing.T) {
	embedder := newFakeEmbedder("a")
	idx := buildMemoryIndex(t, embedder, "doc1", "The sky is blue. Grass is green. Water is wet.")

	queryVec, err := embedder.Embed(context.Background(), "What color is grass?")
	require.NoError(t, err)

	first, err := idx.Search(context.Background(), queryVec, 3)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := idx.Search(context.Background(), queryVec, 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Equal(t, 0.0, cosineSimilarity(nil, nil))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{0, 0}))
}
