package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentenceChunkerSplitsPerSentence(t *testing.T) {
	c := NewSentenceChunker(1, 0)

	chunks, err := c.Split("The sky is blue. Grass is green. Water is wet.")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "The sky is blue.", chunks[0])
	assert.Equal(t, "Grass is green.", chunks[1])
	assert.Equal(t, "Water is wet.", chunks[2])
}

func TestSentenceChunkerGroupsSentences(t *testing.T) {
	c := NewSentenceChunker(2, 0)

	chunks, err := c.Split("One. Two. Three. Four. Five.")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "One. Two.", chunks[0])
	assert.Equal(t, "Three. Four.", chunks[1])
	assert.Equal(t, "Five.", chunks[2])
}

func TestSentenceChunkerNoTerminator(t *testing.T) {
	c := NewSentenceChunker(3, 0)

	chunks, err := c.Split("a fragment without punctuation")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a fragment without punctuation", chunks[0])
}

func TestSentenceChunkerEmptyText(t *testing.T) {
	c := NewSentenceChunker(3, 0)

	chunks, err := c.Split("   \n\t ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSentenceChunkerDeterministic(t *testing.T) {
	c := NewSentenceChunker(2, 1)
	text := "Alpha one. Beta two. Gamma three. Delta four."

	first, err := c.Split(text)
	require.NoError(t, err)
	second, err := c.Split(text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRecursiveChunkerSmallText(t *testing.T) {
	c := NewRecursiveChunker(1000, 100)

	chunks, err := c.Split("A short paragraph that fits in one chunk.")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
}

func TestRecursiveChunkerBoundsChunkLength(t *testing.T) {
	c := NewRecursiveChunker(100, 0)

	text := strings.Repeat("some words that repeat over and over ", 50)
	chunks, err := c.Split(text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 100)
	}
}
