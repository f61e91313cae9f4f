package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunker splits document text into the ordered pieces that get embedded.
// Implementations must be deterministic.
type Chunker interface {
	Split(text string) ([]string, error)
}

// SentenceChunker groups whole sentences into chunks, optionally overlapping
// the tail sentences of one chunk into the next.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

// NewSentenceChunker creates a sentence chunker. Non-positive sizes fall back
// to sane defaults.
func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 || overlapSentences >= sentencesPerChunk {
		overlapSentences = 0
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

func (c *SentenceChunker) Split(text string) ([]string, error) {
	sentences := c.splitter.FindAllString(text, -1)
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil, nil
		}
		sentences = []string{trimmed}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, strings.Join(sentences[i:end], " "))
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
	}
	return chunks, nil
}

// RecursiveChunker splits by character count on natural boundaries, the policy
// used for large documents where sentence grouping produces too many chunks.
type RecursiveChunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewRecursiveChunker creates a character-bounded chunker with overlap.
func NewRecursiveChunker(chunkSize, chunkOverlap int) *RecursiveChunker {
	return &RecursiveChunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}
}

func (c *RecursiveChunker) Split(text string) ([]string, error) {
	chunks, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("recursive split: %w", err)
	}
	return chunks, nil
}
