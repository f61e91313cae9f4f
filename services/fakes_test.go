package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/docuchat/server/models"
)

var wordRe = regexp.MustCompile(`[a-z]+`)

// fakeEmbedder produces deterministic bag-of-words vectors: each distinct
// token gets its own dimension, so cosine similarity tracks word overlap.
type fakeEmbedder struct {
	mu    sync.Mutex
	name  string
	dims  map[string]int
	calls int32
}

func newFakeEmbedder(name string) *fakeEmbedder {
	return &fakeEmbedder{name: name, dims: make(map[string]int)}
}

func (f *fakeEmbedder) Model() string { return "fake/" + f.name }

func (f *fakeEmbedder) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&f.calls, 1)
	vec := make([]float32, 256)
	for _, tok := range wordRe.FindAllString(strings.ToLower(text), -1) {
		vec[f.dim(tok)]++
	}
	return vec, nil
}

func (f *fakeEmbedder) dim(tok string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.dims[tok]; ok {
		return d
	}
	d := len(f.dims)
	if d >= 256 {
		panic("fakeEmbedder vocabulary exhausted")
	}
	f.dims[tok] = d
	return d
}

// failingEmbedder always errors, for exercising build failure paths.
type failingEmbedder struct{}

func (failingEmbedder) Model() string { return "fake/broken" }
func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("embedding provider unavailable")
}

// fakeLLM echoes the prompt deterministically. The stream delivers the same
// text the blocking call returns, cut into small fragments.
type fakeLLM struct {
	fragmentSize int
}

func (f *fakeLLM) Model() string { return "fake/llm" }

func (f *fakeLLM) answer(prompt string) string {
	return "echo: " + prompt
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	return f.answer(prompt), nil
}

func (f *fakeLLM) StreamComplete(ctx context.Context, prompt string) (<-chan StreamChunk, error) {
	answer := f.answer(prompt)
	size := f.fragmentSize
	if size <= 0 {
		size = 4
	}
	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		for i := 0; i < len(answer); i += size {
			end := i + size
			if end > len(answer) {
				end = len(answer)
			}
			if !emit(ctx, out, StreamChunk{Text: answer[i:end]}) {
				return
			}
		}
	}()
	return out, nil
}

// erroringLLM yields a couple of fragments and then fails mid-stream.
type erroringLLM struct{}

func (erroringLLM) Model() string { return "fake/err" }

func (erroringLLM) Complete(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: provider rejected the request", ErrLLMCall)
}

func (erroringLLM) StreamComplete(ctx context.Context, _ string) (<-chan StreamChunk, error) {
	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		emit(ctx, out, StreamChunk{Text: "partial "})
		emit(ctx, out, StreamChunk{Text: "answer"})
		emit(ctx, out, StreamChunk{Err: fmt.Errorf("%w: connection reset mid-stream", ErrLLMCall)})
	}()
	return out, nil
}

// stubDocs is an in-memory DocumentSource.
type stubDocs struct {
	docs map[string]*models.Document
}

func (s *stubDocs) GetDocument(_ context.Context, id string) (*models.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrDocumentNotFound)
	}
	return doc, nil
}

// stubStore is an ObjectStore that should never be reached in most tests.
type stubStore struct {
	fetched []string
	data    map[string][]byte
}

func (s *stubStore) Upload(_ context.Context, name string, _ []byte) (string, error) {
	return "/files/" + name, nil
}

func (s *stubStore) Fetch(_ context.Context, url string) ([]byte, error) {
	s.fetched = append(s.fetched, url)
	if data, ok := s.data[url]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("%w: download %s returned status 404", ErrContentFetch, url)
}
