package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/docuchat/server/models"
)

// DocumentSource resolves a document's stored record. Satisfied by the
// repository; kept narrow so the service can be tested with a stub.
type DocumentSource interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
}

// RAGService answers questions about uploaded documents. Both modes share the
// same pipeline: resolve the document's index (building it on first use),
// retrieve the most relevant chunks, compose the prompt, call the LLM.
type RAGService interface {
	AnswerOnce(ctx context.Context, docID, question string) (string, error)
	AnswerStream(ctx context.Context, docID, question string) (<-chan StreamChunk, error)
	PrepareIndex(ctx context.Context, docID string) error
}

type ragServiceImpl struct {
	docs           DocumentSource
	store          ObjectStore
	cache          *IndexCache
	embedder       Embedder
	llm            LLMClient
	topK           int
	maxPromptChars int
}

// NewRAGService wires the answer pipeline together.
func NewRAGService(docs DocumentSource, store ObjectStore, cache *IndexCache, embedder Embedder, llm LLMClient, topK, maxPromptChars int) RAGService {
	if topK <= 0 {
		topK = 3
	}
	return &ragServiceImpl{
		docs:           docs,
		store:          store,
		cache:          cache,
		embedder:       embedder,
		llm:            llm,
		topK:           topK,
		maxPromptChars: maxPromptChars,
	}
}

// AnswerOnce implements RAGService in blocking mode.
func (r *ragServiceImpl) AnswerOnce(ctx context.Context, docID, question string) (string, error) {
	prompt, err := r.preparePrompt(ctx, docID, question)
	if err != nil {
		return "", err
	}
	answer, err := r.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return answer, nil
}

// AnswerStream implements RAGService in streaming mode. Setup failures are
// returned synchronously; once the channel is handed out, fragments arrive in
// order until the LLM finishes, errors, or ctx is cancelled.
func (r *ragServiceImpl) AnswerStream(ctx context.Context, docID, question string) (<-chan StreamChunk, error) {
	prompt, err := r.preparePrompt(ctx, docID, question)
	if err != nil {
		return nil, err
	}
	return r.llm.StreamComplete(ctx, prompt)
}

// PrepareIndex builds (or confirms) a document's index without asking a
// question, used for eager indexing at ingest time.
func (r *ragServiceImpl) PrepareIndex(ctx context.Context, docID string) error {
	_, err := r.cache.GetOrBuild(ctx, docID, r.textSupplier(docID))
	return err
}

func (r *ragServiceImpl) preparePrompt(ctx context.Context, docID, question string) (string, error) {
	idx, err := r.cache.GetOrBuild(ctx, docID, r.textSupplier(docID))
	if err != nil {
		return "", err
	}

	contextText, err := r.retrieveContext(ctx, idx, question)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, question)
	if r.maxPromptChars > 0 && len(prompt) > r.maxPromptChars {
		return "", fmt.Errorf("%w: prompt is %d chars, limit is %d", ErrContextTooLarge, len(prompt), r.maxPromptChars)
	}
	return prompt, nil
}

// textSupplier resolves a document's full text for index construction: stored
// text when present, otherwise download-and-extract from the object store.
func (r *ragServiceImpl) textSupplier(docID string) TextSupplier {
	return func(ctx context.Context) (string, error) {
		doc, err := r.docs.GetDocument(ctx, docID)
		if err != nil {
			return "", err
		}
		if doc.Content != "" {
			return doc.Content, nil
		}
		if doc.StorageURL == "" {
			return "", fmt.Errorf("%w: document %s has neither content nor a storage url", ErrRetrieval, docID)
		}

		log.Printf("SERVICE: fetching remote content for document %s", docID)
		data, err := r.store.Fetch(ctx, doc.StorageURL)
		if err != nil {
			return "", err
		}
		return ExtractTextFromPDF(data)
	}
}

// retrieveContext embeds the question with the index's model and returns the
// top-k chunk texts joined by blank lines. The separator and ordering feed
// straight into the prompt, so they are part of the service's contract.
func (r *ragServiceImpl) retrieveContext(ctx context.Context, idx Index, question string) (string, error) {
	if r.embedder.Model() != idx.EmbeddingModel() {
		return "", fmt.Errorf("%w: index for document %s was built with model %s, query uses %s",
			ErrRetrieval, idx.DocumentID(), idx.EmbeddingModel(), r.embedder.Model())
	}

	queryVec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("%w: could not embed question: %v", ErrRetrieval, err)
	}

	hits, err := idx.Search(ctx, queryVec, r.topK)
	if err != nil {
		return "", fmt.Errorf("%w: search failed for document %s: %v", ErrRetrieval, idx.DocumentID(), err)
	}

	texts := make([]string, 0, len(hits))
	for _, hit := range hits {
		texts = append(texts, hit.Text)
	}
	return strings.Join(texts, "\n\n"), nil
}
