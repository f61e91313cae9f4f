package services

import (
	"context"
	"fmt"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
)

// ChromaBackend stores chunk embeddings in a shared ChromaDB collection,
// partitioned by a doc_id metadata attribute. Unlike the memory backend the
// data survives restarts, but the Index handle itself still lives in the
// cache and is rebuilt on demand.
type ChromaBackend struct {
	collection chromago.Collection
}

// NewChromaBackend creates a backend over an existing collection.
func NewChromaBackend(collection chromago.Collection) *ChromaBackend {
	return &ChromaBackend{collection: collection}
}

func (b *ChromaBackend) NewIndex(ctx context.Context, docID, model string, chunks []string, vectors [][]float32) (Index, error) {
	// Drop any stale chunks from a previous build of this document before
	// inserting, so the collection never holds two generations at once.
	where := chromago.EqString("doc_id", docID)
	if err := b.collection.Delete(ctx, chromago.WithWhereDelete(where)); err != nil {
		return nil, fmt.Errorf("failed to clear old chunks for document %s: %w", docID, err)
	}

	for i, chunk := range chunks {
		embedding := embeddings.NewEmbeddingFromFloat32(vectors[i])
		metadata := chromago.NewDocumentMetadata(
			chromago.NewStringAttribute("doc_id", docID),
			chromago.NewStringAttribute("embed_model", model),
			chromago.NewIntAttribute("chunk_num", int64(i)),
		)
		id := chromago.DocumentID(fmt.Sprintf("%s-chunk%d", docID, i))
		err := b.collection.Add(ctx,
			chromago.WithIDs(id),
			chromago.WithTexts(chunk),
			chromago.WithEmbeddings(embedding),
			chromago.WithMetadatas(metadata),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to add chunk %d of document %s to chromadb: %w", i, docID, err)
		}
	}

	return &chromaIndex{
		collection: b.collection,
		docID:      docID,
		model:      model,
		size:       len(chunks),
	}, nil
}

type chromaIndex struct {
	collection chromago.Collection
	docID      string
	model      string
	size       int
}

func (c *chromaIndex) DocumentID() string     { return c.docID }
func (c *chromaIndex) EmbeddingModel() string { return c.model }
func (c *chromaIndex) Len() int               { return c.size }

func (c *chromaIndex) Search(ctx context.Context, queryVec []float32, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		k = 3
	}
	if k > c.size {
		k = c.size
	}

	embedding := embeddings.NewEmbeddingFromFloat32(queryVec)
	results, err := c.collection.Query(ctx,
		chromago.WithQueryEmbeddings(embedding),
		chromago.WithNResults(k),
		chromago.WithWhereQuery(chromago.EqString("doc_id", c.docID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb for document %s: %w", c.docID, err)
	}

	var hits []ScoredChunk
	documentGroups := results.GetDocumentsGroups()
	if len(documentGroups) > 0 {
		for i, doc := range documentGroups[0] {
			if doc.ContentString() == "" {
				continue
			}
			hits = append(hits, ScoredChunk{Position: i, Text: doc.ContentString()})
		}
	}
	return hits, nil
}
