package services

import (
	"context"
	"log"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// TextSupplier produces the full text of a document on a cache miss. It may
// hit the database, download the raw file and run extraction; any failure
// propagates to the caller and nothing is cached.
type TextSupplier func(ctx context.Context) (string, error)

// IndexCache maps document ids to their built indexes. It is bounded LRU: an
// evicted document is transparently rebuilt on its next question. Concurrent
// first questions for the same document share a single build.
type IndexCache struct {
	cache   *lru.Cache[string, Index]
	group   singleflight.Group
	builder *IndexBuilder
}

// NewIndexCache creates a cache holding at most capacity indexes.
func NewIndexCache(builder *IndexBuilder, capacity int) (*IndexCache, error) {
	if capacity <= 0 {
		capacity = 128
	}
	cache, err := lru.NewWithEvict[string, Index](capacity, func(docID string, _ Index) {
		log.Printf("CACHE: evicted index for document %s", docID)
	})
	if err != nil {
		return nil, err
	}
	return &IndexCache{cache: cache, builder: builder}, nil
}

// GetOrBuild returns the cached index for docID, building it from the
// supplier's text on a miss. A cache hit never re-reads text or re-embeds.
func (c *IndexCache) GetOrBuild(ctx context.Context, docID string, supplier TextSupplier) (Index, error) {
	if idx, ok := c.cache.Get(docID); ok {
		return idx, nil
	}

	v, err, shared := c.group.Do(docID, func() (interface{}, error) {
		// A concurrent caller may have completed the build while we waited
		// for the flight slot.
		if idx, ok := c.cache.Get(docID); ok {
			return idx, nil
		}

		text, err := supplier(ctx)
		if err != nil {
			return nil, err
		}
		idx, err := c.builder.Build(ctx, docID, text)
		if err != nil {
			return nil, err
		}
		c.cache.Add(docID, idx)
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Printf("CACHE: shared in-flight build for document %s", docID)
	}
	return v.(Index), nil
}

// Evict drops a document's index, forcing a rebuild on the next question.
func (c *IndexCache) Evict(docID string) {
	c.cache.Remove(docID)
}

// Len reports how many indexes are currently cached.
func (c *IndexCache) Len() int {
	return c.cache.Len()
}
