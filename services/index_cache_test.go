package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, embedder Embedder, capacity int) *IndexCache {
	t.Helper()
	builder := NewIndexBuilder(NewSentenceChunker(1, 0), embedder, MemoryBackend{})
	cache, err := NewIndexCache(builder, capacity)
	require.NoError(t, err)
	return cache
}

func constSupplier(text string) TextSupplier {
	return func(context.Context) (string, error) { return text, nil }
}

func TestGetOrBuildCachesIndex(t *testing.T) {
	embedder := newFakeEmbedder("a")
	cache := newTestCache(t, embedder, 8)

	first, err := cache.GetOrBuild(context.Background(), "doc1", constSupplier("The sky is blue. Grass is green."))
	require.NoError(t, err)
	callsAfterBuild := embedder.Calls()

	// The second call must not re-read text or re-embed, even if the
	// supplier would now return garbage.
	second, err := cache.GetOrBuild(context.Background(), "doc1", func(context.Context) (string, error) {
		t.Fatal("supplier must not run on a cache hit")
		return "", nil
	})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, callsAfterBuild, embedder.Calls())
}

func TestGetOrBuildHitKeepsRetrievalResults(t *testing.T) {
	embedder := newFakeEmbedder("a")
	cache := newTestCache(t, embedder, 8)

	idx, err := cache.GetOrBuild(context.Background(), "doc1", constSupplier("The sky is blue. Grass is green. Water is wet."))
	require.NoError(t, err)

	queryVec, err := embedder.Embed(context.Background(), "What color is grass?")
	require.NoError(t, err)
	before, err := idx.Search(context.Background(), queryVec, 2)
	require.NoError(t, err)

	// Rebuilding with different text must be a no-op for the cached entry.
	idx2, err := cache.GetOrBuild(context.Background(), "doc1", constSupplier("Entirely different text."))
	require.NoError(t, err)
	after, err := idx2.Search(context.Background(), queryVec, 2)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestGetOrBuildSupplierFailureLeavesCacheUnmodified(t *testing.T) {
	embedder := newFakeEmbedder("a")
	cache := newTestCache(t, embedder, 8)

	_, err := cache.GetOrBuild(context.Background(), "doc1", func(context.Context) (string, error) {
		return "", fmt.Errorf("download %s: %w", "doc1", ErrContentFetch)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContentFetch)
	assert.Equal(t, 0, cache.Len())
	assert.Zero(t, embedder.Calls())

	// A later successful supplier builds normally.
	_, err = cache.GetOrBuild(context.Background(), "doc1", constSupplier("Now it works."))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
}

func TestGetOrBuildBuildFailureLeavesCacheUnmodified(t *testing.T) {
	cache := newTestCache(t, failingEmbedder{}, 8)

	_, err := cache.GetOrBuild(context.Background(), "doc1", constSupplier("Some text."))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexBuild)
	assert.Equal(t, 0, cache.Len())
}

func TestGetOrBuildSingleFlight(t *testing.T) {
	embedder := newFakeEmbedder("a")
	cache := newTestCache(t, embedder, 8)

	var supplierCalls int32
	supplier := func(context.Context) (string, error) {
		atomic.AddInt32(&supplierCalls, 1)
		time.Sleep(50 * time.Millisecond)
		return "The sky is blue. Grass is green.", nil
	}

	const goroutines = 10
	var wg sync.WaitGroup
	indexes := make([]Index, goroutines)
	errs := make([]error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			indexes[i], errs[i] = cache.GetOrBuild(context.Background(), "doc1", supplier)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&supplierCalls), "concurrent first questions must share one build")
	for i := 0; i < goroutines; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, indexes[0], indexes[i])
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	embedder := newFakeEmbedder("a")
	cache := newTestCache(t, embedder, 2)

	for _, id := range []string{"doc1", "doc2", "doc3"} {
		_, err := cache.GetOrBuild(context.Background(), id, constSupplier("Text for "+id+"."))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cache.Len())

	// doc1 was evicted; asking again rebuilds through the supplier.
	rebuilt := false
	_, err := cache.GetOrBuild(context.Background(), "doc1", func(context.Context) (string, error) {
		rebuilt = true
		return "Text for doc1.", nil
	})
	require.NoError(t, err)
	assert.True(t, rebuilt)
}

func TestEvictForcesRebuild(t *testing.T) {
	embedder := newFakeEmbedder("a")
	cache := newTestCache(t, embedder, 8)

	_, err := cache.GetOrBuild(context.Background(), "doc1", constSupplier("Original text."))
	require.NoError(t, err)
	cache.Evict("doc1")
	assert.Equal(t, 0, cache.Len())

	rebuilt := false
	_, err = cache.GetOrBuild(context.Background(), "doc1", func(context.Context) (string, error) {
		rebuilt = true
		return "Original text.", nil
	})
	require.NoError(t, err)
	assert.True(t, rebuilt)
}
