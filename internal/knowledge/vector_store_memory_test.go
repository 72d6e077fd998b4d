package knowledge

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aihub/pdfqa-go/internal/errors"
)

func newTestIndex(t *testing.T, dimension int, metric string) VectorIndex {
	t.Helper()
	index := NewMemoryVectorStore()
	require.NoError(t, index.EnsureIndex(context.Background(), "test-index", dimension, metric))
	return index
}

func TestMemoryStoreUpsertThenQueryReturnsAllIDs(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t, 3, "cosine")

	vectors := make([]Vector, 10)
	for i := range vectors {
		vectors[i] = Vector{
			ID:     fmt.Sprintf("doc-1:%d", i),
			Values: []float32{float32(i + 1), 1, 0.5},
		}
	}
	count, err := index.Upsert(ctx, vectors)
	require.NoError(t, err)
	assert.Equal(t, 10, count)

	matches, err := index.Query(ctx, []float32{1, 1, 1}, 10, false)
	require.NoError(t, err)
	require.Len(t, matches, 10)

	// 每个ID恰好出现一次，按相似度降序
	seen := make(map[string]bool)
	for i, m := range matches {
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
		if i > 0 {
			assert.GreaterOrEqual(t, matches[i-1].Score, m.Score)
		}
	}
}

func TestMemoryStoreUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t, 2, "cosine")

	_, err := index.Upsert(ctx, []Vector{{ID: "doc-1:0", Values: []float32{1, 0}}})
	require.NoError(t, err)
	_, err = index.Upsert(ctx, []Vector{{ID: "doc-1:0", Values: []float32{0, 1}}})
	require.NoError(t, err)

	stats, err := index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalVectorCount)

	matches, err := index.Query(ctx, []float32{0, 1}, 1, false)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestMemoryStoreRejectsDimensionMismatch(t *testing.T) {
	index := newTestIndex(t, 4, "cosine")

	_, err := index.Upsert(context.Background(), []Vector{{ID: "x", Values: []float32{1, 2}}})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindEmbeddingDimension))
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t, 2, "cosine")

	_, err := index.Upsert(ctx, []Vector{
		{ID: "doc-1:0", Values: []float32{1, 0}},
		{ID: "doc-1:1", Values: []float32{0, 1}},
	})
	require.NoError(t, err)

	deleted, err := index.Delete(ctx, []string{"doc-1:0", "doc-1:7"})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	stats, err := index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalVectorCount)
}

func TestMemoryStoreQueryMetadata(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t, 2, "cosine")

	_, err := index.Upsert(ctx, []Vector{{
		ID:     "doc-1:0",
		Values: []float32{1, 0},
		Metadata: map[string]interface{}{
			"document_id": "doc-1",
			"chunk_index": 0,
		},
	}})
	require.NoError(t, err)

	withMeta, err := index.Query(ctx, []float32{1, 0}, 1, true)
	require.NoError(t, err)
	require.Len(t, withMeta, 1)
	assert.Equal(t, "doc-1", withMeta[0].Metadata["document_id"])

	withoutMeta, err := index.Query(ctx, []float32{1, 0}, 1, false)
	require.NoError(t, err)
	require.Len(t, withoutMeta, 1)
	assert.Nil(t, withoutMeta[0].Metadata)
}

// 重建同名同维索引保留数据，换维度则清空
func TestMemoryStoreEnsureIndexIdempotent(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryVectorStore()
	require.NoError(t, index.EnsureIndex(ctx, "idx", 2, "cosine"))

	_, err := index.Upsert(ctx, []Vector{{ID: "a", Values: []float32{1, 0}}})
	require.NoError(t, err)

	require.NoError(t, index.EnsureIndex(ctx, "idx", 2, "cosine"))
	stats, _ := index.Stats(ctx)
	assert.Equal(t, int64(1), stats.TotalVectorCount)

	require.NoError(t, index.EnsureIndex(ctx, "idx", 3, "cosine"))
	stats, _ = index.Stats(ctx)
	assert.Equal(t, int64(0), stats.TotalVectorCount)
}
