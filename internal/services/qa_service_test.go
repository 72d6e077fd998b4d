package services

import (
	"context"
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aihub/pdfqa-go/internal/errors"
	"github.com/aihub/pdfqa-go/internal/knowledge"
)

// hashEmbedder 确定性测试嵌入，记录调用次数
type hashEmbedder struct {
	dim   int
	calls int
}

func (e *hashEmbedder) Embed(ctx context.Context, texts []string, intent knowledge.EmbedIntent) ([][]float32, error) {
	e.calls++
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		sum := sha256.Sum256([]byte(text))
		v := make([]float32, e.dim)
		for j := 0; j < e.dim; j++ {
			v[j] = float32(sum[j%len(sum)]) / 255
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e *hashEmbedder) Dimensions() int { return e.dim }
func (e *hashEmbedder) Ready() bool     { return true }

func newTestQAService(t *testing.T, embedder knowledge.Embedder) *QAService {
	t.Helper()

	preprocessor, err := knowledge.NewTextPreprocessor()
	require.NoError(t, err)
	chunker, err := knowledge.NewChunker(6, 1)
	require.NoError(t, err)

	store, err := knowledge.NewDocumentStore(context.Background(), knowledge.StoreOptions{
		Index:        knowledge.NewMemoryVectorStore(),
		Preprocessor: preprocessor,
		Embedder:     embedder,
		IndexName:    "test-index",
		Dimension:    8,
		Metric:       "cosine",
	})
	require.NoError(t, err)

	service, err := NewQAService(QAServiceOptions{
		Store:   store,
		Chunker: chunker,
		TopK:    3,
	})
	require.NoError(t, err)
	return service
}

// 没有上传文档时直接报错，不访问嵌入provider
func TestAskQuestionWithoutDocument(t *testing.T) {
	embedder := &hashEmbedder{dim: 8}
	service := newTestQAService(t, embedder)

	_, err := service.AskQuestion(context.Background(), "", "what is this about")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNoDocument))
	assert.Equal(t, "No PDF uploaded. Please upload a PDF first.", apperrors.AsPipelineError(err).Message)
	assert.Equal(t, 0, embedder.calls)
}

func TestUploadDocumentAndAsk(t *testing.T) {
	ctx := context.Background()
	service := newTestQAService(t, &hashEmbedder{dim: 8})

	text := "Solar panels convert sunlight into electricity. Wind turbines capture kinetic energy from moving air. Batteries store surplus power for later use."
	chunkCount, err := service.UploadDocument(ctx, "s1", "energy.txt", []byte(text))
	require.NoError(t, err)
	assert.Greater(t, chunkCount, 0)

	answer, err := service.AskQuestion(ctx, "s1", "How do wind turbines work?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(answer, "Based on the document, here are some relevant insights:"))
	assert.Contains(t, answer, "Chunk")

	// 相同问题重复提问得到相同答案
	again, err := service.AskQuestion(ctx, "s1", "How do wind turbines work?")
	require.NoError(t, err)
	assert.Equal(t, answer, again)
}

// 各会话独立，一个会话的上传对其他会话不可见
func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	service := newTestQAService(t, &hashEmbedder{dim: 8})

	_, err := service.UploadDocument(ctx, "s1", "doc.txt", []byte("content for the first session only"))
	require.NoError(t, err)

	_, err = service.AskQuestion(ctx, "s2", "anything")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNoDocument))
}

// 重新上传替换文档后，回答针对新文档
func TestReuploadSupersedesDocument(t *testing.T) {
	ctx := context.Background()
	service := newTestQAService(t, &hashEmbedder{dim: 8})

	_, err := service.UploadDocument(ctx, "s1", "old.txt", []byte("ancient history of rome and its emperors"))
	require.NoError(t, err)
	_, err = service.UploadDocument(ctx, "s1", "new.txt", []byte("modern chemistry of polymers and their synthesis"))
	require.NoError(t, err)

	stats, err := service.IndexStats(ctx)
	require.NoError(t, err)
	// 旧文档向量已删除，索引里只剩新文档
	session := service.sessions.Get("s1")
	require.NotNil(t, session)
	assert.Equal(t, "new.txt", session.Filename)
	assert.Equal(t, int64(len(session.Chunks)), stats.TotalVectorCount)
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	service := newTestQAService(t, &hashEmbedder{dim: 8})

	assert.False(t, service.DeleteSession(ctx, "s1"))

	_, err := service.UploadDocument(ctx, "s1", "doc.txt", []byte("some throwaway content for deletion"))
	require.NoError(t, err)
	assert.True(t, service.DeleteSession(ctx, "s1"))

	stats, err := service.IndexStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalVectorCount)

	_, err = service.AskQuestion(ctx, "s1", "still there?")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNoDocument))
}

func TestUploadUnsupportedFormat(t *testing.T) {
	service := newTestQAService(t, &hashEmbedder{dim: 8})

	_, err := service.UploadDocument(context.Background(), "s1", "image.png", []byte{0x89, 0x50})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindExtraction))
}

func TestPlaceholderAnswer(t *testing.T) {
	chunks := []RetrievedChunk{
		{Index: 1, Score: 0.9, Text: "wind turbines capture kinetic energy"},
		{Index: 0, Score: 0.5, Text: "solar panels convert sunlight"},
	}
	answer := placeholderAnswer(chunks)
	assert.Equal(t,
		"Based on the document, here are some relevant insights: "+
			"Chunk 1: wind turbines capture kinetic energy Chunk 0: solar panels convert sunlight",
		answer)

	assert.Equal(t,
		"Based on the document, here are some relevant insights: no matching content found.",
		placeholderAnswer(nil))
}

func TestSplitVectorID(t *testing.T) {
	documentID, index, ok := splitVectorID("doc-ab12:7")
	require.True(t, ok)
	assert.Equal(t, "doc-ab12", documentID)
	assert.Equal(t, 7, index)

	for _, id := range []string{"", "doc-1", ":3", "doc-1:", "doc-1:x", "doc-1:-2"} {
		_, _, ok := splitVectorID(id)
		assert.False(t, ok, "id %q", id)
	}
}
