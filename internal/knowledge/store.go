package knowledge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/aihub/pdfqa-go/internal/errors"
	"github.com/aihub/pdfqa-go/internal/logger"
)

// StoreOptions DocumentStore构造参数
type StoreOptions struct {
	Index        VectorIndex
	Preprocessor *TextPreprocessor
	Embedder     Embedder
	Reducer      *DimensionReducer
	IndexName    string
	Dimension    int
	Metric       string
}

// DocumentStore 流水线与外部索引之间的唯一集成点
// 组合预处理器、嵌入客户端和可选的降维器，文档和查询走同一条预处理流水线
type DocumentStore struct {
	index        VectorIndex
	preprocessor *TextPreprocessor
	embedder     Embedder
	reducer      *DimensionReducer
	indexName    string
	dimension    int
	metric       string

	// 最近一次降维入库拟合的投影，查询向量走同一个投影
	mu         sync.RWMutex
	projection *Projection
}

// NewDocumentStore 创建文档向量存储，构造时查找索引、不存在则创建
func NewDocumentStore(ctx context.Context, opts StoreOptions) (*DocumentStore, error) {
	if opts.Index == nil {
		return nil, apperrors.NewConfigurationError("vector index is required")
	}
	if opts.Preprocessor == nil {
		return nil, apperrors.NewConfigurationError("text preprocessor is required")
	}
	if opts.Embedder == nil {
		return nil, apperrors.NewConfigurationError("embedder is required")
	}
	if opts.IndexName == "" {
		opts.IndexName = "pdf-qa-index"
	}
	if opts.Metric == "" {
		opts.Metric = "cosine"
	}
	if opts.Dimension <= 0 {
		return nil, apperrors.NewConfigurationError("index dimension must be positive")
	}

	if err := opts.Index.EnsureIndex(ctx, opts.IndexName, opts.Dimension, opts.Metric); err != nil {
		if apperrors.AsPipelineError(err) != nil {
			return nil, err
		}
		return nil, apperrors.NewIndexProvisioningError("failed to ensure index", err)
	}

	return &DocumentStore{
		index:        opts.Index,
		preprocessor: opts.Preprocessor,
		embedder:     opts.Embedder,
		reducer:      opts.Reducer,
		indexName:    opts.IndexName,
		dimension:    opts.Dimension,
		metric:       opts.Metric,
	}, nil
}

// VectorID 文档范围的复合向量标识，避免不同文档的块序号互相覆盖
func VectorID(documentID string, chunkIndex int) string {
	return documentID + ":" + strconv.Itoa(chunkIndex)
}

// DocumentVectorIDs 枚举一个文档的全部向量标识
func DocumentVectorIDs(documentID string, chunkCount int) []string {
	ids := make([]string, chunkCount)
	for i := 0; i < chunkCount; i++ {
		ids[i] = VectorID(documentID, i)
	}
	return ids
}

// UpsertChunks 预处理→嵌入→可选降维→写入索引，返回写入的向量数
// 相同标识重复写入是覆盖语义
func (s *DocumentStore) UpsertChunks(ctx context.Context, documentID string, chunks []Chunk, reduce bool, targetDim int) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = s.preprocessForEmbedding(chunk.Text)
	}

	vectors, err := s.embedder.Embed(ctx, texts, IntentDocument)
	if err != nil {
		logger.Error("document embedding failed", zap.String("document_id", documentID), zap.Error(err))
		return 0, err
	}

	if reduce {
		if s.reducer == nil {
			return 0, apperrors.NewConfigurationError("dimension reduction requested but no reducer configured")
		}
		// 每次调用独立拟合，降维后的向量只在本批次内可比
		// 投影保留给查询路径，保证问题向量落在同一个子空间
		projection, err := s.reducer.Fit(vectors, targetDim)
		if err != nil {
			return 0, err
		}
		vectors, err = projection.Apply(vectors)
		if err != nil {
			return 0, err
		}
		s.mu.Lock()
		s.projection = projection
		s.mu.Unlock()
	}

	for i, vec := range vectors {
		if len(vec) != s.dimension {
			return 0, apperrors.NewEmbeddingDimensionError(
				fmt.Sprintf("chunk %d embedding has dimension %d, index %s expects %d",
					i, len(vec), s.indexName, s.dimension))
		}
	}

	records := make([]Vector, len(vectors))
	for i, vec := range vectors {
		records[i] = Vector{
			ID:     VectorID(documentID, chunks[i].Index),
			Values: vec,
			Metadata: map[string]interface{}{
				"document_id": documentID,
				"chunk_index": chunks[i].Index,
			},
		}
	}

	count, err := s.index.Upsert(ctx, records)
	if err != nil {
		if apperrors.AsPipelineError(err) != nil {
			return 0, err
		}
		return 0, apperrors.NewIndexProvisioningError("vector upsert failed", err)
	}

	logger.Info("upserted chunk vectors",
		zap.String("index", s.indexName),
		zap.String("document_id", documentID),
		zap.Int("count", count))
	return count, nil
}

// Query 用与文档完全相同的流水线预处理查询文本，按相似度降序返回匹配
func (s *DocumentStore) Query(ctx context.Context, text string, topK int, includeMetadata bool) ([]Match, error) {
	preprocessed := s.preprocessForEmbedding(text)

	vectors, err := s.embedder.Embed(ctx, []string{preprocessed}, IntentQuery)
	if err != nil {
		logger.Error("query embedding failed", zap.Error(err))
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, apperrors.NewEmbeddingProviderError(
			fmt.Sprintf("expected 1 query embedding, got %d", len(vectors)), nil)
	}

	queryVector := vectors[0]
	if projection := s.currentProjection(); projection != nil && len(queryVector) != s.dimension {
		projected, err := projection.Apply([][]float32{queryVector})
		if err != nil {
			return nil, err
		}
		queryVector = projected[0]
	}
	if len(queryVector) != s.dimension {
		return nil, apperrors.NewEmbeddingDimensionError(
			fmt.Sprintf("query embedding has dimension %d, index %s expects %d",
				len(queryVector), s.indexName, s.dimension))
	}

	matches, err := s.index.Query(ctx, queryVector, topK, includeMetadata)
	if err != nil {
		if apperrors.AsPipelineError(err) != nil {
			return nil, err
		}
		return nil, apperrors.NewIndexProvisioningError("index query failed", err)
	}
	return matches, nil
}

func (s *DocumentStore) currentProjection() *Projection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projection
}

// DeleteDocument 尽力删除一个文档的全部向量
func (s *DocumentStore) DeleteDocument(ctx context.Context, documentID string, chunkCount int) (int, error) {
	if chunkCount <= 0 {
		return 0, nil
	}
	count, err := s.index.Delete(ctx, DocumentVectorIDs(documentID, chunkCount))
	if err != nil {
		if apperrors.AsPipelineError(err) != nil {
			return 0, err
		}
		return 0, apperrors.NewVectorDeletionError("vector deletion failed", err)
	}
	return count, nil
}

// Stats 透传provider统计信息
func (s *DocumentStore) Stats(ctx context.Context) (IndexStats, error) {
	return s.index.Stats(ctx)
}

// Ready 检查索引连接是否可用
func (s *DocumentStore) Ready() bool {
	return s.index != nil && s.index.Ready() && s.embedder.Ready()
}

// IndexName 返回索引名称
func (s *DocumentStore) IndexName() string {
	return s.indexName
}

// preprocessForEmbedding 预处理并还原为空格拼接的文本
// 全部被过滤掉时退回原文，文档和查询两侧行为一致
func (s *DocumentStore) preprocessForEmbedding(text string) string {
	tokens := s.preprocessor.Preprocess(text)
	if len(tokens) == 0 {
		return strings.TrimSpace(text)
	}
	return strings.Join(tokens, " ")
}
