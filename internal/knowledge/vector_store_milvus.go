package knowledge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	apperrors "github.com/aihub/pdfqa-go/internal/errors"
	"github.com/aihub/pdfqa-go/internal/logger"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address  string
	Username string
	Password string
	Database string
	UseTLS   bool
	Timeout  time.Duration
}

type milvusVectorStore struct {
	milvusClient client.Client
	collection   string
	dimension    int
	metric       entity.MetricType
}

// NewMilvusVectorStore 创建Milvus向量存储
func NewMilvusVectorStore(opts MilvusOptions) (VectorIndex, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.Database == "" {
		opts.Database = "default"
	}

	milvusClient, err := client.NewClient(
		context.Background(),
		client.Config{
			Address:       opts.Address,
			DBName:        opts.Database,
			Username:      opts.Username,
			Password:      opts.Password,
			EnableTLSAuth: opts.UseTLS,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	return &milvusVectorStore{
		milvusClient: milvusClient,
	}, nil
}

func formatMilvusMetric(value string) entity.MetricType {
	switch strings.ToLower(value) {
	case "dotproduct", "dot", "ip":
		return entity.IP
	case "euclidean", "l2":
		return entity.L2
	default:
		return entity.COSINE
	}
}

func (s *milvusVectorStore) EnsureIndex(ctx context.Context, name string, dimension int, metric string) error {
	s.collection = name
	s.dimension = dimension
	s.metric = formatMilvusMetric(metric)

	hasCollection, err := s.milvusClient.HasCollection(ctx, name)
	if err != nil {
		return apperrors.NewIndexProvisioningError("failed to check milvus collection", err)
	}
	if hasCollection {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: name,
		Description:    "document chunk vectors",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "document_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dimension),
				},
			},
		},
	}

	if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return apperrors.NewIndexProvisioningError("failed to create milvus collection", err)
	}

	var index entity.Index
	index, err = entity.NewIndexHNSW(s.metric, 8, 64)
	if err != nil {
		index, err = entity.NewIndexIvfFlat(s.metric, 128)
		if err != nil {
			return apperrors.NewIndexProvisioningError("failed to build milvus index definition", err)
		}
	}
	if err := s.milvusClient.CreateIndex(ctx, name, "vector", index, false); err != nil {
		return apperrors.NewIndexProvisioningError("failed to create milvus vector index", err)
	}

	if err := s.milvusClient.LoadCollection(ctx, name, false); err != nil {
		// 加载失败首次查询时会重试，这里只记录
		logger.Warn("failed to load milvus collection", zap.String("collection", name), zap.Error(err))
	}

	return nil
}

func (s *milvusVectorStore) Upsert(ctx context.Context, vectors []Vector) (int, error) {
	if len(vectors) == 0 {
		return 0, nil
	}

	ids := make([]string, len(vectors))
	documentIDs := make([]string, len(vectors))
	chunkIndexes := make([]int64, len(vectors))
	values := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v.Values) != s.dimension {
			return 0, apperrors.NewEmbeddingDimensionError(
				fmt.Sprintf("vector %s has dimension %d, index expects %d", v.ID, len(v.Values), s.dimension))
		}
		ids[i] = v.ID
		documentIDs[i] = metadataString(v.Metadata, "document_id")
		chunkIndexes[i] = metadataInt64(v.Metadata, "chunk_index")
		values[i] = v.Values
	}

	idColumn := entity.NewColumnVarChar("id", ids)
	documentIDColumn := entity.NewColumnVarChar("document_id", documentIDs)
	chunkIndexColumn := entity.NewColumnInt64("chunk_index", chunkIndexes)
	vectorColumn := entity.NewColumnFloatVector("vector", s.dimension, values)

	// Upsert语义：相同主键覆盖
	_, err := s.milvusClient.Upsert(ctx, s.collection, "", idColumn, documentIDColumn, chunkIndexColumn, vectorColumn)
	if err != nil {
		return 0, fmt.Errorf("milvus upsert failed: %w", err)
	}

	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		logger.Warn("failed to flush milvus collection", zap.String("collection", s.collection), zap.Error(err))
	}

	return len(vectors), nil
}

func (s *milvusVectorStore) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	outputFields := []string{}
	if includeMetadata {
		outputFields = []string{"document_id", "chunk_index"}
	}

	searchResults, err := s.milvusClient.Search(
		ctx,
		s.collection,
		[]string{},
		"",
		outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		s.metric,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}
	if len(searchResults) == 0 {
		return []Match{}, nil
	}
	result := searchResults[0]
	if result.Err != nil {
		return nil, fmt.Errorf("milvus search error: %w", result.Err)
	}
	if result.ResultCount == 0 {
		return []Match{}, nil
	}

	var ids []string
	if idCol, ok := result.IDs.(*entity.ColumnVarChar); ok {
		ids = idCol.Data()
	}

	var documentIDs []string
	var chunkIndexes []int64
	for _, field := range result.Fields {
		switch field.Name() {
		case "document_id":
			if col, ok := field.(*entity.ColumnVarChar); ok {
				documentIDs = col.Data()
			}
		case "chunk_index":
			if col, ok := field.(*entity.ColumnInt64); ok {
				chunkIndexes = col.Data()
			}
		}
	}

	matches := make([]Match, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		m := Match{}
		if i < len(ids) {
			m.ID = ids[i]
		}
		if i < len(result.Scores) {
			m.Score = float64(result.Scores[i])
		}
		if includeMetadata {
			m.Metadata = map[string]interface{}{}
			if i < len(documentIDs) {
				m.Metadata["document_id"] = documentIDs[i]
			}
			if i < len(chunkIndexes) {
				m.Metadata["chunk_index"] = chunkIndexes[i]
			}
		}
		matches = append(matches, m)
	}

	return matches, nil
}

func (s *milvusVectorStore) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	expr := fmt.Sprintf("id in [%s]", strings.Join(quoted, ", "))

	if err := s.milvusClient.Delete(ctx, s.collection, "", expr); err != nil {
		return 0, apperrors.NewVectorDeletionError("milvus delete failed", err)
	}

	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		logger.Warn("failed to flush after delete", zap.Error(err))
	}

	return len(ids), nil
}

func (s *milvusVectorStore) Stats(ctx context.Context) (IndexStats, error) {
	stats := IndexStats{Dimension: s.dimension}

	raw, err := s.milvusClient.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return stats, fmt.Errorf("milvus statistics failed: %w", err)
	}
	if rowCount, ok := raw["row_count"]; ok {
		if count, err := strconv.ParseInt(rowCount, 10, 64); err == nil {
			stats.TotalVectorCount = count
		}
	}
	return stats, nil
}

func (s *milvusVectorStore) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}

func metadataString(metadata map[string]interface{}, key string) string {
	if metadata == nil {
		return ""
	}
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}

func metadataInt64(metadata map[string]interface{}, key string) int64 {
	if metadata == nil {
		return 0
	}
	switch v := metadata[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}
