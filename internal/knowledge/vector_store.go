package knowledge

import "context"

// Vector 带外部标识的向量，Metadata随向量一起存储
type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]interface{}
}

// Match 相似度检索结果，按相似度降序排列
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]interface{}
}

// IndexStats 索引统计信息，provider未报告的字段保持零值
type IndexStats struct {
	TotalVectorCount int64   `json:"total_vector_count"`
	Dimension        int     `json:"dimension"`
	IndexFullness    float64 `json:"index_fullness"`
}

// VectorIndex 外部向量索引抽象
// EnsureIndex幂等：索引存在时直接返回，不存在时创建
// Upsert对相同ID覆盖写入，不追加
type VectorIndex interface {
	EnsureIndex(ctx context.Context, name string, dimension int, metric string) error
	Upsert(ctx context.Context, vectors []Vector) (int, error)
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]Match, error)
	Delete(ctx context.Context, ids []string) (int, error)
	Stats(ctx context.Context) (IndexStats, error)
	Ready() bool
}
