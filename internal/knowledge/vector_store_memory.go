package knowledge

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/aihub/pdfqa-go/internal/errors"
)

// memoryVectorStore 进程内暴力检索实现，用于开发和测试
type memoryVectorStore struct {
	mu        sync.RWMutex
	name      string
	dimension int
	metric    string
	vectors   map[string]Vector
}

// NewMemoryVectorStore 创建内存向量存储
func NewMemoryVectorStore() VectorIndex {
	return &memoryVectorStore{
		vectors: make(map[string]Vector),
	}
}

func (s *memoryVectorStore) EnsureIndex(ctx context.Context, name string, dimension int, metric string) error {
	if dimension <= 0 {
		return apperrors.NewIndexProvisioningError("index dimension must be positive", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.name == name && s.dimension == dimension {
		return nil
	}
	s.name = name
	s.dimension = dimension
	s.metric = strings.ToLower(metric)
	s.vectors = make(map[string]Vector)
	return nil
}

func (s *memoryVectorStore) Upsert(ctx context.Context, vectors []Vector) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v.Values) != s.dimension {
			return 0, apperrors.NewEmbeddingDimensionError("vector dimension does not match index dimension")
		}
	}
	for _, v := range vectors {
		// 相同ID覆盖
		s.vectors[v.ID] = v
	}
	return len(vectors), nil
}

func (s *memoryVectorStore) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}

	matches := make([]Match, 0, len(s.vectors))
	for id, v := range s.vectors {
		m := Match{ID: id, Score: s.similarity(v.Values, vector)}
		if includeMetadata {
			m.Metadata = v.Metadata
		}
		matches = append(matches, m)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})

	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *memoryVectorStore) Delete(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for _, id := range ids {
		if _, ok := s.vectors[id]; ok {
			delete(s.vectors, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *memoryVectorStore) Stats(ctx context.Context) (IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return IndexStats{
		TotalVectorCount: int64(len(s.vectors)),
		Dimension:        s.dimension,
	}, nil
}

func (s *memoryVectorStore) Ready() bool {
	return true
}

func (s *memoryVectorStore) similarity(a, b []float32) float64 {
	switch s.metric {
	case "dotproduct":
		return dot(a, b)
	case "euclidean":
		// 负距离，保证降序排序仍然是"越近越前"
		d2 := dot(a, a) - 2*dot(a, b) + dot(b, b)
		if d2 < 0 {
			d2 = 0
		}
		return -math.Sqrt(d2)
	default:
		return cosine(a, b)
	}
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func cosine(a, b []float32) float64 {
	na := math.Sqrt(dot(a, a))
	nb := math.Sqrt(dot(b, b))
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}
