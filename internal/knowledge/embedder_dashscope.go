package knowledge

import (
	"context"
	"fmt"
	"sort"

	"github.com/aihub/pdfqa-go/internal/dashscope"
	apperrors "github.com/aihub/pdfqa-go/internal/errors"
)

// 千问Embedding模型维度映射
var dashscopeEmbeddingDimensions = map[string]int{
	"text-embedding-v1": 1536,
	"text-embedding-v2": 1536,
	"text-embedding-v3": 1024, // v3/v4支持自定义维度
	"text-embedding-v4": 1024,
}

// DashScopeEmbedder 使用阿里云DashScope Embedding API
// 原生接口的text_type参数区分document/query编码，维度不变
type DashScopeEmbedder struct {
	service    *dashscope.Service
	model      string
	dimensions int
}

// NewDashScopeEmbedder 创建DashScope嵌入向量生成器
func NewDashScopeEmbedder(apiKey, model string, dimension int) Embedder {
	service := dashscope.NewService(apiKey)
	if service == nil || !service.Ready() {
		return &NoopEmbedder{}
	}

	if model == "" {
		model = "text-embedding-v2"
	}

	dims, ok := dashscopeEmbeddingDimensions[model]
	if !ok {
		dims = 1536
	}
	if dimension > 0 && (model == "text-embedding-v3" || model == "text-embedding-v4") {
		dims = dimension
	}

	return &DashScopeEmbedder{
		service:    service,
		model:      model,
		dimensions: dims,
	}
}

func (e *DashScopeEmbedder) Embed(ctx context.Context, texts []string, intent EmbedIntent) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, apperrors.NewEmbeddingProviderError("no texts to embed", nil)
	}
	if e.service == nil || !e.service.Ready() {
		return nil, apperrors.NewEmbeddingProviderError("dashscope service not initialized", nil)
	}

	req := dashscope.EmbeddingRequest{
		Model: e.model,
		Input: dashscope.EmbeddingInput{Texts: texts},
		Parameters: dashscope.EmbeddingParameters{
			TextType: string(intent),
		},
	}
	if e.model == "text-embedding-v3" || e.model == "text-embedding-v4" {
		req.Parameters.Dimension = &e.dimensions
	}

	resp, err := e.service.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, apperrors.NewEmbeddingProviderError("dashscope embedding request failed", err)
	}
	if len(resp.Output.Embeddings) != len(texts) {
		return nil, apperrors.NewEmbeddingProviderError(
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Output.Embeddings)), nil)
	}

	// 按text_index恢复输入顺序
	items := resp.Output.Embeddings
	sort.Slice(items, func(i, j int) bool {
		return items[i].TextIndex < items[j].TextIndex
	})

	vectors := make([][]float32, len(items))
	for i, item := range items {
		vec := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}

	if err := checkDimensions(vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (e *DashScopeEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *DashScopeEmbedder) Ready() bool {
	return e.service != nil && e.service.Ready()
}
