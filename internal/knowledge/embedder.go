package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/aihub/pdfqa-go/internal/errors"
)

// EmbedIntent 嵌入意图，区分文档入库和查询
// 部分provider对两种意图使用不同的编码模式，但维度必须一致
type EmbedIntent string

const (
	IntentDocument EmbedIntent = "document"
	IntentQuery    EmbedIntent = "query"
)

// Embedder 定义文本向量化接口，返回向量与输入顺序一一对应
type Embedder interface {
	Embed(ctx context.Context, texts []string, intent EmbedIntent) ([][]float32, error)
	Dimensions() int
	Ready() bool
}

// NoopEmbedder 默认占位实现
type NoopEmbedder struct{}

func (n *NoopEmbedder) Embed(ctx context.Context, texts []string, intent EmbedIntent) ([][]float32, error) {
	return nil, apperrors.NewEmbeddingProviderError("embedding provider not configured", nil)
}

func (n *NoopEmbedder) Dimensions() int {
	return 0
}

func (n *NoopEmbedder) Ready() bool {
	return false
}

var embeddingDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder 使用OpenAI Embedding API
// OpenAI不区分document/query编码模式，intent仅做记录
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	limiter    sync.Mutex
}

// NewOpenAIEmbedder 创建OpenAI嵌入向量生成器
// dimension大于0时请求指定维度（3系列模型支持截断）
func NewOpenAIEmbedder(apiKey, model string, dimension int) Embedder {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return &NoopEmbedder{}
	}
	if model == "" {
		model = "text-embedding-3-small"
	}

	client := openai.NewClient(apiKey)
	dims, ok := embeddingDimensions[model]
	if !ok {
		dims = 1536
	}
	if dimension > 0 && strings.HasPrefix(model, "text-embedding-3") {
		dims = dimension
	}

	return &OpenAIEmbedder{
		client:     client,
		model:      model,
		dimensions: dims,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string, intent EmbedIntent) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, apperrors.NewEmbeddingProviderError("no texts to embed", nil)
	}
	if e.client == nil {
		return nil, apperrors.NewEmbeddingProviderError("openai client not initialized", nil)
	}

	e.limiter.Lock()
	defer e.limiter.Unlock()

	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	}
	if strings.HasPrefix(e.model, "text-embedding-3") {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, apperrors.NewEmbeddingProviderError("openai embedding request failed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, apperrors.NewEmbeddingProviderError(
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)), nil)
	}

	// 响应顺序按Index恢复，保证与输入一一对应
	sort.Slice(resp.Data, func(i, j int) bool {
		return resp.Data[i].Index < resp.Data[j].Index
	})

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vec := make([]float32, len(item.Embedding))
		copy(vec, item.Embedding)
		vectors[i] = vec
	}

	if err := checkDimensions(vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedder) Ready() bool {
	return e.client != nil
}

// checkDimensions 校验一批向量长度一致
func checkDimensions(vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	want := len(vectors[0])
	for i, vec := range vectors {
		if len(vec) != want {
			return apperrors.NewEmbeddingDimensionError(
				fmt.Sprintf("vector %d has dimension %d, expected %d", i, len(vec), want))
		}
	}
	return nil
}
