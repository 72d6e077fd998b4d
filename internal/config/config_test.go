package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadConfig 每个测试从干净的viper状态加载，避免包级状态互相污染
func loadConfig(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	require.NoError(t, LoadConfig())
	return AppConfig
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg := loadConfig(t)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "pdf-qa-index", cfg.Index.Name)
	assert.Equal(t, 768, cfg.Index.Dimension)
	assert.Equal(t, "cosine", cfg.Index.Metric)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.False(t, cfg.Reduction.Enabled)
	assert.Equal(t, 128, cfg.Reduction.TargetDim)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "memory", cfg.VectorStore.Provider)
	assert.False(t, cfg.Answer.Enabled)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("PORT", "9000")
	t.Setenv("PINECONE_INDEX_NAME", "custom-index")
	t.Setenv("PDFQA_INDEX_DIMENSION", "1024")

	cfg := loadConfig(t)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "custom-index", cfg.Index.Name)
	assert.Equal(t, 1024, cfg.Index.Dimension)
	assert.Equal(t, "test-key", cfg.Embedding.OpenAIAPIKey)
}

// PDFQA_前缀的嵌套键必须能从环境变量选择provider和调整流水线参数
func TestLoadConfigEnvProviderSelection(t *testing.T) {
	t.Setenv("PDFQA_EMBEDDING_PROVIDER", "dashscope")
	t.Setenv("DASHSCOPE_API_KEY", "ds-key")
	t.Setenv("PDFQA_VECTOR_STORE_PROVIDER", "pinecone")
	t.Setenv("PINECONE_API_KEY", "pc-key")
	t.Setenv("PDFQA_CHUNKING_SIZE", "200")
	t.Setenv("PDFQA_CHUNKING_OVERLAP", "20")
	t.Setenv("PDFQA_RETRIEVAL_TOP_K", "5")
	t.Setenv("PDFQA_REDUCTION_ENABLED", "true")
	t.Setenv("PDFQA_REDUCTION_TARGET_DIM", "64")
	t.Setenv("PDFQA_ANSWER_ENABLED", "true")

	cfg := loadConfig(t)

	assert.Equal(t, "dashscope", cfg.Embedding.Provider)
	assert.Equal(t, "pinecone", cfg.VectorStore.Provider)
	assert.Equal(t, 200, cfg.Chunking.Size)
	assert.Equal(t, 20, cfg.Chunking.Overlap)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.True(t, cfg.Reduction.Enabled)
	assert.Equal(t, 64, cfg.Reduction.TargetDim)
	assert.True(t, cfg.Answer.Enabled)
}

func TestValidateRejectsBadChunking(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	base := loadConfig(t)

	cfg := *base
	cfg.Chunking.Overlap = cfg.Chunking.Size
	assert.Error(t, Validate(&cfg))

	cfg = *base
	cfg.Chunking.Size = 0
	assert.Error(t, Validate(&cfg))
}

// 所选provider缺少凭证时启动失败
func TestValidateRequiresProviderCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	base := loadConfig(t)

	cfg := *base
	cfg.Embedding.OpenAIAPIKey = ""
	assert.Error(t, Validate(&cfg))

	cfg = *base
	cfg.Embedding.Provider = "dashscope"
	cfg.Embedding.DashScopeAPIKey = ""
	assert.Error(t, Validate(&cfg))

	cfg = *base
	cfg.VectorStore.Provider = "pinecone"
	cfg.VectorStore.Pinecone.APIKey = ""
	assert.Error(t, Validate(&cfg))
}
