package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Index       IndexConfig
	Chunking    ChunkingConfig
	Retrieval   RetrievalConfig
	Reduction   ReductionConfig
	Embedding   EmbeddingConfig
	VectorStore VectorStoreConfig
	Answer      AnswerConfig
	Cache       CacheConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// IndexConfig 外部向量索引配置
type IndexConfig struct {
	Name      string `validate:"required"`
	Dimension int    `validate:"gt=0"`
	Metric    string `validate:"oneof=cosine dotproduct euclidean"`
}

// ChunkingConfig 分块配置，Overlap必须小于Size
type ChunkingConfig struct {
	Size    int `validate:"gt=0"`
	Overlap int `validate:"gte=0,ltfield=Size"`
}

type RetrievalConfig struct {
	TopK int `validate:"gt=0"`
}

// ReductionConfig 降维配置
type ReductionConfig struct {
	Enabled   bool
	TargetDim int `validate:"gt=0"`
}

type EmbeddingConfig struct {
	Provider        string `validate:"oneof=openai dashscope none"`
	Model           string
	OpenAIAPIKey    string
	DashScopeAPIKey string
}

type VectorStoreConfig struct {
	Provider string `validate:"oneof=milvus pinecone memory"`
	Milvus   MilvusConfig
	Pinecone PineconeConfig
}

type MilvusConfig struct {
	Address  string
	Username string
	Password string
	Database string
	TLS      bool
}

// PineconeConfig Pinecone托管索引配置
type PineconeConfig struct {
	APIKey string
	Cloud  string
	Region string
}

// AnswerConfig 答案生成配置，未启用时退化为占位答案
type AnswerConfig struct {
	Enabled bool
	Model   string
}

type CacheConfig struct {
	Enabled    bool
	Addr       string
	DB         int
	TTLSeconds int
}

var AppConfig *Config

func LoadConfig() error {
	// 设置默认值
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")

	// 索引配置默认值
	viper.SetDefault("index.name", "pdf-qa-index")
	viper.SetDefault("index.dimension", 768)
	viper.SetDefault("index.metric", "cosine")

	// 分块配置默认值
	viper.SetDefault("chunking.size", 500)
	viper.SetDefault("chunking.overlap", 50)

	// 检索配置默认值
	viper.SetDefault("retrieval.top_k", 3)

	// 降维配置默认值
	viper.SetDefault("reduction.enabled", false)
	viper.SetDefault("reduction.target_dim", 128)

	// 嵌入配置默认值
	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model", "")

	// 向量存储配置默认值
	viper.SetDefault("vector_store.provider", "memory")
	viper.SetDefault("vector_store.milvus.address", "localhost:19530")
	viper.SetDefault("vector_store.milvus.database", "default")
	viper.SetDefault("vector_store.milvus.tls", false)
	viper.SetDefault("vector_store.pinecone.cloud", "aws")
	viper.SetDefault("vector_store.pinecone.region", "us-east-1")

	// 答案生成默认值
	viper.SetDefault("answer.enabled", false)
	viper.SetDefault("answer.model", "gpt-4o-mini")

	// 缓存默认值
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.addr", "localhost:6379")
	viper.SetDefault("cache.db", 0)
	viper.SetDefault("cache.ttl_seconds", 300)

	// 读取环境变量，嵌套键的点映射为下划线：PDFQA_VECTOR_STORE_PROVIDER等
	viper.SetEnvPrefix("PDFQA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 从环境变量读取
	if port := os.Getenv("PORT"); port != "" {
		viper.Set("server.port", port)
	}
	if indexName := os.Getenv("PINECONE_INDEX_NAME"); indexName != "" {
		viper.Set("index.name", indexName)
	}
	if dim := os.Getenv("PDFQA_INDEX_DIMENSION"); dim != "" {
		if v, err := strconv.Atoi(dim); err == nil {
			viper.Set("index.dimension", v)
		}
	}
	if metric := os.Getenv("PDFQA_INDEX_METRIC"); metric != "" {
		viper.Set("index.metric", metric)
	}
	if openaiKey := os.Getenv("OPENAI_API_KEY"); openaiKey != "" {
		viper.Set("embedding.openai_api_key", openaiKey)
	}
	if dashscopeKey := os.Getenv("DASHSCOPE_API_KEY"); dashscopeKey != "" {
		viper.Set("embedding.dashscope_api_key", dashscopeKey)
	}
	if pineconeKey := os.Getenv("PINECONE_API_KEY"); pineconeKey != "" {
		viper.Set("vector_store.pinecone.api_key", pineconeKey)
	}
	if milvusAddr := os.Getenv("MILVUS_ADDRESS"); milvusAddr != "" {
		viper.Set("vector_store.milvus.address", milvusAddr)
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		viper.Set("cache.addr", redisAddr)
		viper.Set("cache.enabled", true)
	}

	config := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Index: IndexConfig{
			Name:      viper.GetString("index.name"),
			Dimension: viper.GetInt("index.dimension"),
			Metric:    viper.GetString("index.metric"),
		},
		Chunking: ChunkingConfig{
			Size:    viper.GetInt("chunking.size"),
			Overlap: viper.GetInt("chunking.overlap"),
		},
		Retrieval: RetrievalConfig{
			TopK: viper.GetInt("retrieval.top_k"),
		},
		Reduction: ReductionConfig{
			Enabled:   viper.GetBool("reduction.enabled"),
			TargetDim: viper.GetInt("reduction.target_dim"),
		},
		Embedding: EmbeddingConfig{
			Provider:        viper.GetString("embedding.provider"),
			Model:           viper.GetString("embedding.model"),
			OpenAIAPIKey:    viper.GetString("embedding.openai_api_key"),
			DashScopeAPIKey: viper.GetString("embedding.dashscope_api_key"),
		},
		VectorStore: VectorStoreConfig{
			Provider: viper.GetString("vector_store.provider"),
			Milvus: MilvusConfig{
				Address:  viper.GetString("vector_store.milvus.address"),
				Username: viper.GetString("vector_store.milvus.username"),
				Password: viper.GetString("vector_store.milvus.password"),
				Database: viper.GetString("vector_store.milvus.database"),
				TLS:      viper.GetBool("vector_store.milvus.tls"),
			},
			Pinecone: PineconeConfig{
				APIKey: viper.GetString("vector_store.pinecone.api_key"),
				Cloud:  viper.GetString("vector_store.pinecone.cloud"),
				Region: viper.GetString("vector_store.pinecone.region"),
			},
		},
		Answer: AnswerConfig{
			Enabled: viper.GetBool("answer.enabled"),
			Model:   viper.GetString("answer.model"),
		},
		Cache: CacheConfig{
			Enabled:    viper.GetBool("cache.enabled"),
			Addr:       viper.GetString("cache.addr"),
			DB:         viper.GetInt("cache.db"),
			TTLSeconds: viper.GetInt("cache.ttl_seconds"),
		},
	}

	if err := Validate(config); err != nil {
		return err
	}

	AppConfig = config
	return nil
}

// Validate 校验配置，缺少必需配置时启动失败而不是每个请求失败
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// 所选provider的凭证必须在启动时就位
	switch cfg.Embedding.Provider {
	case "openai":
		if cfg.Embedding.OpenAIAPIKey == "" {
			return fmt.Errorf("embedding provider openai selected but OPENAI_API_KEY is not set")
		}
	case "dashscope":
		if cfg.Embedding.DashScopeAPIKey == "" {
			return fmt.Errorf("embedding provider dashscope selected but DASHSCOPE_API_KEY is not set")
		}
	}
	if cfg.VectorStore.Provider == "pinecone" && cfg.VectorStore.Pinecone.APIKey == "" {
		return fmt.Errorf("vector store pinecone selected but PINECONE_API_KEY is not set")
	}
	return nil
}
