package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aihub/pdfqa-go/app/controllers"
	"github.com/aihub/pdfqa-go/internal/cache"
	"github.com/aihub/pdfqa-go/internal/config"
	"github.com/aihub/pdfqa-go/internal/knowledge"
	"github.com/aihub/pdfqa-go/internal/logger"
	"github.com/aihub/pdfqa-go/internal/services"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error
	QAService    *services.QAService
}

// Init bootstraps configuration, logger and the QA pipeline required by the
// Beego application. Configuration errors fail startup instead of surfacing
// on every request.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load and validate configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}
	cfg := config.AppConfig

	app := &App{}

	preprocessor, err := knowledge.NewTextPreprocessor()
	if err != nil {
		return nil, err
	}

	chunker, err := knowledge.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	index, err := buildVectorIndex(cfg)
	if err != nil {
		return nil, err
	}

	var reducer *knowledge.DimensionReducer
	if cfg.Reduction.Enabled {
		reducer = knowledge.NewDimensionReducer()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store, err := knowledge.NewDocumentStore(ctx, knowledge.StoreOptions{
		Index:        index,
		Preprocessor: preprocessor,
		Embedder:     embedder,
		Reducer:      reducer,
		IndexName:    cfg.Index.Name,
		Dimension:    effectiveDimension(cfg, embedder),
		Metric:       cfg.Index.Metric,
	})
	if err != nil {
		return nil, err
	}

	answerCache := buildAnswerCache(cfg)
	app.cleanupTasks = append(app.cleanupTasks, answerCache.Close)

	var answerer services.AnswerGenerator
	if cfg.Answer.Enabled {
		if generator := services.NewOpenAIAnswerGenerator(cfg.Embedding.OpenAIAPIKey, cfg.Answer.Model); generator != nil {
			answerer = generator
		} else {
			logger.Warn("answer generation enabled but OPENAI_API_KEY not set, using placeholder answers")
		}
	}

	qaService, err := services.NewQAService(services.QAServiceOptions{
		Store:     store,
		Chunker:   chunker,
		Parsers:   knowledge.NewFileParserManager(),
		Sessions:  services.NewSessionRegistry(),
		Cache:     answerCache,
		Answerer:  answerer,
		TopK:      cfg.Retrieval.TopK,
		Reduce:    cfg.Reduction.Enabled,
		TargetDim: cfg.Reduction.TargetDim,
	})
	if err != nil {
		return nil, err
	}
	app.QAService = qaService
	controllers.Setup(qaService)

	logger.Info("pipeline initialized",
		zap.String("index", cfg.Index.Name),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("vector_store", cfg.VectorStore.Provider),
		zap.Bool("reduction", cfg.Reduction.Enabled))

	return app, nil
}

// buildEmbedder 按配置选择嵌入provider
func buildEmbedder(cfg *config.Config) (knowledge.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return knowledge.NewOpenAIEmbedder(cfg.Embedding.OpenAIAPIKey, cfg.Embedding.Model, cfg.Index.Dimension), nil
	case "dashscope":
		return knowledge.NewDashScopeEmbedder(cfg.Embedding.DashScopeAPIKey, cfg.Embedding.Model, cfg.Index.Dimension), nil
	case "none":
		return &knowledge.NoopEmbedder{}, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}
}

// buildVectorIndex 按配置选择向量存储
func buildVectorIndex(cfg *config.Config) (knowledge.VectorIndex, error) {
	switch cfg.VectorStore.Provider {
	case "milvus":
		return knowledge.NewMilvusVectorStore(knowledge.MilvusOptions{
			Address:  cfg.VectorStore.Milvus.Address,
			Username: cfg.VectorStore.Milvus.Username,
			Password: cfg.VectorStore.Milvus.Password,
			Database: cfg.VectorStore.Milvus.Database,
			UseTLS:   cfg.VectorStore.Milvus.TLS,
		})
	case "pinecone":
		return knowledge.NewPineconeVectorStore(knowledge.PineconeOptions{
			APIKey: cfg.VectorStore.Pinecone.APIKey,
			Cloud:  cfg.VectorStore.Pinecone.Cloud,
			Region: cfg.VectorStore.Pinecone.Region,
		})
	case "memory":
		return knowledge.NewMemoryVectorStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector store provider: %s", cfg.VectorStore.Provider)
	}
}

// buildAnswerCache 缓存未启用时返回空实现
func buildAnswerCache(cfg *config.Config) cache.AnswerCache {
	if !cfg.Cache.Enabled {
		return cache.NewNoopAnswerCache()
	}
	return cache.NewRedisAnswerCache(cfg.Cache.Addr, cfg.Cache.DB, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
}

// effectiveDimension 索引的实际向量宽度
// 降维开启时写入的向量宽度是min(target_dim, 嵌入维度)
func effectiveDimension(cfg *config.Config, embedder knowledge.Embedder) int {
	if !cfg.Reduction.Enabled {
		return cfg.Index.Dimension
	}
	dim := cfg.Reduction.TargetDim
	if embedDim := embedder.Dimensions(); embedDim > 0 && embedDim < dim {
		dim = embedDim
	}
	return dim
}

// Shutdown flushes/logs and closes resources gracefully.
func (a *App) Shutdown() {
	// Execute cleanup tasks in reverse order (best effort).
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}

	// Flush logger buffers.
	logger.Sync()
}
