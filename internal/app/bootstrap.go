// Package app builds the long-lived service graph shared by the HTTP server
// and the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unibot/backend/internal/cache/redis"
	"github.com/unibot/backend/internal/chat"
	"github.com/unibot/backend/internal/embedding"
	"github.com/unibot/backend/internal/knowledge"
	"github.com/unibot/backend/internal/llm"
	"github.com/unibot/backend/internal/metrics"
	"github.com/unibot/backend/internal/retrieval"
	"github.com/unibot/backend/internal/search/web"
	"github.com/unibot/backend/internal/storage/sqlite"
	"github.com/unibot/backend/internal/vector/flat"
	"github.com/unibot/backend/pkg/config"
	"github.com/unibot/backend/pkg/logger"
	"github.com/unibot/backend/pkg/retry"
)

type App struct {
	Config *config.Config
	Engine *chat.Engine
	Index  *flat.Index

	redis *redis.Client
	db    *sqlite.Client
}

// Build loads the corpus, builds the index and connects the backends. Only
// embedder failures are returned; every other backend degrades.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	corpus := knowledge.Load(ctx, knowledge.Sources{
		JSONPath:   cfg.Sources.JSONPath,
		CSVPath:    cfg.Sources.CSVPath,
		TextField:  cfg.Sources.TextField,
		CSVSection: cfg.Sources.CSVSection,
	})

	// Redis comes up before the index because the remote embedder caches
	// query vectors in it.
	redisClient := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)

	embedder, err := NewEmbedder(cfg.Embedding, redisClient, cfg.Redis.TTL())
	if err != nil {
		redisClient.Close()
		return nil, err
	}

	index, err := flat.Build(ctx, corpusEmbedder(embedder), corpus.Passages)
	if err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	metrics.IndexedPassages.Set(float64(index.Len()))

	faq := knowledge.FAQText(knowledge.LoadFAQ(cfg.Sources.FAQPath))

	db := openLog(cfg.SQLite.Path)

	llmClient := llm.NewClient(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
	})

	var searcher chat.Searcher
	if cfg.Search.Enabled {
		searcher = web.NewClient(web.Config{
			GoogleAPIKey: cfg.Search.GoogleAPIKey,
			GoogleCX:     cfg.Search.GoogleCX,
			SerpAPIKey:   cfg.Search.SerpAPIKey,
			MaxResults:   cfg.Search.MaxResults,
			Timeout:      time.Duration(cfg.Search.TimeoutSec) * time.Second,
			Delay:        time.Duration(cfg.Search.DelayMs) * time.Millisecond,
		})
	}

	engine := chat.NewEngine(chat.Config{
		ShortName:    cfg.Institution.ShortName,
		FullForm:     cfg.Institution.FullForm,
		Hint:         cfg.Institution.Hint,
		SystemPrompt: cfg.LLM.SystemPrompt,
		TopK:         cfg.Retrieval.TopK,
		Threshold:    cfg.Retrieval.Threshold,
		FAQ:          faq,
	},
		redis.NewResponseCache(redisClient, cfg.Redis.TTL()),
		sqlite.NewRecorder(db),
		llmClient,
		searcher,
		retrieval.NewRetriever(index, embedder),
	)

	logger.Info("Services initialized",
		zap.Int("passages", index.Len()),
		zap.String("embedder", embedder.Name()),
		zap.Bool("web_search", cfg.Search.Enabled),
		zap.Bool("persistence", db != nil),
	)

	return &App{
		Config: cfg,
		Engine: engine,
		Index:  index,
		redis:  redisClient,
		db:     db,
	}, nil
}

func NewEmbedder(cfg config.EmbeddingConfig, cache embedding.VectorCache, ttl time.Duration) (embedding.Embedder, error) {
	switch cfg.Provider {
	case "hashing":
		return embedding.NewHashing(cfg.Dimension)
	case "openai":
		return embedding.NewOpenAI(embedding.OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			Cache:     cache,
			CacheTTL:  ttl,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// corpusEmbedder retries remote corpus encoding at startup. Query embeddings
// go through the bare embedder and fail once.
func corpusEmbedder(e embedding.Embedder) embedding.Embedder {
	if _, ok := e.(*embedding.OpenAI); !ok {
		return e
	}
	rc := retry.DefaultConfig()
	rc.Logger = logger.GetLogger()
	return embedding.WithRetry(e, rc)
}

// openLog returns nil when the database cannot be used.
func openLog(path string) *sqlite.Client {
	db, err := sqlite.NewClient(path)
	if err != nil {
		logger.Error("Failed to open persistence log", zap.Error(err))
		return nil
	}
	if err := db.InitSchema(); err != nil {
		logger.Error("Failed to initialize persistence log", zap.Error(err))
		db.Close()
		return nil
	}
	return db
}

// Ready reports whether the in-memory index holds any passages.
func (a *App) Ready() bool {
	return a.Index != nil && a.Index.Len() > 0
}

func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("Failed to close redis", zap.Error(err))
		}
	}
}
