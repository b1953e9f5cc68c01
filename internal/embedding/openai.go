package embedding

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/unibot/backend/pkg/logger"
	"github.com/unibot/backend/pkg/retry"
	"github.com/unibot/backend/pkg/utils"
)

const openAIBatchSize = 100

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// VectorCache stores query embeddings between requests.
type VectorCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	Cache     VectorCache
	CacheTTL  time.Duration
}

// OpenAI embeds through any OpenAI-compatible embeddings endpoint.
type OpenAI struct {
	client   *openai.Client
	model    string
	dim      int
	observed atomic.Int64
	cache    VectorCache
	cacheTTL time.Duration
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger.Info("OpenAI embedder initialized", zap.String("model", cfg.Model))

	return &OpenAI{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		dim:      configuredDimension(cfg),
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
	}
}

func (o *OpenAI) Name() string { return "openai:" + o.model }

// Dimension reports the width of the first response once one has arrived.
// Before that it is the known width of the model, falling back to the
// configured value.
func (o *OpenAI) Dimension() int {
	if d := o.observed.Load(); d > 0 {
		return int(d)
	}
	return o.dim
}

func configuredDimension(cfg OpenAIConfig) int {
	if d, ok := modelDimensions[cfg.Model]; ok {
		return d
	}
	return cfg.Dimension
}

func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Single texts are queries; they repeat across requests and are worth caching.
	if len(texts) == 1 && o.cache != nil {
		return o.embedCached(ctx, texts[0])
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += openAIBatchSize {
		end := min(start+openAIBatchSize, len(texts))
		batch, err := o.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}

	logger.Debug("Batch embeddings generated", zap.Int("count", len(embeddings)))
	return embeddings, nil
}

func (o *OpenAI) embedCached(ctx context.Context, text string) ([][]float32, error) {
	key := utils.HashString(o.model + "\x00" + text)

	cached, ok, err := o.cache.GetEmbedding(ctx, key)
	if err != nil {
		logger.Warn("Embedding cache read failed", zap.Error(err))
	}
	if ok {
		return [][]float32{cached}, nil
	}

	vectors, err := o.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if err := o.cache.SetEmbedding(ctx, key, vectors[0], o.cacheTTL); err != nil {
		logger.Warn("Embedding cache write failed", zap.Error(err))
	}
	return vectors, nil
}

func (o *OpenAI) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: batch,
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(resp.Data), len(batch))
	}

	out := make([][]float32, len(batch))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(batch) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	if len(out) > 0 {
		o.observed.CompareAndSwap(0, int64(len(out[0])))
	}
	return out, nil
}

// Retrying decorates an embedder so each Embed call is retried with backoff.
// Used for startup corpus encoding, never on the request path.
type Retrying struct {
	Embedder
	cfg retry.Config
}

func WithRetry(e Embedder, cfg retry.Config) *Retrying {
	return &Retrying{Embedder: e, cfg: cfg}
}

func (r *Retrying) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return retry.DoWithResult(ctx, r.cfg, func() ([][]float32, error) {
		return r.Embedder.Embed(ctx, texts)
	})
}
