package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/unibot/backend/pkg/logger"
)

const (
	responsePrefix  = "chat:"
	embeddingPrefix = "embedding:"
)

type Client struct {
	client *redis.Client
}

// NewClient never fails on an unreachable server: go-redis dials lazily, so
// the cache starts working as soon as Redis comes up.
func NewClient(host string, port int, password string, db int) *Client {
	addr := fmt.Sprintf("%s:%d", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, response cache disabled until it responds",
			zap.String("addr", addr),
			zap.Error(err),
		)
	} else {
		logger.Info("Redis client initialized", zap.String("addr", addr))
	}

	return &Client{client: client}
}

func NewFromAddr(addr string) *Client {
	return &Client{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Client) SetResponse(ctx context.Context, query, response string, ttl time.Duration) error {
	err := c.client.Set(ctx, responsePrefix+query, response, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set response cache: %w", err)
	}

	logger.Debug("Response cached", zap.Int("query_len", len(query)), zap.Duration("ttl", ttl))
	return nil
}

// GetResponse reports a miss as ("", false, nil).
func (c *Client) GetResponse(ctx context.Context, query string) (string, bool, error) {
	val, err := c.client.Get(ctx, responsePrefix+query).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get response cache: %w", err)
	}

	logger.Debug("Response cache hit", zap.Int("query_len", len(query)))
	return val, true, nil
}

func (c *Client) SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	err = c.client.Set(ctx, embeddingPrefix+textHash, data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set embedding cache: %w", err)
	}

	logger.Debug("Embedding cached", zap.String("text_hash", textHash))
	return nil
}

func (c *Client) GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, embeddingPrefix+textHash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get embedding cache: %w", err)
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}

	logger.Debug("Embedding cache hit", zap.String("text_hash", textHash))
	return embedding, true, nil
}
