package redis

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/unibot/backend/pkg/logger"
)

const DefaultTTL = time.Hour

// ResponseCache maps raw queries to final replies. Backend errors are logged
// and read as misses, so callers never see them.
type ResponseCache struct {
	client *Client
	ttl    time.Duration
}

func NewResponseCache(client *Client, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResponseCache{client: client, ttl: ttl}
}

func (c *ResponseCache) Lookup(ctx context.Context, query string) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	val, ok, err := c.client.GetResponse(ctx, query)
	if err != nil {
		logger.Warn("Response cache lookup failed", zap.Error(err))
		return "", false
	}
	if !ok || val == "" {
		return "", false
	}
	return val, true
}

func (c *ResponseCache) Store(ctx context.Context, query, response string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.SetResponse(ctx, query, response, c.ttl); err != nil {
		logger.Warn("Response cache store failed", zap.Error(err))
	}
}
