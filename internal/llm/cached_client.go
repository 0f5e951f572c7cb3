package llm

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedClient wraps GeminiClient with a Redis-backed completion cache so
// repeated prompts survive process restarts. Redis failures fall through to
// the live API.
type CachedClient struct {
	*GeminiClient
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedClient creates a Gemini client with a Redis completion cache
func NewCachedClient(cfg Config, redisClient *redis.Client, logger *zap.Logger) (*CachedClient, error) {
	base, err := NewGeminiClient(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = DefaultConfig().CacheTTL
	}

	return &CachedClient{
		GeminiClient: base,
		redis:        redisClient,
		ttl:          ttl,
		logger:       logger,
	}, nil
}

// Complete checks Redis before hitting the API and stores fresh completions
func (c *CachedClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, *Usage, error) {
	key := "llm:completion:" + c.cacheKey(systemPrompt, userPrompt)

	if c.redis != nil {
		if cached, err := c.redis.Get(ctx, key).Result(); err == nil {
			c.logger.Debug("LLM cache hit", zap.String("key", key))
			return cached, nil, nil
		} else if err != redis.Nil {
			c.logger.Debug("LLM cache read failed", zap.Error(err))
		}
	}

	text, usage, err := c.GeminiClient.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", usage, err
	}

	if c.redis != nil {
		if err := c.redis.Set(ctx, key, text, c.ttl).Err(); err != nil {
			c.logger.Debug("LLM cache write failed", zap.Error(err))
		}
	}

	return text, usage, nil
}

// CompleteJSON parses a JSON completion through the Redis-backed cache
func (c *CachedClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, result interface{}) (*Usage, error) {
	return completeJSON(ctx, c.Complete, systemPrompt, userPrompt, result)
}
