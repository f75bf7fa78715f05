package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/salesbot/internal/config"
	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/internal/history"
)

const (
	predictionsKey   = "salesbot:predictions"
	summaryKey       = "salesbot:orders:summary"
	keyPrefix        = "salesbot:"
	scanBatchSize    = 100
	defaultCacheTTL  = time.Minute
	redisPingTimeout = 5 * time.Second
)

// DashboardCache holds the API's hot read paths: the latest prediction table
// and the order history summary. A disabled cache degrades to a noop, reads
// then always hit the source.
type DashboardCache interface {
	GetPredictions(ctx context.Context) ([]domain.PredictionRow, bool, error)
	SetPredictions(ctx context.Context, rows []domain.PredictionRow) error
	GetSummary(ctx context.Context) (*history.Summary, bool, error)
	SetSummary(ctx context.Context, summary *history.Summary) error
	InvalidateAll(ctx context.Context) error
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopCache struct{}

func NewDashboardCache(cfg config.CacheConfig) (DashboardCache, error) {
	if !cfg.Enabled {
		return &noopCache{}, nil
	}

	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &redisCache{client: client, ttl: ttl}, nil
}

func NewNoopCache() DashboardCache {
	return &noopCache{}
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host := cfg.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}

	port := cfg.RedisPort
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func (c *redisCache) GetPredictions(ctx context.Context) ([]domain.PredictionRow, bool, error) {
	payload, err := c.client.Get(ctx, predictionsKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var rows []domain.PredictionRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		// Stale or corrupt payload, treat as a miss.
		_ = c.client.Del(ctx, predictionsKey).Err()
		return nil, false, nil
	}
	return rows, true, nil
}

func (c *redisCache) SetPredictions(ctx context.Context, rows []domain.PredictionRow) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal predictions: %w", err)
	}
	if err := c.client.Set(ctx, predictionsKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisCache) GetSummary(ctx context.Context) (*history.Summary, bool, error) {
	payload, err := c.client.Get(ctx, summaryKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var summary history.Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		_ = c.client.Del(ctx, summaryKey).Err()
		return nil, false, nil
	}
	return &summary, true, nil
}

func (c *redisCache) SetSummary(ctx context.Context, summary *history.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := c.client.Set(ctx, summaryKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached key after a pipeline run rewrites the
// underlying files.
func (c *redisCache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	pattern := keyPrefix + "*"
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return nil
}

func (c *noopCache) GetPredictions(context.Context) ([]domain.PredictionRow, bool, error) {
	return nil, false, nil
}

func (c *noopCache) SetPredictions(context.Context, []domain.PredictionRow) error { return nil }

func (c *noopCache) GetSummary(context.Context) (*history.Summary, bool, error) {
	return nil, false, nil
}

func (c *noopCache) SetSummary(context.Context, *history.Summary) error { return nil }

func (c *noopCache) InvalidateAll(context.Context) error { return nil }
