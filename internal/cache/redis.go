package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"governance-analytics/internal/rollup"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "govdash:summary:"

// Redis stores one JSON document per proposal. Writes overwrite; freshness is
// decided by the summary's LastUpdated, the optional retention only bounds
// how long abandoned keys linger.
type Redis struct {
	client    redis.UniversalClient
	retention time.Duration
	logger    *zap.Logger
}

// NewRedis connects to the server at rawURL (redis://[:password@]host:port/db)
// and checks it answers.
func NewRedis(ctx context.Context, rawURL string, retention time.Duration, logger *zap.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Duration("retention", retention))

	return NewRedisWithClient(rdb, retention, logger), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client redis.UniversalClient, retention time.Duration, logger *zap.Logger) *Redis {
	return &Redis{client: client, retention: retention, logger: logger}
}

func summaryKey(proposalID uint64) string {
	return fmt.Sprintf("%s%d", keyPrefix, proposalID)
}

func (r *Redis) Get(ctx context.Context, proposalID uint64) (*rollup.Summary, error) {
	raw, err := r.client.Get(ctx, summaryKey(proposalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get summary %d: %w", proposalID, err)
	}
	return decodeSummary(raw)
}

func (r *Redis) Set(ctx context.Context, proposalID uint64, s rollup.Summary) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary %d: %w", proposalID, err)
	}
	if err := r.client.Set(ctx, summaryKey(proposalID), raw, r.retention).Err(); err != nil {
		return fmt.Errorf("redis set summary %d: %w", proposalID, err)
	}
	return nil
}

// Health checks if Redis is reachable.
func (r *Redis) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func decodeSummary(raw []byte) (*rollup.Summary, error) {
	var s rollup.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}
