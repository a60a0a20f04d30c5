package resultstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"threatcluster/pkg/models"
)

// RedisConfig configures Redis access for result publication.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
	KeepLast  int64
}

// RedisStore publishes completed clustering results for the dashboard
// collaborator: the latest result under a fixed key plus a capped recent
// list.
type RedisStore struct {
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	keepLast int64
}

// NewRedisStore constructs a Redis-backed result store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "threatcluster:results"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = 20
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis result store: %w", err)
	}

	return &RedisStore{
		client:   client,
		prefix:   strings.TrimSpace(cfg.KeyPrefix),
		ttl:      cfg.TTL,
		keepLast: cfg.KeepLast,
	}, nil
}

// Publish stores one result as latest and pushes it onto the recent list.
func (s *RedisStore) Publish(ctx context.Context, result *models.ClusteringResult) error {
	if result == nil {
		return nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal clustering result: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.latestKey(), payload, s.ttl)
	pipe.LPush(ctx, s.recentKey(), payload)
	pipe.LTrim(ctx, s.recentKey(), 0, s.keepLast-1)
	pipe.Expire(ctx, s.recentKey(), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish clustering result: %w", err)
	}
	return nil
}

// Latest fetches the most recent result, or nil when none is stored.
func (s *RedisStore) Latest(ctx context.Context) (*models.ClusteringResult, error) {
	payload, err := s.client.Get(ctx, s.latestKey()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read latest clustering result: %w", err)
	}
	var result models.ClusteringResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode latest clustering result: %w", err)
	}
	return &result, nil
}

// Close closes Redis resources.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) latestKey() string {
	return s.prefix + ":latest"
}

func (s *RedisStore) recentKey() string {
	return s.prefix + ":recent"
}
