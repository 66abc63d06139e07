package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edulytics/portal/repositories"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultPrefix = "edulytics:profile:"

// ProfileStore keeps each profile as one Redis hash
type ProfileStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// Options configures the Redis profile store
type Options struct {
	// Prefix namespaces the profile hashes; defaults to "edulytics:profile:"
	Prefix string
	// TTL expires an untouched profile; zero keeps profiles forever
	TTL time.Duration
}

// NewClient parses a redis:// URL and verifies the server answers
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewProfileStore wraps an existing client
func NewProfileStore(client *goredis.Client, opts Options, logger *zap.Logger) *ProfileStore {
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	return &ProfileStore{
		client: client,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		logger: logger,
	}
}

var _ repositories.ProfileStore = (*ProfileStore)(nil)

func (s *ProfileStore) key(profileID string) string {
	return s.prefix + profileID
}

func (s *ProfileStore) Get(ctx context.Context, profileID, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.key(profileID), key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", key, err)
	}
	return v, true, nil
}

func (s *ProfileStore) Set(ctx context.Context, profileID, key, value string) error {
	return s.SetMany(ctx, profileID, map[string]string{key: value})
}

func (s *ProfileStore) SetMany(ctx context.Context, profileID string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	k := s.key(profileID)
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, k, values)
		if s.ttl > 0 {
			pipe.Expire(ctx, k, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (s *ProfileStore) Delete(ctx context.Context, profileID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.key(profileID), keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}

func (s *ProfileStore) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

func (s *ProfileStore) Close() error {
	s.logger.Info("closing redis connection")
	return s.client.Close()
}
