package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	fieldValue    = "value"
	fieldRecordID = "record_id"
)

// RedisOptions configures a Redis-backed store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every key, e.g. "usher:".
	Prefix string
}

// Redis stores each document as a hash holding its value and record id.
type Redis struct {
	client *redis.Client
	prefix string
}

// DialRedis connects to Redis and verifies the connection.
func DialRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return NewRedis(client, opts.Prefix), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Open returns the store of did.
func (r *Redis) Open(ctx context.Context, did string) (Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &redisStore{r: r, did: did}, nil
}

type redisStore struct {
	r   *Redis
	did string
}

func (s *redisStore) key(key string) string {
	return s.r.prefix + s.did + ":" + key
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.r.client.HGet(ctx, s.key(key), fieldValue).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", key, err)
	}
	return value, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte) error {
	k := s.key(key)
	_, err := s.r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, k, fieldRecordID, uuid.NewString())
		pipe.HSet(ctx, k, fieldValue, value)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set document %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) RecordID(ctx context.Context, key string) (string, error) {
	id, err := s.r.client.HGet(ctx, s.key(key), fieldRecordID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrRecordMissing
	}
	if err != nil {
		return "", fmt.Errorf("failed to get record id for %s: %w", key, err)
	}
	return id, nil
}
