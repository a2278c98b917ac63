// Package rediskv implements kv.Store on a Redis server. Each application key
// maps to one Redis string key.
package rediskv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/mylist/internal/kv"
)

var _ kv.Store = (*Store)(nil)

// Store wraps a go-redis client.
type Store struct {
	rdb *redis.Client
}

// Options configures the connection made by New.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis and pings it so a wrong address fails at startup.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, errors.New("rediskv: address is empty")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("rediskv: ping %s: %w", opts.Addr, err)
	}
	return &Store{rdb: rdb}, nil
}

// NewWithClient wraps an existing client. The Store takes ownership and
// closes it on Close.
func NewWithClient(rdb *redis.Client) (*Store, error) {
	if rdb == nil {
		return nil, errors.New("rediskv: redis client is nil")
	}
	return &Store{rdb: rdb}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("rediskv: get %q: %w", key, err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("rediskv: set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("rediskv: del %q: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
