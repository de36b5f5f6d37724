package redisad

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"hostiq/internal/adapters/observability"
)

// TokenStore keeps tokens under hostiq:tokens:<profile>:<key>, without TTL:
// the backend decides when a token is dead.
type TokenStore struct {
	c      *redis.Client
	prefix string
}

func New(addr, pass string, db int, profile string) *TokenStore {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), profile)
}

func NewWithClient(c *redis.Client, profile string) *TokenStore {
	if profile == "" {
		profile = "default"
	}
	return &TokenStore{c: c, prefix: fmt.Sprintf("hostiq:tokens:%s:", profile)}
}

func (r *TokenStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.c.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		observability.ObserveTokenStore("redis", "miss")
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	observability.ObserveTokenStore("redis", "hit")
	return v, true, nil
}

func (r *TokenStore) Set(ctx context.Context, key, value string) error {
	observability.ObserveTokenStore("redis", "set")
	return r.c.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *TokenStore) Delete(ctx context.Context, key string) error {
	observability.ObserveTokenStore("redis", "del")
	return r.c.Del(ctx, r.prefix+key).Err()
}

func (r *TokenStore) Close() error { return r.c.Close() }
