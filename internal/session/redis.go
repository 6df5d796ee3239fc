package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrEmptyCounterID = errors.New("empty counter id")

const counterKeyPrefix = "suiticket:counter:"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisCounters shares counter ids between gateway replicas. Keys expire
// with the session TTL.
type RedisCounters struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCounters(cfg RedisConfig, ttl time.Duration) *RedisCounters {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return newRedisCounters(rdb, ttl)
}

func newRedisCounters(rdb *redis.Client, ttl time.Duration) *RedisCounters {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCounters{rdb: rdb, ttl: ttl}
}

func counterKey(account string) string { return counterKeyPrefix + account }

func (r *RedisCounters) Get(ctx context.Context, account string) (CounterEntry, error) {
	id, err := r.rdb.Get(ctx, counterKey(account)).Result()
	if errors.Is(err, redis.Nil) {
		return Unresolved(), nil
	}
	if err != nil {
		return Unresolved(), err
	}
	if id == "" {
		return Unresolved(), nil
	}
	return Resolved(id), nil
}

func (r *RedisCounters) Resolve(ctx context.Context, account, counterID string) error {
	if counterID == "" {
		return ErrEmptyCounterID
	}
	return r.rdb.Set(ctx, counterKey(account), counterID, r.ttl).Err()
}

func (r *RedisCounters) Forget(ctx context.Context, account string) error {
	return r.rdb.Del(ctx, counterKey(account)).Err()
}

func (r *RedisCounters) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisCounters) Close() error {
	return r.rdb.Close()
}
