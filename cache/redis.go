package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL is how long a value survives in Redis. Invalidation does
// not delete keys; it bumps a generation counter and stale generations age
// out through this TTL.
const DefaultRedisTTL = 10 * time.Minute

// Redis is a Cache shared by every process pointing at the same namespace.
type Redis struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
}

var _ Cache = (*Redis)(nil)

// NewRedis creates a Redis cache. An empty namespace defaults to "tariff".
func NewRedis(client redis.UniversalClient, namespace string, ttl time.Duration) *Redis {
	if namespace == "" {
		namespace = "tariff"
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &Redis{client: client, namespace: namespace, ttl: ttl}
}

// NewRedisFromAddrs builds a client the usual way: a cluster client when
// useCluster is set and more than one address is given, a single-node
// client otherwise.
func NewRedisFromAddrs(addrs []string, password string, useCluster bool, namespace string, ttl time.Duration) *Redis {
	var rdb redis.UniversalClient
	if useCluster && len(addrs) > 1 {
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    addrs,
			Password: password,
		})
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addrs[0],
			Password: password,
		})
	}
	return NewRedis(rdb, namespace, ttl)
}

func (r *Redis) genKey() string { return r.namespace + ":gen" }

func (r *Redis) generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, r.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache/redis: read generation: %w", err)
	}
	return gen, nil
}

func (r *Redis) dataKey(gen int64, key string) string {
	return r.namespace + ":g" + strconv.FormatInt(gen, 10) + ":" + key
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	gen, err := r.generation(ctx)
	if err != nil {
		return nil, false, err
	}
	v, err := r.client.Get(ctx, r.dataKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache/redis: get: %w", err)
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	gen, err := r.generation(ctx)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.dataKey(gen, key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache/redis: set: %w", err)
	}
	return nil
}

func (r *Redis) InvalidateAll(ctx context.Context) error {
	if err := r.client.Incr(ctx, r.genKey()).Err(); err != nil {
		return fmt.Errorf("cache/redis: bump generation: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
