package store

import (
	"context"
	"strconv"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	redisdb "github.com/aimankahim/mcqsbank/backend/go/internal/database/redis"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/util"

	"github.com/go-redis/redis/v8"
)

// OTPStore 保存短期有效的验证码与重置令牌。过期或不存在的键返回 NotFound。
type OTPStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	// Incr 把计数加一并返回新值。键不存在时从 0 开始，ttl 只在创建时设置。
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisOTPStore 是基于 Redis 的 OTPStore。
type RedisOTPStore struct {
	client *redis.Client
}

// NewRedisOTPStore 创建一个 RedisOTPStore。
func NewRedisOTPStore(client *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{client: client}
}

func (r *RedisOTPStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, redisdb.Key("auth", key), value, ttl).Err(); err != nil {
		return apperr.Wrap(apperr.ServiceUnavailable, "failed to store verification code", err)
	}
	return nil
}

func (r *RedisOTPStore) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, redisdb.Key("auth", key)).Result()
	if err == redis.Nil {
		return "", apperr.New(apperr.NotFound, "code not found or expired")
	}
	if err != nil {
		return "", apperr.Wrap(apperr.ServiceUnavailable, "failed to read verification code", err)
	}
	return v, nil
}

func (r *RedisOTPStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = redisdb.Key("auth", k)
	}
	return r.client.Del(ctx, full...).Err()
}

func (r *RedisOTPStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	full := redisdb.Key("auth", key)
	n, err := r.client.Incr(ctx, full).Result()
	if err != nil {
		return 0, apperr.Wrap(apperr.ServiceUnavailable, "failed to count verification attempts", err)
	}
	if n == 1 {
		if err := r.client.Expire(ctx, full, ttl).Err(); err != nil {
			return n, apperr.Wrap(apperr.ServiceUnavailable, "failed to count verification attempts", err)
		}
	}
	return n, nil
}

type otpEntry struct {
	value   string
	expires time.Time
}

// MemoryOTPStore 是进程内的 OTPStore，用于未配置 Redis 的单机部署和测试。
type MemoryOTPStore struct {
	cache *util.LRUCache[string, otpEntry]
	now   func() time.Time
}

// NewMemoryOTPStore 创建一个最多保存 capacity 个键的 MemoryOTPStore。
func NewMemoryOTPStore(capacity int) (*MemoryOTPStore, error) {
	cache, err := util.NewWithConfig(util.CacheConfig[string, otpEntry]{Capacity: capacity})
	if err != nil {
		return nil, err
	}
	return &MemoryOTPStore{cache: cache, now: time.Now}, nil
}

func (m *MemoryOTPStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.cache.Put(key, otpEntry{value: value, expires: m.now().Add(ttl)}, 1)
	return nil
}

func (m *MemoryOTPStore) Get(ctx context.Context, key string) (string, error) {
	e, ok := m.cache.Get(key)
	if !ok || !m.now().Before(e.expires) {
		m.cache.Delete(key)
		return "", apperr.New(apperr.NotFound, "code not found or expired")
	}
	return e.value, nil
}

func (m *MemoryOTPStore) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		m.cache.Delete(k)
	}
	return nil
}

func (m *MemoryOTPStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	now := m.now()
	e, ok := m.cache.Get(key)
	if !ok || !now.Before(e.expires) {
		e = otpEntry{value: "0", expires: now.Add(ttl)}
	}
	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "counter holds a non-numeric value", err)
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	m.cache.Put(key, e, 1)
	return n, nil
}
