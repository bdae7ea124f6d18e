package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisdb "github.com/aimankahim/mcqsbank/backend/go/internal/database/redis"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/interfaces"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps each conversation in a Redis list that expires after ttl of inactivity.
type RedisStore struct {
	client   *redis.Client
	maxTurns int
	ttl      time.Duration
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client *redis.Client, maxTurns int, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, maxTurns: maxTurns, ttl: ttl}
}

func (s *RedisStore) key(key string) string {
	return redisdb.Key("chat", key)
}

// Append pushes the turns, trims the list and refreshes the expiry in one pipeline.
func (s *RedisStore) Append(ctx context.Context, key string, turns ...interfaces.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([]interface{}, len(turns))
	for i, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode chat turn: %w", err)
		}
		values[i] = b
	}

	k := s.key(key)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, k, values...)
	if s.maxTurns > 0 {
		pipe.LTrim(ctx, k, int64(-s.maxTurns), -1)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, k, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append chat history: %w", err)
	}
	return nil
}

// Recent returns the last n turns in chronological order.
func (s *RedisStore) Recent(ctx context.Context, key string, n int) ([]interfaces.Turn, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	raw, err := s.client.LRange(ctx, s.key(key), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}
	turns := make([]interfaces.Turn, 0, len(raw))
	for _, r := range raw {
		var t interfaces.Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Clear deletes the conversation.
func (s *RedisStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// compile-time check to ensure RedisStore implements the HistoryStore interface
var _ interfaces.HistoryStore = (*RedisStore)(nil)
