package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/switchtrace/switchtrace/pkg/util"
)

// DefaultRedisKey is the list the Redis store appends to.
const DefaultRedisKey = "switchtrace:history"

// RedisStore keeps the most recent records in a capped Redis list, so
// several CLI users and the API server can share one history.
type RedisStore struct {
	client *redis.Client
	key    string
	max    int64
}

// NewRedisStore connects to addr and verifies the server answers.
// max caps the list length; 0 keeps everything.
func NewRedisStore(ctx context.Context, addr, key string, max int64) (*RedisStore, error) {
	if key == "" {
		key = DefaultRedisKey
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStore{client: client, key: key, max: max}, nil
}

// Append pushes r onto the list and trims it to the cap.
func (s *RedisStore) Append(ctx context.Context, r *Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key, data)
	if s.max > 0 {
		pipe.LTrim(ctx, s.key, -s.max, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append: %w", err)
	}
	return nil
}

// Query loads the list and filters it client-side.
func (s *RedisStore) Query(ctx context.Context, f Filter) ([]*Record, error) {
	vals, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis query: %w", err)
	}

	records := make([]*Record, 0, len(vals))
	for i, v := range vals {
		var r Record
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			util.Warnf("history: skipping malformed redis entry %d: %v", i, err)
			continue
		}
		if f.Match(&r) {
			records = append(records, &r)
		}
	}

	sortNewestFirst(records)
	return f.page(records), nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
