package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gokaycavdar/go-vpnsense/pkg/models"
)

// DefaultRedisKey is the list holding serialized verdicts.
const DefaultRedisKey = "vpnsense:verdicts"

// RedisStore keeps history in a capped Redis list, newest at the head.
type RedisStore struct {
	client   redis.UniversalClient
	key      string
	capacity int64
}

// NewRedisStore wraps an existing client. An empty key selects DefaultRedisKey.
func NewRedisStore(client redis.UniversalClient, key string, capacity int) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RedisStore{client: client, key: key, capacity: int64(capacity)}
}

// DialRedis connects to addr and checks the connection with PING.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisStore) Save(ctx context.Context, v *models.Verdict) error {
	if v == nil {
		return fmt.Errorf("storage: nil verdict")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.key, data)
		pipe.LTrim(ctx, r.key, 0, r.capacity-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save verdict %s: %w", v.ID, err)
	}
	return nil
}

func (r *RedisStore) Recent(ctx context.Context, n int) ([]models.Verdict, error) {
	if n <= 0 || int64(n) > r.capacity {
		n = int(r.capacity)
	}

	raw, err := r.client.LRange(ctx, r.key, 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	out := make([]models.Verdict, 0, len(raw))
	for _, item := range raw {
		var v models.Verdict
		if err := json.Unmarshal([]byte(item), &v); err != nil {
			return nil, fmt.Errorf("decode verdict: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
