package catalogclient

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-catalog-orders/internal/redisx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"time"
)

// RedisCache keeps lookup snapshots under catalog:snapshot:{id}.
type RedisCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func snapshotKey(id string) string { return fmt.Sprintf(redisx.KeyProductSnapshot, id) }

func (c *RedisCache) GetMany(ctx context.Context, ids []string) (map[string]ProductSnapshot, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = snapshotKey(id)
	}
	vals, err := c.Redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "mget snapshots")
	}
	out := make(map[string]ProductSnapshot, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var s ProductSnapshot
		if json.Unmarshal([]byte(raw), &s) == nil {
			out[ids[i]] = s
		}
	}
	return out, nil
}

func (c *RedisCache) SetMany(ctx context.Context, snaps []ProductSnapshot) error {
	if c.TTL <= 0 {
		return nil
	}
	_, err := c.Redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, s := range snaps {
			b, err := json.Marshal(s)
			if err != nil {
				return err
			}
			p.Set(ctx, snapshotKey(s.ID), b, c.TTL)
		}
		return nil
	})
	return errors.Wrap(err, "set snapshots")
}

func (c *RedisCache) Evict(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = snapshotKey(id)
	}
	return errors.Wrap(c.Redis.Del(ctx, keys...).Err(), "evict snapshots")
}
