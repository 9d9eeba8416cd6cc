package pack

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// Cache is a Redis-backed hot cache for nearest-pack lookups. Entries are
// short-lived; a freshly generated pack becomes visible after the TTL at
// the latest.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ nearestCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(catalogVideoID int64, desiredSize int) string {
	return fmt.Sprintf("questionpack:%d:%d", catalogVideoID, desiredSize)
}

func (c *Cache) Get(ctx context.Context, catalogVideoID int64, desiredSize int) (*Pack, error) {
	data, err := c.client.Get(ctx, c.key(catalogVideoID, desiredSize)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var p Pack
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Cache) Set(ctx context.Context, catalogVideoID int64, desiredSize int, p *Pack) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(catalogVideoID, desiredSize), data, c.ttl).Err()
}
