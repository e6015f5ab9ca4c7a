package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	rstore "github.com/eko/gocache/store/ristretto/v4"
)

// Cache is a gocache manager over ristretto. Entries cost 1 each.
type Cache struct {
	*cache.Cache[[]byte]
	client *ristretto.Cache
}

func NewCache() (*Cache, error) {
	rcache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        1000000,
		MaxCost:            100000,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	store_ := rstore.NewRistretto(rcache, store.WithCost(1))
	manager := cache.New[[]byte](store_)
	return &Cache{Cache: manager, client: rcache}, nil
}

// SetJSON stores v and waits for ristretto's write buffer so the value is
// visible to the next Get.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err = c.Set(ctx, key, data, store.WithExpiration(ttl), store.WithCost(1)); err != nil {
		return err
	}
	c.client.Wait()
	return nil
}

// GetJSON reports false on a miss or an undecodable entry.
func (c *Cache) GetJSON(ctx context.Context, key string, v interface{}) bool {
	data, err := c.Get(ctx, key)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (c *Cache) Invalidate(ctx context.Context, key string) {
	_ = c.Delete(ctx, key)
	c.client.Wait()
}

func (c *Cache) Close() {
	c.client.Close()
}
