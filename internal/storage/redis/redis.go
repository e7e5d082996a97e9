package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sudo-simon/amazon-scraper-bot/internal/storage"

	"github.com/redis/go-redis/v9"
)

// PriceCache caches scraped prices by product url with a short TTL, so that
// repeated interactive adds do not hammer the product pages.
type PriceCache struct {
	client     *redis.Client
	DefaultTTL time.Duration
}

type cachedPrice struct {
	FullName string  `json:"fullName"`
	Price    float64 `json:"price"`
}

func New(ctx context.Context, address string, db int, defaultTTL time.Duration) (*PriceCache, error) {
	const op = "storage.redis.New"

	rdb := redis.NewClient(&redis.Options{
		Addr: address,
		DB:   db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PriceCache{
		client:     rdb,
		DefaultTTL: defaultTTL,
	}, nil
}

func (c *PriceCache) Get(ctx context.Context, url string) (string, float64, error) {
	const op = "storage.redis.Get"

	data, err := c.client.Get(ctx, key(url)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return "", 0, storage.ErrCacheMiss
		}
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}

	var cached cachedPrice
	if err := json.Unmarshal(data, &cached); err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}

	return cached.FullName, cached.Price, nil
}

func (c *PriceCache) Set(ctx context.Context, url, fullName string, price float64) error {
	const op = "storage.redis.Set"

	data, err := json.Marshal(cachedPrice{FullName: fullName, Price: price})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.client.Set(ctx, key(url), data, c.DefaultTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *PriceCache) Close() {
	c.client.Close()
}

func key(url string) string {
	return "price:" + url
}
