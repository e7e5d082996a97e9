package fetcher

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sudo-simon/amazon-scraper-bot/internal/storage"

	sl "github.com/sudo-simon/amazon-scraper-bot/internal/lib/logger"
)

// Cache is a short-lived url -> (title, price) cache in front of the scraper.
type Cache interface {
	Get(ctx context.Context, url string) (fullName string, price float64, err error)
	Set(ctx context.Context, url, fullName string, price float64) error
}

// Cached is a read-through wrapper: cache hit short-circuits the scrape,
// a miss falls through and backfills the cache. Cache failures never fail
// the fetch itself.
type Cached struct {
	cache Cache
	next  PriceFetcher
	log   *slog.Logger
}

// PriceFetcher mirrors the watchlist-side fetch contract.
type PriceFetcher interface {
	Fetch(ctx context.Context, url string) (string, float64, error)
}

func NewCached(cache Cache, next PriceFetcher, log *slog.Logger) *Cached {
	return &Cached{
		cache: cache,
		next:  next,
		log:   log,
	}
}

func (c *Cached) Fetch(ctx context.Context, url string) (string, float64, error) {
	fullName, price, err := c.cache.Get(ctx, url)
	switch {
	case err == nil:
		return fullName, price, nil

	case !errors.Is(err, storage.ErrCacheMiss):
		c.log.Warn("price cache unavailable", sl.Err(err))
	}

	fullName, price, err = c.next.Fetch(ctx, url)
	if err != nil {
		return "", 0, err
	}

	if err := c.cache.Set(ctx, url, fullName, price); err != nil {
		c.log.Warn("failed to cache price", sl.Err(err))
	}

	return fullName, price, nil
}
