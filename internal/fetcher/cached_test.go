package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/sudo-simon/amazon-scraper-bot/internal/storage"
)

type memCache struct {
	names  map[string]string
	prices map[string]float64
	broken bool
}

func newMemCache() *memCache {
	return &memCache{names: map[string]string{}, prices: map[string]float64{}}
}

func (c *memCache) Get(_ context.Context, url string) (string, float64, error) {
	if c.broken {
		return "", 0, errors.New("cache down")
	}
	name, ok := c.names[url]
	if !ok {
		return "", 0, storage.ErrCacheMiss
	}
	return name, c.prices[url], nil
}

func (c *memCache) Set(_ context.Context, url, fullName string, price float64) error {
	if c.broken {
		return errors.New("cache down")
	}
	c.names[url] = fullName
	c.prices[url] = price
	return nil
}

type countingFetcher struct {
	calls int
	name  string
	price float64
}

func (f *countingFetcher) Fetch(context.Context, string) (string, float64, error) {
	f.calls++
	return f.name, f.price, nil
}

func TestCachedFetchBackfillsAndHits(t *testing.T) {
	cache := newMemCache()
	next := &countingFetcher{name: "Thing", price: 12.5}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewCached(cache, next, log)

	for i := 0; i < 3; i++ {
		name, price, err := c.Fetch(context.Background(), "https://example.com/x")
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if name != "Thing" || price != 12.5 {
			t.Fatalf("got (%q, %v)", name, price)
		}
	}

	if next.calls != 1 {
		t.Fatalf("underlying fetcher called %d times, want 1", next.calls)
	}
}

func TestCachedFetchSurvivesBrokenCache(t *testing.T) {
	cache := newMemCache()
	cache.broken = true
	next := &countingFetcher{name: "Thing", price: 12.5}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewCached(cache, next, log)

	name, price, err := c.Fetch(context.Background(), "https://example.com/x")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if name != "Thing" || price != 12.5 {
		t.Fatalf("got (%q, %v)", name, price)
	}
}
