package watchlist

import (
	"context"
	"fmt"

	"github.com/sudo-simon/amazon-scraper-bot/internal/storage"
)

// PriceFetcher retrieves the display title and the current price for a product
// page. Implementations must be idempotent and side-effect free so that calls
// can be retried freely.
type PriceFetcher interface {
	Fetch(ctx context.Context, url string) (fullName string, price float64, err error)
}

// Product is a single tracked item. Name is the optional user-supplied label,
// FullName the scraped title; after construction exactly one of them is the
// effective key used for sorting and lookup.
type Product struct {
	URL       string
	Name      *string
	FullName  string
	LastPrice *float64
	Price     float64
}

func newProduct(ctx context.Context, f PriceFetcher, retries int, url, name string) (*Product, error) {
	fullName, price, err := fetchWithRetries(ctx, f, retries, url)
	if err != nil {
		return nil, err
	}

	p := &Product{
		URL:      url,
		FullName: fullName,
		Price:    price,
	}
	if name != "" {
		p.Name = &name
	}

	return p, nil
}

// Key returns the effective key: the user label when present, the scraped
// title otherwise.
func (p *Product) Key() string {
	if p.Name != nil {
		return *p.Name
	}
	return p.FullName
}

// RefreshPrice re-fetches the product and returns the signed difference
// lastPrice - price, so a positive value means the price dropped.
// The scraped title is set on the first successful fetch and never overwritten.
func (p *Product) RefreshPrice(ctx context.Context, f PriceFetcher, retries int) (float64, error) {
	fullName, price, err := fetchWithRetries(ctx, f, retries, p.URL)
	if err != nil {
		return 0, err
	}

	if p.FullName == "" {
		p.FullName = fullName
	}
	last := p.Price
	p.LastPrice = &last
	p.Price = price

	return last - price, nil
}

func (p *Product) String() string {
	return fmt.Sprintf("%s: %.2f €", p.Key(), p.Price)
}

// fetchWithRetries applies the bounded retry policy for unreliable fetches.
// Whatever the underlying failure, the caller sees storage.ErrFetchFailed.
func fetchWithRetries(ctx context.Context, f PriceFetcher, retries int, url string) (string, float64, error) {
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		fullName, price, err := f.Fetch(ctx, url)
		if err == nil {
			return fullName, price, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	return "", 0, fmt.Errorf("%w: %v", storage.ErrFetchFailed, lastErr)
}
