package watchlist

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sudo-simon/amazon-scraper-bot/internal/models"
	"github.com/sudo-simon/amazon-scraper-bot/internal/storage"
)

// notifyDropThreshold is the absolute aggregate price drop (in currency units,
// not percent) that triggers a notification on its own.
const notifyDropThreshold = 5.0

// maxConcurrentFetches bounds the parallel fetches of an update pass.
const maxConcurrentFetches = 10

// Watchlist is a named, sorted collection of tracked products. The products
// slice is kept ordered by effective key at all times, and Total always equals
// the sum of the current prices.
type Watchlist struct {
	Name        string
	TargetPrice *float64
	LastTotal   *float64
	Total       float64

	products []*Product
	fetcher  PriceFetcher
	retries  int
}

func New(name string, targetPrice *float64, fetcher PriceFetcher, fetchRetries int) *Watchlist {
	return &Watchlist{
		Name:        name,
		TargetPrice: targetPrice,
		fetcher:     fetcher,
		retries:     fetchRetries,
	}
}

// FromRecord rebuilds a watchlist from its persisted form. No fetches happen
// here; products come back exactly as stored, re-sorted by effective key.
func FromRecord(name string, rec models.WatchlistRecord, fetcher PriceFetcher, fetchRetries int) *Watchlist {
	wl := &Watchlist{
		Name:        name,
		TargetPrice: rec.TargetPrice,
		LastTotal:   rec.LastTotal,
		Total:       rec.Total,
		products:    make([]*Product, 0, len(rec.Products)),
		fetcher:     fetcher,
		retries:     fetchRetries,
	}

	for _, pr := range rec.Products {
		wl.products = append(wl.products, &Product{
			URL:       pr.URL,
			Name:      pr.Name,
			FullName:  pr.FullName,
			LastPrice: pr.LastPrice,
			Price:     pr.Price,
		})
	}
	sort.Slice(wl.products, func(i, j int) bool {
		return wl.products[i].Key() < wl.products[j].Key()
	})

	return wl
}

// ToRecord returns the persisted form of the watchlist.
func (wl *Watchlist) ToRecord() models.WatchlistRecord {
	rec := models.WatchlistRecord{
		Products:    make([]models.ProductRecord, 0, len(wl.products)),
		TargetPrice: wl.TargetPrice,
		LastTotal:   wl.LastTotal,
		Total:       wl.Total,
	}
	for _, p := range wl.products {
		rec.Products = append(rec.Products, models.ProductRecord{
			Name:      p.Name,
			FullName:  p.FullName,
			URL:       p.URL,
			LastPrice: p.LastPrice,
			Price:     p.Price,
		})
	}
	return rec
}

// find binary-searches the sorted products slice by effective key.
// Bounds are inclusive and narrowing is mid±1; when the key is absent the
// returned index is the insertion point that keeps the slice sorted.
func (wl *Watchlist) find(key string) (int, bool) {
	low, high := 0, len(wl.products)-1
	for low <= high {
		mid := (low + high) / 2
		switch cmp := strings.Compare(key, wl.products[mid].Key()); {
		case cmp == 0:
			return mid, true
		case cmp < 0:
			high = mid - 1
		default:
			low = mid + 1
		}
	}
	return low, false
}

// AddProduct fetches the product at url and inserts it preserving sort order.
// Effective keys are unique within a watchlist; adding a product whose key is
// already tracked fails and leaves the collection untouched.
// Returns the new product's effective key.
func (wl *Watchlist) AddProduct(ctx context.Context, url, name string) (string, error) {
	p, err := newProduct(ctx, wl.fetcher, wl.retries, url, name)
	if err != nil {
		return "", err
	}

	key := p.Key()
	idx, found := wl.find(key)
	if found {
		return "", storage.ErrDuplicateProduct
	}

	wl.products = append(wl.products, nil)
	copy(wl.products[idx+1:], wl.products[idx:])
	wl.products[idx] = p
	wl.Total += p.Price

	return key, nil
}

// RemoveProduct removes the product with the given effective key and subtracts
// its price from the total. Absence is reported as found=false, not an error;
// the caller decides whether that is a failure.
func (wl *Watchlist) RemoveProduct(key string) bool {
	idx, found := wl.find(key)
	if !found {
		return false
	}

	wl.Total -= wl.products[idx].Price
	wl.products = append(wl.products[:idx], wl.products[idx+1:]...)

	return true
}

// FindProduct returns the index of the product with the given effective key.
func (wl *Watchlist) FindProduct(key string) (int, bool) {
	idx, found := wl.find(key)
	if !found {
		return 0, false
	}
	return idx, true
}

// Products returns the tracked products in key order.
func (wl *Watchlist) Products() []*Product {
	return wl.products
}

// UpdatePrices refreshes every product and reports whether the watchlist
// qualifies for a notification: either the total fell to the target price or
// the aggregate drop reached the absolute threshold. Fetches run concurrently;
// the total bookkeeping is applied once after all of them complete. A product
// whose refresh fails keeps its previous price and contributes no difference;
// failed counts the skipped products.
func (wl *Watchlist) UpdatePrices(ctx context.Context) (notify bool, failed int) {
	if len(wl.products) == 0 {
		return false, 0
	}

	diffs := make([]float64, len(wl.products))
	errs := make([]error, len(wl.products))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentFetches)
	for i, p := range wl.products {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, p *Product) {
			defer wg.Done()
			defer func() { <-sem }()
			diffs[i], errs[i] = p.RefreshPrice(ctx, wl.fetcher, wl.retries)
		}(i, p)
	}
	wg.Wait()

	totalDiff := 0.0
	for i := range diffs {
		if errs[i] != nil {
			failed++
			continue
		}
		totalDiff += diffs[i]
	}

	last := wl.Total
	wl.LastTotal = &last
	wl.Total -= totalDiff

	if wl.TargetPrice != nil && wl.Total <= *wl.TargetPrice {
		return true, failed
	}
	if totalDiff >= notifyDropThreshold {
		return true, failed
	}
	return false, failed
}

// String renders the watchlist block used in digest messages.
func (wl *Watchlist) String() string {
	var b strings.Builder
	b.WriteString(wl.Name + ":\n")
	for _, p := range wl.products {
		fmt.Fprintf(&b, "\n%s\n%.2f €\n%s\n", p.Key(), p.Price, p.URL)
	}
	fmt.Fprintf(&b, "\nTotal: %.2f €\n", wl.Total)
	if wl.TargetPrice != nil {
		fmt.Fprintf(&b, "Target: %.2f €\n", *wl.TargetPrice)
	}
	return b.String()
}
