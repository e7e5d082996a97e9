package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// ErrPageNotParsable is returned when the product page is missing the price
// or title markup this fetcher relies on.
var ErrPageNotParsable = errors.New("product page is not fit to be scraped")

const userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

// Amazon scrapes an Amazon product page for its title and current price.
// A single Fetch is one attempt; the retry policy lives in the caller.
type Amazon struct {
	timeout time.Duration
}

func NewAmazon(timeout time.Duration) *Amazon {
	return &Amazon{timeout: timeout}
}

// Fetch visits the product page and extracts span#productTitle plus the
// a-price-whole / a-price-fraction pair.
func (a *Amazon) Fetch(ctx context.Context, url string) (string, float64, error) {
	const op = "fetcher.Amazon.Fetch"

	if err := ctx.Err(); err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}

	c := colly.NewCollector(colly.UserAgent(userAgent))
	c.SetRequestTimeout(a.timeout)

	var title, whole, cents string
	c.OnHTML("span#productTitle", func(e *colly.HTMLElement) {
		if title == "" {
			title = strings.TrimSpace(e.Text)
		}
	})
	c.OnHTML("span.a-price-whole", func(e *colly.HTMLElement) {
		if whole == "" {
			whole = strings.TrimSpace(e.Text)
		}
	})
	c.OnHTML("span.a-price-fraction", func(e *colly.HTMLElement) {
		if cents == "" {
			cents = strings.TrimSpace(e.Text)
		}
	})

	if err := c.Visit(url); err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}
	c.Wait()

	if title == "" || whole == "" {
		return "", 0, fmt.Errorf("%s: %w", op, ErrPageNotParsable)
	}

	price, err := parsePrice(whole, cents)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}

	return title, price, nil
}

// parsePrice joins the whole and fractional parts of an Amazon price.
// The whole part uses a comma as decimal separator ("59," + "99" -> 59.99).
func parsePrice(whole, cents string) (float64, error) {
	s := strings.ReplaceAll(whole, ",", ".")
	if !strings.HasSuffix(s, ".") && cents != "" {
		s += "."
	}
	s += cents

	price, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad price %q", ErrPageNotParsable, whole+cents)
	}

	return price, nil
}
