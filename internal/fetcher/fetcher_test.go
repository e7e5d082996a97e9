package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const productPage = `<html><body>
<span id="productTitle"> Some Mechanical Keyboard </span>
<span class="a-price-whole">59,</span><span class="a-price-fraction">99</span>
</body></html>`

func TestFetchParsesProductPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPage)
	}))
	defer srv.Close()

	f := NewAmazon(5 * time.Second)

	title, price, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if title != "Some Mechanical Keyboard" {
		t.Fatalf("title = %q", title)
	}
	if math.Abs(price-59.99) > 1e-6 {
		t.Fatalf("price = %v, want 59.99", price)
	}
}

func TestFetchUnparsablePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>captcha</p></body></html>")
	}))
	defer srv.Close()

	f := NewAmazon(5 * time.Second)

	if _, _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, ErrPageNotParsable) {
		t.Fatalf("expected ErrPageNotParsable, got %v", err)
	}
}

func TestFetchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewAmazon(5 * time.Second)
	if _, _, err := f.Fetch(ctx, "https://example.com"); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		whole, cents string
		want         float64
		wantErr      bool
	}{
		{whole: "59,", cents: "99", want: 59.99},
		{whole: "59", cents: "99", want: 59.99},
		{whole: "1234,", cents: "50", want: 1234.50},
		{whole: "8,", cents: "00", want: 8.0},
		{whole: "8", cents: "", want: 8.0},
		{whole: "abc", cents: "99", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parsePrice(tt.whole, tt.cents)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parsePrice(%q, %q): expected error", tt.whole, tt.cents)
			}
			continue
		}
		if err != nil {
			t.Errorf("parsePrice(%q, %q): %v", tt.whole, tt.cents, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("parsePrice(%q, %q) = %v, want %v", tt.whole, tt.cents, got, tt.want)
		}
	}
}
