package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sudo-simon/amazon-scraper-bot/internal/storage"
	"github.com/sudo-simon/amazon-scraper-bot/internal/storage/authcsv"
	"github.com/sudo-simon/amazon-scraper-bot/internal/storage/jsonfile"
)

const (
	adminID    = int64(1)
	aliceID    = int64(100)
	strangerID = int64(666)
)

type fakeFetcher struct {
	mu     sync.Mutex
	prices map[string]float64
	fail   bool
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", 0, errors.New("connection refused")
	}
	return "Full title of " + url, f.prices[url], nil
}

func (f *fakeFetcher) setPrice(url string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[url] = price
}

type env struct {
	store   *Store
	fetcher *fakeFetcher
	docPath string
}

func newTestStore(t *testing.T) *env {
	t.Helper()

	dir := t.TempDir()
	docPath := filepath.Join(dir, "database.json")
	csvPath := filepath.Join(dir, "authorized_users.csv")

	documents, err := jsonfile.New(docPath)
	if err != nil {
		t.Fatalf("jsonfile.New: %v", err)
	}
	authList, err := authcsv.New(csvPath)
	if err != nil {
		t.Fatalf("authcsv.New: %v", err)
	}

	f := &fakeFetcher{prices: map[string]float64{}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := New(log, documents, authList, f, 2, adminID, nil)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}

	return &env{store: s, fetcher: f, docPath: docPath}
}

func (e *env) grantAlice(t *testing.T) {
	t.Helper()
	if err := e.store.GrantUser(adminID, aliceID, "Alice"); err != nil {
		t.Fatalf("GrantUser: %v", err)
	}
}

func (e *env) docBytes(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(e.docPath)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	return data
}

func TestAdminBootstrapped(t *testing.T) {
	e := newTestStore(t)

	// the admin is implicitly authorized and must already have an entry
	if _, err := e.store.Watchlists(adminID); !errors.Is(err, storage.ErrEmptyProfile) {
		t.Fatalf("expected ErrEmptyProfile for fresh admin, got %v", err)
	}
}

func TestUnauthorizedNeverLeaksExistence(t *testing.T) {
	e := newTestStore(t)
	e.grantAlice(t)
	if err := e.store.AddWatchlist(aliceID, "wishlist", nil); err != nil {
		t.Fatalf("AddWatchlist: %v", err)
	}

	// a stranger probing alice's real watchlist must see Unauthorized,
	// never WatchlistNotFound
	if _, err := e.store.Products(strangerID, "wishlist"); !errors.Is(err, storage.ErrUnauthorized) {
		t.Fatalf("Products: expected ErrUnauthorized, got %v", err)
	}
	if err := e.store.RemoveWatchlist(strangerID, "wishlist"); !errors.Is(err, storage.ErrUnauthorized) {
		t.Fatalf("RemoveWatchlist: expected ErrUnauthorized, got %v", err)
	}
	if err := e.store.RemoveWatchlist(strangerID, "no-such-list"); !errors.Is(err, storage.ErrUnauthorized) {
		t.Fatalf("RemoveWatchlist(absent): expected ErrUnauthorized, got %v", err)
	}
	if _, err := e.store.UpdateAll(context.Background(), strangerID); !errors.Is(err, storage.ErrUnauthorized) {
		t.Fatalf("UpdateAll: expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthorizedUserWithoutEntryIsAnomaly(t *testing.T) {
	e := newTestStore(t)
	e.grantAlice(t)

	// simulate corruption: alice stays in the auth list but loses her entry
	doc, err := jsonfile.New(e.docPath)
	if err != nil {
		t.Fatalf("jsonfile.New: %v", err)
	}
	loaded, err := doc.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	delete(loaded, aliceID)
	if err := doc.Save(loaded); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// UpdateAll reloads from disk and must surface the anomaly
	if _, err := e.store.UpdateAll(context.Background(), aliceID); !errors.Is(err, storage.ErrUserMissing) {
		t.Fatalf("expected ErrUserMissing, got %v", err)
	}
}

func TestAddWatchlistDuplicate(t *testing.T) {
	e := newTestStore(t)
	e.grantAlice(t)

	target := 75.0
	if err := e.store.AddWatchlist(aliceID, "tech", &target); err != nil {
		t.Fatalf("AddWatchlist: %v", err)
	}
	e.fetcher.setPrice("https://example.com/kb", 49.99)
	if _, err := e.store.AddProduct(context.Background(), aliceID, "tech", "https://example.com/kb", "keyboard"); err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	err := e.store.AddWatchlist(aliceID, "tech", nil)
	if !errors.Is(err, storage.ErrDuplicateWatchlist) {
		t.Fatalf("expected ErrDuplicateWatchlist, got %v", err)
	}

	// the existing watchlist is untouched
	products, err := e.store.Products(aliceID, "tech")
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	if len(products) != 1 || products[0] != "keyboard" {
		t.Fatalf("existing watchlist was modified: %v", products)
	}
}

func TestFailedRemovalsLeaveDocumentUnchanged(t *testing.T) {
	e := newTestStore(t)
	e.grantAlice(t)
	if err := e.store.AddWatchlist(aliceID, "tech", nil); err != nil {
		t.Fatalf("AddWatchlist: %v", err)
	}

	before := e.docBytes(t)

	if err := e.store.RemoveWatchlist(aliceID, "no-such-list"); !errors.Is(err, storage.ErrWatchlistNotFound) {
		t.Fatalf("expected ErrWatchlistNotFound, got %v", err)
	}
	if err := e.store.RemoveProduct(aliceID, "tech", "no-such-product"); !errors.Is(err, storage.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := e.store.RemoveProduct(aliceID, "no-such-list", "x"); !errors.Is(err, storage.ErrWatchlistNotFound) {
		t.Fatalf("expected ErrWatchlistNotFound, got %v", err)
	}

	after := e.docBytes(t)
	if string(before) != string(after) {
		t.Fatalf("failed removals modified the persisted document")
	}
}

func TestAddProductPropagatesFetchFailure(t *testing.T) {
	e := newTestStore(t)
	e.grantAlice(t)
	if err := e.store.AddWatchlist(aliceID, "tech", nil); err != nil {
		t.Fatalf("AddWatchlist: %v", err)
	}

	before := e.docBytes(t)
	e.fetcher.fail = true

	_, err := e.store.AddProduct(context.Background(), aliceID, "tech", "https://example.com/x", "")
	if !errors.Is(err, storage.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if string(before) != string(e.docBytes(t)) {
		t.Fatalf("failed add modified the persisted document")
	}
}

func TestProductLifecyclePersists(t *testing.T) {
	e := newTestStore(t)
	e.grantAlice(t)
	if err := e.store.AddWatchlist(aliceID, "tech", nil); err != nil {
		t.Fatalf("AddWatchlist: %v", err)
	}

	e.fetcher.setPrice("https://example.com/kb", 49.99)
	key, err := e.store.AddProduct(context.Background(), aliceID, "tech", "https://example.com/kb", "")
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}
	// no user label: the scraped title is the effective key
	if key != "Full title of https://example.com/kb" {
		t.Fatalf("unexpected key %q", key)
	}

	// a second store instance over the same files sees the product
	documents, err := jsonfile.New(e.docPath)
	if err != nil {
		t.Fatalf("jsonfile.New: %v", err)
	}
	authList, err := authcsv.New(filepath.Join(filepath.Dir(e.docPath), "authorized_users.csv"))
	if err != nil {
		t.Fatalf("authcsv.New: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reopened, err := New(log, documents, authList, e.fetcher, 2, adminID, nil)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}

	products, err := reopened.Products(aliceID, "tech")
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	if len(products) != 1 || products[0] != key {
		t.Fatalf("persisted products = %v, want [%q]", products, key)
	}

	if err := reopened.RemoveProduct(aliceID, "tech", key); err != nil {
		t.Fatalf("RemoveProduct: %v", err)
	}
	if _, err := reopened.Products(aliceID, "tech"); !errors.Is(err, storage.ErrEmptyWatchlist) {
		t.Fatalf("expected ErrEmptyWatchlist, got %v", err)
	}
}

func TestUpdateAllBuildsDigest(t *testing.T) {
	e := newTestStore(t)
	e.grantAlice(t)
	if err := e.store.AddWatchlist(aliceID, "dropping", nil); err != nil {
		t.Fatalf("AddWatchlist: %v", err)
	}
	if err := e.store.AddWatchlist(aliceID, "stable", nil); err != nil {
		t.Fatalf("AddWatchlist: %v", err)
	}

	e.fetcher.setPrice("https://example.com/a", 50)
	if _, err := e.store.AddProduct(context.Background(), aliceID, "dropping", "https://example.com/a", "gadget"); err != nil {
		t.Fatalf("AddProduct: %v", err)
	}
	e.fetcher.setPrice("https://example.com/b", 30)
	if _, err := e.store.AddProduct(context.Background(), aliceID, "stable", "https://example.com/b", "widget"); err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	// gadget drops by 10, widget stays put
	e.fetcher.setPrice("https://example.com/a", 40)

	digest, err := e.store.UpdateAll(context.Background(), aliceID)
	if err != nil {
		t.Fatalf("UpdateAll: %v", err)
	}
	if digest == "" {
		t.Fatalf("expected a digest for the dropping watchlist")
	}
	if !strings.Contains(digest, "dropping:") || !strings.Contains(digest, "gadget") {
		t.Fatalf("digest missing updated watchlist: %q", digest)
	}
	if strings.Contains(digest, "stable:") {
		t.Fatalf("digest contains non-qualifying watchlist: %q", digest)
	}

	// a second pass with no movement yields no digest
	digest, err = e.store.UpdateAll(context.Background(), aliceID)
	if err != nil {
		t.Fatalf("UpdateAll: %v", err)
	}
	if digest != "" {
		t.Fatalf("expected empty digest, got %q", digest)
	}
}

func TestGrantAndRevoke(t *testing.T) {
	e := newTestStore(t)

	if err := e.store.GrantUser(aliceID, strangerID, "Mallory"); !errors.Is(err, storage.ErrUnauthorized) {
		t.Fatalf("non-admin grant: expected ErrUnauthorized, got %v", err)
	}

	e.grantAlice(t)
	if err := e.store.GrantUser(adminID, aliceID, "Alice"); !errors.Is(err, storage.ErrUserExists) {
		t.Fatalf("double grant: expected ErrUserExists, got %v", err)
	}

	if _, err := e.store.Watchlists(aliceID); !errors.Is(err, storage.ErrEmptyProfile) {
		t.Fatalf("granted user should have an empty profile, got %v", err)
	}

	users, err := e.store.Users(adminID)
	if err != nil {
		t.Fatalf("Users: %v", err)
	}
	if len(users) != 1 || users[0].ID != aliceID || users[0].Role != authcsv.RoleUser {
		t.Fatalf("unexpected users list: %+v", users)
	}

	if err := e.store.RevokeUser(adminID, aliceID); err != nil {
		t.Fatalf("RevokeUser: %v", err)
	}
	if _, err := e.store.Watchlists(aliceID); !errors.Is(err, storage.ErrUnauthorized) {
		t.Fatalf("revoked user should be unauthorized, got %v", err)
	}
	if err := e.store.RevokeUser(adminID, aliceID); !errors.Is(err, storage.ErrUserMissing) {
		t.Fatalf("double revoke: expected ErrUserMissing, got %v", err)
	}
}

func TestAuthorizedIDsIncludesAdmin(t *testing.T) {
	e := newTestStore(t)
	e.grantAlice(t)

	ids := e.store.AuthorizedIDs()
	if len(ids) != 2 || ids[0] != adminID || ids[1] != aliceID {
		t.Fatalf("AuthorizedIDs = %v, want [%d %d]", ids, adminID, aliceID)
	}
}

func TestTotalsSurviveReload(t *testing.T) {
	e := newTestStore(t)
	e.grantAlice(t)
	if err := e.store.AddWatchlist(aliceID, "tech", nil); err != nil {
		t.Fatalf("AddWatchlist: %v", err)
	}

	e.fetcher.setPrice("https://example.com/a", 10.25)
	e.fetcher.setPrice("https://example.com/b", 5.50)
	if _, err := e.store.AddProduct(context.Background(), aliceID, "tech", "https://example.com/a", "a"); err != nil {
		t.Fatalf("AddProduct: %v", err)
	}
	if _, err := e.store.AddProduct(context.Background(), aliceID, "tech", "https://example.com/b", "b"); err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	documents, err := jsonfile.New(e.docPath)
	if err != nil {
		t.Fatalf("jsonfile.New: %v", err)
	}
	doc, err := documents.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec := doc[aliceID]["tech"]
	if math.Abs(rec.Total-15.75) > 1e-6 {
		t.Fatalf("persisted total = %v, want 15.75", rec.Total)
	}
	if len(rec.Products) != 2 {
		t.Fatalf("persisted products = %d, want 2", len(rec.Products))
	}
}
