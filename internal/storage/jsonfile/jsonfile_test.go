package jsonfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sudo-simon/amazon-scraper-bot/internal/models"
)

func TestNewCreatesEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")

	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	doc, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc) != 0 {
		t.Fatalf("expected empty document, got %d entries", len(doc))
	}
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	name := "keyboard"
	last := 59.99
	target := 100.0
	doc := models.Document{
		42: {
			"tech": models.WatchlistRecord{
				Products: []models.ProductRecord{{
					Name:      &name,
					FullName:  "Some Mechanical Keyboard",
					URL:       "https://example.com/kb",
					LastPrice: &last,
					Price:     49.99,
				}},
				TargetPrice: &target,
				Total:       49.99,
			},
		},
		7: {},
	}

	if err := s.Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("users = %d, want 2", len(got))
	}
	if got[7] == nil || len(got[7]) != 0 {
		t.Fatalf("empty user entry not preserved: %v", got[7])
	}
	rec, ok := got[42]["tech"]
	if !ok {
		t.Fatalf("watchlist missing after round trip")
	}
	if len(rec.Products) != 1 {
		t.Fatalf("products = %d, want 1", len(rec.Products))
	}
	p := rec.Products[0]
	if p.Name == nil || *p.Name != name || p.Price != 49.99 || p.LastPrice == nil || *p.LastPrice != last {
		t.Fatalf("product corrupted: %+v", p)
	}
	if rec.TargetPrice == nil || *rec.TargetPrice != target {
		t.Fatalf("targetPrice corrupted: %v", rec.TargetPrice)
	}
}

func TestLoadRejectsBadUserKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	if err := os.WriteFile(path, []byte(`{"not-a-number": {}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Load(); err == nil {
		t.Fatalf("expected error for non-numeric user key")
	}
}
