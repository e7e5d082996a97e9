package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/sudo-simon/amazon-scraper-bot/internal/models"
)

// Store persists the whole record set as a single JSON document.
// Every write replaces the full document; there are no partial updates.
type Store struct {
	path string
}

func New(path string) (*Store, error) {
	const op = "storage.jsonfile.New"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			return nil, fmt.Errorf("%s: create document: %w", op, err)
		}
	}

	return &Store{path: path}, nil
}

// Load reads the full document. User ids are stored as stringified integers.
func (s *Store) Load() (models.Document, error) {
	const op = "storage.jsonfile.Load"

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	raw := make(map[string]map[string]models.WatchlistRecord)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: decode document: %w", op, err)
	}

	doc := make(models.Document, len(raw))
	for key, watchlists := range raw {
		userID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad user key %q: %w", op, key, err)
		}
		if watchlists == nil {
			watchlists = make(map[string]models.WatchlistRecord)
		}
		doc[userID] = watchlists
	}

	return doc, nil
}

// Save writes the full document back.
func (s *Store) Save(doc models.Document) error {
	const op = "storage.jsonfile.Save"

	raw := make(map[string]map[string]models.WatchlistRecord, len(doc))
	for userID, watchlists := range doc {
		raw[strconv.FormatInt(userID, 10)] = watchlists
	}

	data, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		return fmt.Errorf("%s: encode document: %w", op, err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
