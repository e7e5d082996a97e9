package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/sudo-simon/amazon-scraper-bot/internal/models"
	"github.com/sudo-simon/amazon-scraper-bot/internal/storage"
	"github.com/sudo-simon/amazon-scraper-bot/internal/watchlist"

	sl "github.com/sudo-simon/amazon-scraper-bot/internal/lib/logger"
)

// DocumentStore persists the whole record set, read and written as one unit.
type DocumentStore interface {
	Load() (models.Document, error)
	Save(doc models.Document) error
}

// AuthList is the durable authorization list.
type AuthList interface {
	AuthorizedIDs() ([]int64, error)
	All() ([]models.AuthUser, error)
	Append(userID int64, firstName string) error
	Remove(userID int64) error
}

// PriceRecorder archives fetched price points. Optional collaborator.
type PriceRecorder interface {
	SavePricePoint(ctx context.Context, url string, price float64) error
}

// Store is the multi-tenant watchlist database: every authorized user (and the
// admin) owns exactly one entry mapping watchlist names to their records.
// All operations run under one coarse lock since every mutation rewrites the
// entire persisted document.
type Store struct {
	mu  sync.Mutex
	log *slog.Logger

	adminID    int64
	authorized map[int64]struct{}
	doc        models.Document

	documents DocumentStore
	authList  AuthList
	recorder  PriceRecorder

	fetcher      watchlist.PriceFetcher
	fetchRetries int
}

func New(
	log *slog.Logger,
	documents DocumentStore,
	authList AuthList,
	fetcher watchlist.PriceFetcher,
	fetchRetries int,
	adminID int64,
	recorder PriceRecorder,
) (*Store, error) {
	const op = "store.New"

	s := &Store{
		log:          log,
		adminID:      adminID,
		documents:    documents,
		authList:     authList,
		recorder:     recorder,
		fetcher:      fetcher,
		fetchRetries: fetchRetries,
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// The admin always has a database entry.
	if _, ok := s.doc[adminID]; !ok {
		s.doc[adminID] = make(map[string]models.WatchlistRecord)
		if err := s.documents.Save(s.doc); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return s, nil
}

// load re-reads both the document and the authorization list from disk.
func (s *Store) load() error {
	doc, err := s.documents.Load()
	if err != nil {
		return err
	}

	ids, err := s.authList.AuthorizedIDs()
	if err != nil {
		return err
	}

	s.doc = doc
	s.authorized = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		s.authorized[id] = struct{}{}
	}

	return nil
}

// authorize is always the first check of every operation, so an unauthorized
// caller learns nothing about which records exist.
func (s *Store) authorize(userID int64) error {
	if userID == s.adminID {
		return nil
	}
	if _, ok := s.authorized[userID]; !ok {
		return storage.ErrUnauthorized
	}
	return nil
}

// userRecord returns the user's watchlist map. A missing entry for an
// authorized user is the one state that indicates store corruption.
func (s *Store) userRecord(userID int64) (map[string]models.WatchlistRecord, error) {
	rec, ok := s.doc[userID]
	if !ok {
		s.log.Error("database corruption: authorized user has no entry",
			slog.Int64("user_id", userID),
		)
		return nil, storage.ErrUserMissing
	}
	return rec, nil
}

// AddWatchlist creates an empty watchlist for the user.
func (s *Store) AddWatchlist(userID int64, name string, targetPrice *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(userID); err != nil {
		return err
	}
	userWl, err := s.userRecord(userID)
	if err != nil {
		return err
	}
	if _, ok := userWl[name]; ok {
		return storage.ErrDuplicateWatchlist
	}

	userWl[name] = watchlist.New(name, targetPrice, s.fetcher, s.fetchRetries).ToRecord()
	s.doc[userID] = userWl

	return s.documents.Save(s.doc)
}

// RemoveWatchlist deletes the named watchlist.
func (s *Store) RemoveWatchlist(userID int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(userID); err != nil {
		return err
	}
	userWl, err := s.userRecord(userID)
	if err != nil {
		return err
	}
	if _, ok := userWl[name]; !ok {
		return storage.ErrWatchlistNotFound
	}

	delete(userWl, name)
	s.doc[userID] = userWl

	return s.documents.Save(s.doc)
}

// AddProduct tracks a new product on the named watchlist and returns its
// effective key for user feedback. Fetch failures from the product layer
// propagate to the caller.
func (s *Store) AddProduct(ctx context.Context, userID int64, wlName, url, prodName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(userID); err != nil {
		return "", err
	}
	userWl, err := s.userRecord(userID)
	if err != nil {
		return "", err
	}
	rec, ok := userWl[wlName]
	if !ok {
		return "", storage.ErrWatchlistNotFound
	}

	wl := watchlist.FromRecord(wlName, rec, s.fetcher, s.fetchRetries)
	key, err := wl.AddProduct(ctx, url, prodName)
	if err != nil {
		return "", err
	}

	s.recordPricePoint(ctx, url, wl)

	userWl[wlName] = wl.ToRecord()
	s.doc[userID] = userWl

	return key, s.documents.Save(s.doc)
}

// RemoveProduct stops tracking the product with the given effective key.
func (s *Store) RemoveProduct(userID int64, wlName, prodName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(userID); err != nil {
		return err
	}
	userWl, err := s.userRecord(userID)
	if err != nil {
		return err
	}
	rec, ok := userWl[wlName]
	if !ok {
		return storage.ErrWatchlistNotFound
	}

	wl := watchlist.FromRecord(wlName, rec, s.fetcher, s.fetchRetries)
	if !wl.RemoveProduct(prodName) {
		return storage.ErrProductNotFound
	}

	userWl[wlName] = wl.ToRecord()
	s.doc[userID] = userWl

	return s.documents.Save(s.doc)
}

// Watchlists returns the user's watchlist names in order.
func (s *Store) Watchlists(userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(userID); err != nil {
		return nil, err
	}
	userWl, err := s.userRecord(userID)
	if err != nil {
		return nil, err
	}
	if len(userWl) == 0 {
		return nil, storage.ErrEmptyProfile
	}

	names := make([]string, 0, len(userWl))
	for name := range userWl {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// Products returns the effective keys of the named watchlist's products.
func (s *Store) Products(userID int64, wlName string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(userID); err != nil {
		return nil, err
	}
	userWl, err := s.userRecord(userID)
	if err != nil {
		return nil, err
	}
	rec, ok := userWl[wlName]
	if !ok {
		return nil, storage.ErrWatchlistNotFound
	}

	wl := watchlist.FromRecord(wlName, rec, s.fetcher, s.fetchRetries)
	prods := wl.Products()
	if len(prods) == 0 {
		return nil, storage.ErrEmptyWatchlist
	}

	keys := make([]string, 0, len(prods))
	for _, p := range prods {
		keys = append(keys, p.Key())
	}

	return keys, nil
}

const digestHeader = "Some of your watchlists have been updated!\n\n"

// UpdateAll refreshes every watchlist of the user and returns the digest of
// those that qualified for a notification, or "" when none did. The document
// and the authorization list are re-read first to pick up out-of-band changes.
func (s *Store) UpdateAll(ctx context.Context, userID int64) (string, error) {
	const op = "store.UpdateAll"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.authorize(userID); err != nil {
		return "", err
	}
	userWl, err := s.userRecord(userID)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(userWl))
	for name := range userWl {
		names = append(names, name)
	}
	sort.Strings(names)

	digest := digestHeader
	for _, name := range names {
		wl := watchlist.FromRecord(name, userWl[name], s.fetcher, s.fetchRetries)

		notify, failed := wl.UpdatePrices(ctx)
		if failed > 0 {
			s.log.Warn("some products could not be refreshed",
				slog.Int64("user_id", userID),
				slog.String("watchlist", name),
				slog.Int("failed", failed),
			)
		}
		if notify {
			digest += wl.String() + "\n ~~~~~ \n"
		}

		s.recordPricePoint(ctx, "", wl)

		userWl[name] = wl.ToRecord()
	}
	if digest == digestHeader {
		digest = ""
	}

	s.doc[userID] = userWl
	if err := s.documents.Save(s.doc); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return digest, nil
}

// GrantUser authorizes a new user and creates their empty database entry.
// Admin only.
func (s *Store) GrantUser(callerID, userID int64, firstName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if callerID != s.adminID {
		return storage.ErrUnauthorized
	}
	if _, ok := s.doc[userID]; ok {
		return storage.ErrUserExists
	}

	if err := s.authList.Append(userID, firstName); err != nil {
		return err
	}
	s.authorized[userID] = struct{}{}
	s.doc[userID] = make(map[string]models.WatchlistRecord)

	return s.documents.Save(s.doc)
}

// RevokeUser removes a user from the authorization list and drops their entry.
// Admin only.
func (s *Store) RevokeUser(callerID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if callerID != s.adminID {
		return storage.ErrUnauthorized
	}
	if _, ok := s.doc[userID]; !ok {
		return storage.ErrUserMissing
	}

	if err := s.authList.Remove(userID); err != nil {
		return err
	}
	delete(s.authorized, userID)
	delete(s.doc, userID)

	return s.documents.Save(s.doc)
}

// Users returns every row of the authorization list. Admin only.
func (s *Store) Users(callerID int64) ([]models.AuthUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if callerID != s.adminID {
		return nil, storage.ErrUnauthorized
	}

	return s.authList.All()
}

// AuthorizedIDs returns the admin id plus every currently authorized user id.
// Used by the scheduler to drive the daily update pass.
func (s *Store) AuthorizedIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.authorized)+1)
	ids = append(ids, s.adminID)
	for id := range s.authorized {
		if id == s.adminID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// recordPricePoint archives current prices with the optional recorder.
// Failures are logged, never propagated: history is best-effort.
func (s *Store) recordPricePoint(ctx context.Context, onlyURL string, wl *watchlist.Watchlist) {
	if s.recorder == nil {
		return
	}
	for _, p := range wl.Products() {
		if onlyURL != "" && p.URL != onlyURL {
			continue
		}
		if err := s.recorder.SavePricePoint(ctx, p.URL, p.Price); err != nil {
			s.log.Warn("failed to record price point", sl.Err(err), slog.String("url", p.URL))
		}
	}
}
