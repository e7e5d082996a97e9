package storage

import "errors"

var (
	// ErrUnauthorized is returned before any existence check so that an
	// unauthorized caller learns nothing about stored records.
	ErrUnauthorized = errors.New("user is not authorized")

	// ErrUserMissing signals an authorized user without a database entry.
	// It should never occur in correct operation and is logged as corruption.
	ErrUserMissing = errors.New("authorized user has no database entry")

	ErrUserExists         = errors.New("user already has a database entry")
	ErrWatchlistNotFound  = errors.New("watchlist not found")
	ErrDuplicateWatchlist = errors.New("watchlist already exists")
	ErrProductNotFound    = errors.New("product not found")
	ErrDuplicateProduct   = errors.New("product with this name is already tracked")
	ErrEmptyProfile       = errors.New("user has no watchlists")
	ErrEmptyWatchlist     = errors.New("watchlist has no products")
	ErrFetchFailed        = errors.New("could not fetch product price")

	// ErrCacheMiss is returned by price caches when the url is not cached.
	ErrCacheMiss = errors.New("price not found in cache")
)
