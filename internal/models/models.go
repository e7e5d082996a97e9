package models

// ProductRecord is the persisted form of a tracked product.
// Name is the optional user-supplied label; FullName is the scraped title.
type ProductRecord struct {
	Name      *string  `json:"name"`
	FullName  string   `json:"fullName"`
	URL       string   `json:"url"`
	LastPrice *float64 `json:"lastPrice"`
	Price     float64  `json:"price"`
}

// WatchlistRecord is the persisted form of a watchlist. The watchlist name is
// the key of the enclosing map, not part of the record.
type WatchlistRecord struct {
	Products    []ProductRecord `json:"products"`
	TargetPrice *float64        `json:"targetPrice"`
	LastTotal   *float64        `json:"lastTotal"`
	Total       float64         `json:"total"`
}

// Document is the whole persisted record set: user id -> watchlist name -> record.
type Document map[int64]map[string]WatchlistRecord

// AuthUser is one row of the authorized users list.
type AuthUser struct {
	ID        int64
	FirstName string
	Role      string
}

// DigestEvent is published to the digest queue after a scheduled update pass.
type DigestEvent struct {
	UserID int64  `json:"user_id"`
	Digest string `json:"digest"`
}
