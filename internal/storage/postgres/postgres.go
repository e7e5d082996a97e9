package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRepo archives every fetched price as an append-only point, so drops
// can be inspected beyond the one-step history the watchlist itself keeps.
// The store of record stays the JSON document; this repo is optional.
type HistoryRepo struct {
	pool *pgxpool.Pool
}

type PricePoint struct {
	URL        string    `db:"url"`
	Price      float64   `db:"price"`
	RecordedAt time.Time `db:"recorded_at"`
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func New(ctx context.Context, cfg Config) (*HistoryRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%s: ping failed: %w", op, err)
	}

	return &HistoryRepo{pool: pool}, nil
}

// SavePricePoint appends one fetched price for the url.
func (r *HistoryRepo) SavePricePoint(ctx context.Context, url string, price float64) error {
	const op = "storage.postgres.SavePricePoint"

	const query = `
		INSERT INTO price_points (url, price, recorded_at)
		VALUES ($1, $2, now())
	`

	if _, err := r.pool.Exec(ctx, query, url, price); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// History returns the most recent price points for the url, newest first.
func (r *HistoryRepo) History(ctx context.Context, url string, limit int64) ([]PricePoint, error) {
	const op = "storage.postgres.History"

	const query = `
		SELECT url, price, recorded_at
		FROM price_points
		WHERE url = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, url, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}

	points, err := pgx.CollectRows(rows, pgx.RowToStructByName[PricePoint])
	if err != nil {
		return nil, fmt.Errorf("%s: collect: %w", op, err)
	}

	return points, nil
}

func (r *HistoryRepo) Close() {
	r.pool.Close()
}

func dsn(cfg Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
		cfg.SSLMode,
	)
}
