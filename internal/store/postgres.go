package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is a dedup guard whose records survive restarts and are
// shared by every instance pointing at the same database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schemaSQL)
	return err
}

// Ping is used by readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// CheckAndRecord inserts eventID and reports a duplicate when the row already existed.
//
// The primary key makes the insert the single atomic step; concurrent callers
// racing on the same id get exactly one RETURNING row between them.
func (p *PostgresStore) CheckAndRecord(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("eventID required")
	}

	var one int
	err := p.pool.QueryRow(ctx, `
		INSERT INTO seen_events(event_id)
		VALUES ($1)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING 1
	`, eventID).Scan(&one)

	if err == nil {
		return false, nil
	}

	// Conflict returns no rows because RETURNING only fires on insert.
	if errors.Is(err, pgx.ErrNoRows) {
		return true, nil
	}

	return false, err
}

// Prune deletes records older than cutoff and returns how many were removed.
func (p *PostgresStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM seen_events WHERE first_seen_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
