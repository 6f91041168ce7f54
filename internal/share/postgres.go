package share

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS snapshots (
	hash       TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates the snapshots table if needed.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, createSnapshotsTable); err != nil {
		return nil, fmt.Errorf("creating snapshots table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, payload json.RawMessage) (string, error) {
	hash := Hash(payload)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO snapshots (hash, payload)
		VALUES ($1, $2)
		ON CONFLICT (hash) DO NOTHING
	`, hash, []byte(payload))
	if err != nil {
		return "", fmt.Errorf("inserting snapshot: %w", err)
	}
	return hash, nil
}

func (s *PostgresStore) Get(ctx context.Context, hash string) (*Snapshot, error) {
	var (
		snap    = &Snapshot{Hash: hash}
		payload []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT payload, created_at FROM snapshots WHERE hash = $1
	`, hash).Scan(&payload, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	snap.Payload = payload
	return snap, nil
}
