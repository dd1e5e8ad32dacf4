package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping verifies a connection can be acquired.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ResetDemoData removes every tenant, user and project.
func (s *Store) ResetDemoData(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE projects, users, tenants`); err != nil {
		return fmt.Errorf("reset demo data: %w", err)
	}
	return nil
}
