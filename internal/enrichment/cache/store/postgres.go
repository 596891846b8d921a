package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salgsmotor/internal/enrichment/cache"
)

// Postgres stores entries in the company_cache table created by
// platform/postgres.Migrate.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) (*Postgres, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &Postgres{db: db}, nil
}

func (s *Postgres) Load(ctx context.Context, orgnr string) (*cache.Entry, error) {
	var (
		data      []byte
		fetchedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, last_updated FROM company_cache WHERE orgnr = $1`, orgnr,
	).Scan(&data, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}
	return decodeEntry(orgnr, data, fetchedAt)
}

func (s *Postgres) Save(ctx context.Context, entry cache.Entry) error {
	data, err := json.Marshal(entry.Bundle)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO company_cache (orgnr, data, last_updated) VALUES ($1, $2, $3)
		ON CONFLICT (orgnr) DO UPDATE SET data = EXCLUDED.data, last_updated = EXCLUDED.last_updated`,
		entry.OrgNumber, data, entry.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert cache: %w", err)
	}
	return nil
}
