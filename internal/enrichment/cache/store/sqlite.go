package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"salgsmotor/internal/enrichment/cache"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS company_cache (
    orgnr        TEXT PRIMARY KEY,
    data         TEXT NOT NULL,
    last_updated TEXT NOT NULL
)`

// SQLite stores entries in a single-file database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context, orgnr string) (*cache.Entry, error) {
	var data, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT data, last_updated FROM company_cache WHERE orgnr = ?`, orgnr,
	).Scan(&data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}
	fetchedAt, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return nil, fmt.Errorf("parse last_updated for %s: %w", orgnr, err)
	}
	return decodeEntry(orgnr, []byte(data), fetchedAt)
}

func (s *SQLite) Save(ctx context.Context, entry cache.Entry) error {
	data, err := json.Marshal(entry.Bundle)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO company_cache (orgnr, data, last_updated) VALUES (?, ?, ?)
		ON CONFLICT(orgnr) DO UPDATE SET data = excluded.data, last_updated = excluded.last_updated`,
		entry.OrgNumber, string(data), entry.FetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert cache: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func decodeEntry(orgnr string, data []byte, fetchedAt time.Time) (*cache.Entry, error) {
	var b cache.Entry
	b.OrgNumber = orgnr
	b.FetchedAt = fetchedAt
	if err := json.Unmarshal(data, &b.Bundle); err != nil {
		return nil, fmt.Errorf("decode bundle for %s: %w", orgnr, err)
	}
	return &b, nil
}
