package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"salgsmotor/internal/enrichment/cache"
	"salgsmotor/pkg/domain"
)

const lockRetry = 50 * time.Millisecond

// File stores one JSON document per company under dir, named {orgnr}.json.
// A sibling .lock file serialises writers across processes.
type File struct {
	dir string
}

func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (s *File) path(orgnr string) (string, error) {
	if !domain.LooksLikeOrgNumber(orgnr) {
		return "", fmt.Errorf("invalid cache key %q", orgnr)
	}
	return filepath.Join(s.dir, orgnr+".json"), nil
}

func (s *File) Load(ctx context.Context, orgnr string) (*cache.Entry, error) {
	p, err := s.path(orgnr)
	if err != nil {
		return nil, err
	}
	lock := flock.New(p + ".lock")
	if _, err := lock.TryRLockContext(ctx, lockRetry); err != nil {
		return nil, fmt.Errorf("lock %s: %w", p, err)
	}
	defer func() { _ = lock.Unlock() }()

	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	var e cache.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode cache file %s: %w", p, err)
	}
	return &e, nil
}

func (s *File) Save(ctx context.Context, entry cache.Entry) error {
	p, err := s.path(entry.OrgNumber)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	lock := flock.New(p + ".lock")
	if _, err := lock.TryLockContext(ctx, lockRetry); err != nil {
		return fmt.Errorf("lock %s: %w", p, err)
	}
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.CreateTemp(s.dir, entry.OrgNumber+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
