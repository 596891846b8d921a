// Package cache keeps enrichment bundles per organization number and
// decides when a bundle is fresh enough to skip the external sources.
//
// A bundle younger than the freshness window is served as-is. An older or
// missing one is re-fetched; if that fetch fails and an old bundle exists,
// the old bundle is served and the outcome is marked degraded.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/platform/logger"
	"salgsmotor/pkg/domain"
	"salgsmotor/pkg/platform/sentinel"
	"salgsmotor/pkg/requestcontext"
)

// DefaultFreshness is how long a bundle is served without re-fetching.
const DefaultFreshness = 7 * 24 * time.Hour

// ErrNotFound is returned by stores for unknown organization numbers.
var ErrNotFound = fmt.Errorf("cache entry: %w", sentinel.ErrNotFound)

// Entry is one cached bundle.
type Entry struct {
	OrgNumber string         `json:"orgnr"`
	Bundle    *models.Bundle `json:"bundle"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Store persists entries. Load returns ErrNotFound for unknown keys.
type Store interface {
	Load(ctx context.Context, orgnr string) (*Entry, error)
	Save(ctx context.Context, entry Entry) error
}

// FetchFunc produces a fresh bundle, typically the aggregator's Enrich.
type FetchFunc func(ctx context.Context) (*models.Bundle, error)

// Outcome describes where a bundle came from.
type Outcome struct {
	FromCache bool
	Degraded  bool
	FetchedAt time.Time
}

// Manager implements get-or-fetch over a Store.
type Manager struct {
	store     Store
	freshness time.Duration
	group     singleflight.Group
	metrics   *Metrics
	logger    *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithFreshness overrides the freshness window. Used by tests only.
func WithFreshness(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.freshness = d
		}
	}
}

func New(store Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	m := &Manager{
		store:     store,
		freshness: DefaultFreshness,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Freshness returns the configured window.
func (m *Manager) Freshness() time.Duration {
	return m.freshness
}

type result struct {
	bundle  *models.Bundle
	outcome Outcome
}

// GetOrFetch returns the bundle for orgnr. With force set, a fresh entry is
// ignored, but a stale one still backs up a failed fetch. Concurrent calls
// for the same key share one fetch; a caller whose ctx ends stops waiting
// without cancelling the fetch for the others.
func (m *Manager) GetOrFetch(ctx context.Context, orgnr domain.OrgNumber, fetch FetchFunc, force bool) (*models.Bundle, Outcome, error) {
	key := orgnr.String()
	if force {
		key += "#force"
	}
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		return m.getOrFetch(shared, orgnr.String(), fetch, force)
	})
	select {
	case <-ctx.Done():
		return nil, Outcome{}, fmt.Errorf("fetch %s: %w", orgnr, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, Outcome{}, res.Err
		}
		r := res.Val.(result)
		// shared callers must not see each other's mutations
		return r.bundle.Clone(), r.outcome, nil
	}
}

func (m *Manager) getOrFetch(ctx context.Context, orgnr string, fetch FetchFunc, force bool) (result, error) {
	now := requestcontext.Now(ctx)

	cached, err := m.store.Load(ctx, orgnr)
	switch {
	case errors.Is(err, ErrNotFound):
		cached = nil
	case err != nil:
		m.logger.WarnContext(ctx, "cache read failed, treating as miss", "orgnr", orgnr, "error", err)
		cached = nil
	}

	if cached != nil && !force && m.isFresh(cached, now) {
		m.metrics.IncHit()
		return result{bundle: cached.Bundle, outcome: Outcome{FromCache: true, FetchedAt: cached.FetchedAt}}, nil
	}
	m.metrics.IncMiss()

	bundle, fetchErr := fetch(ctx)
	if fetchErr != nil {
		if cached == nil || cached.Bundle == nil {
			return result{}, fmt.Errorf("fetch %s: %w", orgnr, fetchErr)
		}
		m.metrics.IncDegraded()
		m.logger.WarnContext(ctx, "fetch failed, serving stale bundle",
			"orgnr", orgnr,
			"fetched_at", cached.FetchedAt,
			"error", fetchErr,
		)
		return result{
			bundle:  cached.Bundle,
			outcome: Outcome{FromCache: true, Degraded: true, FetchedAt: cached.FetchedAt},
		}, nil
	}

	entry := Entry{OrgNumber: orgnr, Bundle: bundle, FetchedAt: now}
	if err := m.store.Save(ctx, entry); err != nil {
		m.logger.WarnContext(ctx, "cache write failed", "orgnr", orgnr, "error", err)
	}
	return result{bundle: bundle, outcome: Outcome{FetchedAt: now}}, nil
}

func (m *Manager) isFresh(e *Entry, now time.Time) bool {
	return e.Bundle != nil && now.Sub(e.FetchedAt) < m.freshness
}
