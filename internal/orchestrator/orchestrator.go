// Package orchestrator drives batch sync runs: list CRM candidates, then
// resolve, enrich, evaluate, plan and apply each company on a bounded
// worker pool.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"salgsmotor/internal/crm"
	"salgsmotor/internal/crmsync"
	"salgsmotor/internal/enrichment/cache"
	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/identity"
	"salgsmotor/internal/platform/events"
	"salgsmotor/internal/platform/logger"
	"salgsmotor/internal/rules"
	"salgsmotor/pkg/domain"
	"salgsmotor/pkg/requestcontext"
)

// ErrNoCRM is returned by Run when the orchestrator was built for previews only.
var ErrNoCRM = errors.New("orchestrator: no crm client configured")

// Enricher builds bundles and sales notes.
type Enricher interface {
	Enrich(ctx context.Context, orgnr domain.OrgNumber) (*models.Bundle, error)
	Note(ctx context.Context, bundle *models.Bundle, recs []rules.Recommendation) string
}

// Status is the per-company outcome of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Options control one batch run.
type Options struct {
	DryRun         bool
	Force          bool
	ResolveMissing bool
	// Workers bounds concurrent companies; 0 uses the orchestrator default.
	Workers int
	// Only restricts the run to records already carrying this organization number.
	Only string
}

// CompanyResult is the outcome for one CRM record.
type CompanyResult struct {
	RecordID        string                   `json:"record_id"`
	Company         string                   `json:"company"`
	OrgNumber       string                   `json:"orgnr,omitempty"`
	Status          Status                   `json:"status"`
	Reason          string                   `json:"reason,omitempty"`
	Discovered      bool                     `json:"discovered,omitempty"`
	FromCache       bool                     `json:"from_cache"`
	Degraded        bool                     `json:"degraded"`
	SourceErrors    map[models.Source]string `json:"source_errors,omitempty"`
	Recommendations []rules.Recommendation   `json:"recommendations,omitempty"`
	Sync            *crmsync.Result          `json:"sync,omitempty"`
}

// Summary reports a whole run. Companies keeps the CRM listing order.
type Summary struct {
	RunID      string          `json:"run_id"`
	DryRun     bool            `json:"dry_run"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Candidates int             `json:"candidates"`
	Aborted    bool            `json:"aborted"`
	Companies  []CompanyResult `json:"companies"`
}

// Count returns how many companies ended with status.
func (s *Summary) Count(status Status) int {
	n := 0
	for _, c := range s.Companies {
		if c.Status == status {
			n++
		}
	}
	return n
}

// Deps are the collaborators of an Orchestrator. Cache, Enricher and Engine
// are always required; the CRM side is required for Run only.
type Deps struct {
	CRM      crm.Client
	Resolver *identity.Resolver
	Cache    *cache.Manager
	Enricher Enricher
	Engine   *rules.Engine
	Planner  *crmsync.Planner
	Executor *crmsync.Executor
}

// Orchestrator runs batches.
type Orchestrator struct {
	deps       Deps
	workers    int
	searchTerm string
	publisher  events.Publisher
	metrics    *Metrics
	tracer     trace.Tracer
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers sets the default worker count.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithSearchTerm narrows the CRM candidate listing.
func WithSearchTerm(term string) Option {
	return func(o *Orchestrator) { o.searchTerm = term }
}

func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.publisher = p
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func New(deps Deps, opts ...Option) (*Orchestrator, error) {
	if deps.Cache == nil {
		return nil, errors.New("cache manager is required")
	}
	if deps.Enricher == nil {
		return nil, errors.New("enricher is required")
	}
	if deps.Engine == nil {
		return nil, errors.New("rule engine is required")
	}
	if deps.CRM != nil && (deps.Resolver == nil || deps.Planner == nil || deps.Executor == nil) {
		return nil, errors.New("resolver, planner and executor are required with a crm client")
	}
	o := &Orchestrator{
		deps:      deps,
		workers:   4,
		publisher: events.Nop{},
		tracer:    otel.Tracer("salgsmotor/orchestrator"),
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run syncs every candidate company. A CRM authorization failure aborts the
// batch: companies not yet started are dropped, and Run returns the summary
// so far together with the error. Every other failure stays in its
// company's result.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Summary, error) {
	if o.deps.CRM == nil {
		return nil, ErrNoCRM
	}
	runID := uuid.NewString()
	ctx = requestcontext.WithRunID(ctx, runID)
	summary := &Summary{RunID: runID, DryRun: opts.DryRun, StartedAt: requestcontext.Now(ctx)}
	log := o.logger.With("run_id", runID)

	records, err := o.deps.CRM.SearchRecords(ctx, crm.Filter{SearchTerm: o.searchTerm})
	if err != nil {
		summary.FinishedAt = requestcontext.Now(ctx)
		summary.Aborted = true
		return summary, fmt.Errorf("list crm records: %w", err)
	}
	candidates := o.candidates(records, opts.Only)
	summary.Candidates = len(candidates)
	log.InfoContext(ctx, "sync run started",
		"candidates", len(candidates),
		"dry_run", opts.DryRun,
		"force", opts.Force,
		"resolve_missing", opts.ResolveMissing,
	)

	resolver := o.deps.Resolver.SearchingByName(opts.ResolveMissing)
	workers := opts.Workers
	if workers <= 0 {
		workers = o.workers
	}

	// one slot per candidate, so workers never share a result
	results := make([]*CompanyResult, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rec := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res, err := o.process(gctx, resolver, rec, opts)
			results[i] = res
			return err
		})
	}
	fatal := g.Wait()

	for _, r := range results {
		if r != nil {
			summary.Companies = append(summary.Companies, *r)
		}
	}
	summary.FinishedAt = requestcontext.Now(ctx)
	o.metrics.ObserveRun(summary.FinishedAt.Sub(summary.StartedAt))

	if fatal != nil {
		summary.Aborted = true
		log.ErrorContext(ctx, "sync run aborted", "error", fatal, "processed", len(summary.Companies))
		return summary, fatal
	}
	if err := ctx.Err(); err != nil {
		summary.Aborted = true
		return summary, err
	}
	log.InfoContext(ctx, "sync run finished",
		"success", summary.Count(StatusSuccess),
		"partial", summary.Count(StatusPartial),
		"skipped", summary.Count(StatusSkipped),
		"failed", summary.Count(StatusFailed),
	)
	return summary, nil
}

// candidates keeps records that stand for a company, optionally only the
// ones carrying the organization number only.
func (o *Orchestrator) candidates(records []crm.Record, only string) []crm.Record {
	only = strings.ReplaceAll(strings.TrimSpace(only), " ", "")
	out := make([]crm.Record, 0, len(records))
	for _, rec := range records {
		if !rec.IsCandidate() {
			continue
		}
		if only != "" && strings.ReplaceAll(o.deps.Resolver.Existing(rec), " ", "") != only {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// process runs the pipeline for one record. The returned error is non-nil
// only for failures that must abort the batch.
func (o *Orchestrator) process(ctx context.Context, resolver *identity.Resolver, rec crm.Record, opts Options) (*CompanyResult, error) {
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))
	ctx, span := o.tracer.Start(ctx, "sync.company", trace.WithAttributes(
		attribute.String("crm.record_id", rec.ID),
		attribute.Bool("sync.dry_run", opts.DryRun),
	))
	defer span.End()
	started := time.Now()

	res := &CompanyResult{RecordID: rec.ID, Company: rec.CompanyDisplayName()}
	fatal := o.pipeline(ctx, resolver, rec, opts, res)

	span.SetAttributes(
		attribute.String("company.orgnr", res.OrgNumber),
		attribute.String("sync.status", string(res.Status)),
	)
	if res.Status == StatusFailed {
		span.SetStatus(codes.Error, res.Reason)
	}
	if fatal != nil {
		span.RecordError(fatal)
	}
	o.metrics.ObserveCompany(res.Status, time.Since(started))
	o.publish(ctx, res, opts.DryRun)
	return res, fatal
}

func (o *Orchestrator) pipeline(ctx context.Context, resolver *identity.Resolver, rec crm.Record, opts Options, res *CompanyResult) error {
	log := o.logger.With("record_id", rec.ID, "company", res.Company)

	resolution := resolver.Resolve(ctx, rec)
	if !resolution.Resolved() {
		res.Status = StatusSkipped
		res.Reason = resolution.Reason
		log.InfoContext(ctx, "company skipped", "reason", resolution.Reason)
		return nil
	}
	orgnr := resolution.Identity.OrgNumber
	res.OrgNumber = orgnr.String()
	res.Discovered = resolution.Discovered
	log = log.With("orgnr", res.OrgNumber)

	bundle, outcome, err := o.enrich(ctx, orgnr, opts.Force)
	if err != nil {
		res.Status = StatusFailed
		res.Reason = "enrichment failed: " + err.Error()
		log.WarnContext(ctx, "enrichment failed", "error", err)
		return nil
	}
	res.FromCache = outcome.FromCache
	res.Degraded = outcome.Degraded
	res.SourceErrors = bundle.SourceErrors
	if outcome.Degraded {
		log.WarnContext(ctx, "serving stale enrichment", "fetched_at", outcome.FetchedAt)
	}

	asOf := requestcontext.Now(ctx)
	recs := o.deps.Engine.Evaluate(rules.Input{Bundle: bundle, CRM: rec.State(), AsOf: asOf})
	res.Recommendations = recs

	last, err := o.deps.CRM.ReadCustomFields(ctx, rec.ID)
	if err != nil {
		res.Status = StatusFailed
		res.Reason = "crm read failed: " + err.Error()
		if crm.IsUnauthorized(err) {
			return fmt.Errorf("read crm record %s: %w", rec.ID, err)
		}
		log.WarnContext(ctx, "crm read failed", "error", err)
		return nil
	}

	in := crmsync.PlanInput{
		Record:          rec,
		Identity:        resolution.Identity,
		Bundle:          bundle,
		Recommendations: recs,
		LastKnown:       last,
		AsOf:            asOf,
	}
	if o.deps.Planner.NoteNeeded(in) {
		in.Note = o.deps.Enricher.Note(ctx, bundle, recs)
	}
	plan := o.deps.Planner.Plan(in)

	result, err := o.deps.Executor.Apply(ctx, plan, opts.DryRun)
	res.Sync = result
	if err != nil {
		res.Status = StatusFailed
		res.Reason = err.Error()
		if crm.IsUnauthorized(err) {
			return err
		}
		return nil
	}
	switch result.Status {
	case crmsync.StatusSuccess:
		res.Status = StatusSuccess
	case crmsync.StatusPartial:
		res.Status = StatusPartial
		res.Reason = failureReasons(result)
	default:
		res.Status = StatusFailed
		res.Reason = failureReasons(result)
	}
	return nil
}

func (o *Orchestrator) enrich(ctx context.Context, orgnr domain.OrgNumber, force bool) (*models.Bundle, cache.Outcome, error) {
	return o.deps.Cache.GetOrFetch(ctx, orgnr, func(ctx context.Context) (*models.Bundle, error) {
		return o.deps.Enricher.Enrich(ctx, orgnr)
	}, force)
}

func failureReasons(r *crmsync.Result) string {
	parts := make([]string, 0, len(r.Failed)+1)
	for _, f := range r.Failed {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	if r.PipelineError != "" {
		parts = append(parts, "pipeline: "+r.PipelineError)
	}
	return strings.Join(parts, "; ")
}

func (o *Orchestrator) publish(ctx context.Context, res *CompanyResult, dryRun bool) {
	ev := events.SyncOutcome{
		RunID:     requestcontext.RunID(ctx),
		OrgNumber: res.OrgNumber,
		RecordID:  res.RecordID,
		Company:   res.Company,
		Status:    string(res.Status),
		Reason:    res.Reason,
		Degraded:  res.Degraded,
		DryRun:    dryRun,
		Pipeline:  string(crmsync.PipelineNone),
		At:        requestcontext.Now(ctx),
	}
	if res.Sync != nil {
		ev.Written = len(res.Sync.Written)
		ev.Failed = len(res.Sync.Failed)
		ev.Pipeline = string(res.Sync.Pipeline)
	}
	if primary, ok := rules.Primary(res.Recommendations); ok {
		ev.Primary = string(primary.Category)
	}
	// a cancelled batch still reports the companies it finished
	if err := o.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		o.logger.WarnContext(ctx, "publish sync outcome failed", "record_id", res.RecordID, "error", err)
	}
}

// Preview is a single-company enrichment with recommendations and no CRM access.
type Preview struct {
	OrgNumber       string                 `json:"orgnr"`
	Bundle          *models.Bundle         `json:"bundle"`
	FromCache       bool                   `json:"from_cache"`
	Degraded        bool                   `json:"degraded"`
	FetchedAt       time.Time              `json:"fetched_at"`
	Recommendations []rules.Recommendation `json:"recommendations"`
	Note            string                 `json:"note,omitempty"`
}

// Preview enriches and evaluates one company. The cache is used and
// refreshed as in a batch run.
func (o *Orchestrator) Preview(ctx context.Context, orgnr string, force bool) (*Preview, error) {
	n, err := domain.ParseOrgNumber(orgnr)
	if err != nil {
		return nil, err
	}
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))
	ctx, span := o.tracer.Start(ctx, "preview.company", trace.WithAttributes(attribute.String("company.orgnr", n.String())))
	defer span.End()

	bundle, outcome, err := o.enrich(ctx, n, force)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("enrich %s: %w", n, err)
	}
	recs := o.deps.Engine.Evaluate(rules.Input{Bundle: bundle, CRM: previewState(bundle), AsOf: requestcontext.Now(ctx)})
	return &Preview{
		OrgNumber:       n.String(),
		Bundle:          bundle,
		FromCache:       outcome.FromCache,
		Degraded:        outcome.Degraded,
		FetchedAt:       outcome.FetchedAt,
		Recommendations: recs,
		Note:            o.deps.Enricher.Note(ctx, bundle, recs),
	}, nil
}

// previewState stands in for the CRM record with the registered contact
// point, so contact rules judge what the registry knows.
func previewState(b *models.Bundle) crm.State {
	if b == nil || b.Contact == nil {
		return crm.State{}
	}
	return crm.State{Email: b.Contact.Email, Phone: b.Contact.Phone}
}
