package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"salgsmotor/internal/crm/lacrm"
	"salgsmotor/internal/crmsync"
	"salgsmotor/internal/enrichment/aggregator"
	"salgsmotor/internal/enrichment/cache"
	"salgsmotor/internal/enrichment/cache/store"
	"salgsmotor/internal/enrichment/providers/brreg"
	"salgsmotor/internal/enrichment/providers/domainhealth"
	"salgsmotor/internal/enrichment/providers/gulesider"
	"salgsmotor/internal/enrichment/providers/openai"
	"salgsmotor/internal/enrichment/providers/proff"
	"salgsmotor/internal/enrichment/providers/rdap"
	"salgsmotor/internal/enrichment/providers/social"
	"salgsmotor/internal/enrichment/providers/webutil"
	"salgsmotor/internal/identity"
	"salgsmotor/internal/orchestrator"
	"salgsmotor/internal/platform/config"
	"salgsmotor/internal/platform/events"
	"salgsmotor/internal/platform/logger"
	"salgsmotor/internal/platform/metrics"
	"salgsmotor/internal/platform/postgres"
	platformredis "salgsmotor/internal/platform/redis"
	"salgsmotor/internal/rules"
)

// Website probes share one per-host limiter across the page fetchers.
const (
	websiteRequestsPerSecond = 2
	websiteBurst             = 2
)

// app holds the wired components for one command invocation.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	registry *prometheus.Registry
	orch     *orchestrator.Orchestrator
	crm      *lacrm.Client
	closers  []func() error
}

// loadConfig reads the configuration, applies the global flags and
// builds the logger.
func loadConfig(requireCRM bool) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if rootFlags.logLevel != "" {
		cfg.Log.Level = rootFlags.logLevel
	}
	if rootFlags.logFormat != "" {
		cfg.Log.Format = rootFlags.logFormat
	}
	if err := config.Validate(cfg, requireCRM); err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, nil)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// newCRMClient builds the Less Annoying CRM client from cfg.
func newCRMClient(cfg config.Config, log *slog.Logger) (*lacrm.Client, error) {
	return lacrm.New(cfg.CRM.UserCode, cfg.CRM.APIToken,
		lacrm.WithBaseURL(cfg.CRM.BaseURL),
		lacrm.WithHTTPClient(&http.Client{Timeout: cfg.CRM.Timeout}),
		lacrm.WithPageSize(cfg.CRM.PageSize),
		lacrm.WithPipeline(lacrm.Pipeline{
			Name:     cfg.CRM.Pipeline.Name,
			Statuses: cfg.CRM.Pipeline.Statuses,
			Fields:   cfg.CRM.Pipeline.Fields,
		}),
		lacrm.WithLogger(logger.Component(log, "lacrm")),
	)
}

// newApp wires every component. Without withCRM the orchestrator only
// serves previews.
func newApp(ctx context.Context, cfg config.Config, log *slog.Logger, withCRM bool) (_ *app, err error) {
	a := &app{cfg: cfg, log: log, registry: metrics.NewRegistry()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	cacheManager, err := cache.New(st,
		cache.WithMetrics(cache.NewMetrics(a.registry)),
		cache.WithLogger(logger.Component(log, "cache")),
	)
	if err != nil {
		return nil, err
	}

	registryClient, err := brreg.New(cfg.Sources.Brreg.BaseURL,
		brreg.WithHTTPClient(&http.Client{Timeout: cfg.Sources.HTTPTimeout}),
		brreg.WithRateLimit(cfg.Sources.Brreg.RequestsPerSecond),
		brreg.WithSearchSize(cfg.Sources.Brreg.SearchSize),
		brreg.WithUserAgent(cfg.Sources.UserAgent),
		brreg.WithLogger(logger.Component(log, "brreg")),
	)
	if err != nil {
		return nil, err
	}
	enricher, err := a.newAggregator(registryClient)
	if err != nil {
		return nil, err
	}

	deps := orchestrator.Deps{
		Cache:    cacheManager,
		Enricher: enricher,
		Engine:   rules.NewEngine(),
	}
	if withCRM {
		if err := a.wireSync(&deps, registryClient); err != nil {
			return nil, err
		}
	}

	publisher, err := a.newPublisher(ctx)
	if err != nil {
		return nil, err
	}

	a.orch, err = orchestrator.New(deps,
		orchestrator.WithWorkers(cfg.Sync.Workers),
		orchestrator.WithSearchTerm(cfg.CRM.SearchTerm),
		orchestrator.WithPublisher(publisher),
		orchestrator.WithMetrics(orchestrator.NewMetrics(a.registry)),
		orchestrator.WithLogger(logger.Component(log, "orchestrator")),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) (cache.Store, error) {
	cfg := a.cfg
	switch cfg.Cache.Backend {
	case config.CacheMemory:
		return store.NewMemory(), nil
	case config.CacheFile:
		return store.NewFile(cfg.Cache.Dir)
	case config.CacheSQLite:
		s, err := store.OpenSQLite(ctx, cfg.Cache.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case config.CachePostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return store.NewPostgres(db)
	case config.CacheRedis:
		rc, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if rc == nil {
			return nil, errors.New("redis url is required for the redis cache backend")
		}
		a.closers = append(a.closers, rc.Close)
		return store.NewRedis(rc.Client, store.WithRetention(cfg.Cache.Retention))
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func (a *app) newAggregator(registryClient *brreg.Client) (*aggregator.Aggregator, error) {
	cfg := a.cfg.Sources
	opts := []aggregator.Option{
		aggregator.WithBreaker(cfg.BreakerThreshold, 0),
		aggregator.WithMetrics(aggregator.NewMetrics(a.registry)),
		aggregator.WithLogger(logger.Component(a.log, "aggregator")),
	}

	if cfg.Proff.Enabled {
		financial, err := proff.New(cfg.Proff.BaseURL,
			proff.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
			proff.WithRateLimit(cfg.Proff.RequestsPerSecond),
			proff.WithUserAgent(cfg.UserAgent),
			proff.WithLogger(logger.Component(a.log, "proff")),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, aggregator.WithFinancial(financial))
	}

	if cfg.Gulesider.Enabled {
		finder, err := gulesider.New(cfg.Gulesider.BaseURL,
			gulesider.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
			gulesider.WithRateLimit(cfg.Gulesider.RequestsPerSecond),
			gulesider.WithUserAgent(cfg.UserAgent),
			gulesider.WithLogger(logger.Component(a.log, "gulesider")),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, aggregator.WithWebsiteFinder(finder))
	}
	if cfg.RDAP.Enabled {
		registration, err := rdap.New(cfg.RDAP.BaseURL,
			rdap.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
			rdap.WithLogger(logger.Component(a.log, "rdap")),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, aggregator.WithRegistration(registration))
	}

	limiter := webutil.NewHostLimiter(websiteRequestsPerSecond, websiteBurst)
	guard := webutil.Guard{AllowPrivate: cfg.DomainHealth.AllowPrivate}
	if cfg.DomainHealth.Enabled {
		opts = append(opts, aggregator.WithDomainHealth(domainhealth.New(
			domainhealth.WithAllowPrivate(cfg.DomainHealth.AllowPrivate),
			domainhealth.WithHostLimiter(limiter),
			domainhealth.WithUserAgent(cfg.UserAgent),
			domainhealth.WithLogger(logger.Component(a.log, "domainhealth")),
		)))
	}
	if cfg.Social.Enabled {
		opts = append(opts, aggregator.WithSocial(social.New(
			social.WithHTTPClient(guard.Client(cfg.HTTPTimeout, 5)),
			social.WithGuard(guard),
			social.WithHostLimiter(limiter),
			social.WithUserAgent(cfg.UserAgent),
			social.WithLogger(logger.Component(a.log, "social")),
		)))
	}
	if cfg.OpenAI.APIKey != "" {
		ai, err := openai.New(cfg.OpenAI.APIKey,
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithModel(cfg.OpenAI.Model),
			openai.WithMaxTokens(cfg.OpenAI.MaxTokens),
			openai.WithTemperature(cfg.OpenAI.Temperature),
			openai.WithPageGuard(guard),
			openai.WithHostLimiter(limiter),
			openai.WithUserAgent(cfg.UserAgent),
			openai.WithLogger(logger.Component(a.log, "openai")),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, aggregator.WithAI(ai))
		if cfg.OpenAI.AnalyzeWebsite {
			opts = append(opts, aggregator.WithWebsiteAnalyzer(ai))
		}
	} else {
		a.log.Info("no openai api key, notes fall back to rule rationales")
	}
	return aggregator.New(registryClient, opts...)
}

func (a *app) wireSync(deps *orchestrator.Deps, registryClient *brreg.Client) error {
	cfg := a.cfg
	mapping, err := crmsync.ParseFieldMapping(cfg.Fields)
	if err != nil {
		return err
	}
	orgField, ok := mapping.ID(crmsync.FieldOrgNumber)
	if !ok {
		a.log.Warn("no crm field mapped for the organization number; only name search can resolve companies")
	}

	client, err := newCRMClient(cfg, a.log)
	if err != nil {
		return err
	}
	a.crm = client

	resolver, err := identity.New(registryClient,
		identity.WithOrgNumberField(orgField),
		identity.WithNameSearch(cfg.Sync.ResolveMissing),
		identity.WithRevalidation(cfg.Sync.Revalidate),
		identity.WithLogger(logger.Component(a.log, "identity")),
	)
	if err != nil {
		return err
	}
	planner := crmsync.NewPlanner(mapping,
		crmsync.WithPipelineStatus(cfg.CRM.Pipeline.Status),
		crmsync.WithPlannerLogger(logger.Component(a.log, "planner")),
	)
	executor, err := crmsync.NewExecutor(client,
		crmsync.WithMetrics(crmsync.NewMetrics(a.registry)),
		crmsync.WithExecutorLogger(logger.Component(a.log, "executor")),
	)
	if err != nil {
		return err
	}

	deps.CRM = client
	deps.Resolver = resolver
	deps.Planner = planner
	deps.Executor = executor
	return nil
}

func (a *app) newPublisher(ctx context.Context) (events.Publisher, error) {
	cfg := a.cfg.Events
	if len(cfg.Brokers) == 0 {
		return events.Nop{}, nil
	}
	p, err := events.NewKafkaPublisher(ctx, cfg.Brokers, cfg.Topic,
		events.WithClientID(cfg.ClientID),
		events.WithEnsureTopic(1, 1),
		events.WithLogger(logger.Component(a.log, "events")),
	)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, p.Close)
	return p, nil
}

// Close releases everything opened by newApp, newest first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
