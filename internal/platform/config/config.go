// Package config loads the salgsmotor configuration file.
//
// Values are resolved in three layers: built-in defaults, the YAML file,
// then environment variables (optionally seeded from a .env file). Secrets
// such as the CRM token are normally supplied through the environment.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Cache backends accepted by Cache.Backend.
const (
	CacheMemory   = "memory"
	CacheFile     = "file"
	CacheSQLite   = "sqlite"
	CachePostgres = "postgres"
	CacheRedis    = "redis"
)

// Config is the root configuration object. It is built once at startup and
// handed to constructors explicitly; nothing reads it from global state.
type Config struct {
	CRM      CRMConfig         `yaml:"crm"`
	Sources  SourcesConfig     `yaml:"sources"`
	Cache    CacheConfig       `yaml:"cache"`
	Sync     SyncConfig        `yaml:"sync"`
	Fields   map[string]string `yaml:"fields"`
	Postgres PostgresConfig    `yaml:"postgres"`
	Redis    RedisConfig       `yaml:"redis"`
	Events   EventsConfig      `yaml:"events"`
	Metrics  MetricsConfig     `yaml:"metrics"`
	Server   ServerConfig      `yaml:"server"`
	Log      LogConfig         `yaml:"log"`
}

// CRMConfig holds Less Annoying CRM credentials.
type CRMConfig struct {
	BaseURL  string        `yaml:"base_url"`
	UserCode string        `yaml:"user_code"`
	APIToken string        `yaml:"api_token"`
	Timeout  time.Duration `yaml:"timeout"`
	// SearchTerm filters SearchContacts; empty lists every record.
	SearchTerm string         `yaml:"search_term"`
	PageSize   int            `yaml:"page_size"`
	Pipeline   PipelineConfig `yaml:"pipeline"`
}

// PipelineConfig names the sales pipeline recommendations are filed in.
// Fields maps pipeline item attributes (company, orgnr, category, phone,
// email, comment) to pipeline custom field ids.
type PipelineConfig struct {
	Name     string            `yaml:"name"`
	Status   string            `yaml:"status"`
	Statuses []string          `yaml:"statuses"`
	Fields   map[string]string `yaml:"fields"`
}

// SourcesConfig configures the enrichment collaborators.
type SourcesConfig struct {
	HTTPTimeout      time.Duration      `yaml:"http_timeout"`
	UserAgent        string             `yaml:"user_agent"`
	BreakerThreshold int                `yaml:"breaker_threshold"`
	Brreg            BrregConfig        `yaml:"brreg"`
	Proff            ScraperConfig      `yaml:"proff"`
	DomainHealth     DomainHealthConfig `yaml:"domain_health"`
	Social           ToggleConfig       `yaml:"social"`
	Gulesider        ScraperConfig      `yaml:"gulesider"`
	RDAP             RDAPConfig         `yaml:"rdap"`
	OpenAI           OpenAIConfig       `yaml:"openai"`
}

type BrregConfig struct {
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	SearchSize        int     `yaml:"search_size"`
}

// ScraperConfig configures a source that loads public HTML pages.
type ScraperConfig struct {
	Enabled           bool    `yaml:"enabled"`
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type DomainHealthConfig struct {
	Enabled bool `yaml:"enabled"`
	// AllowPrivate permits probing loopback and private addresses (tests only).
	AllowPrivate bool `yaml:"allow_private"`
}

type ToggleConfig struct {
	Enabled bool `yaml:"enabled"`
}

type RDAPConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
}

type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	// AnalyzeWebsite has the model assess each company homepage.
	AnalyzeWebsite bool `yaml:"analyze_website"`
}

// CacheConfig selects the durable enrichment cache.
type CacheConfig struct {
	Backend    string        `yaml:"backend"`
	Dir        string        `yaml:"dir"`
	SQLitePath string        `yaml:"sqlite_path"`
	Retention  time.Duration `yaml:"retention"`
}

// SyncConfig holds batch defaults; CLI flags override them per run.
type SyncConfig struct {
	Workers        int  `yaml:"workers"`
	ResolveMissing bool `yaml:"resolve_missing"`
	Revalidate     bool `yaml:"revalidate"`
}

type PostgresConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type EventsConfig struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	ClientID string   `yaml:"client_id"`
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration usable for a dry run against a real CRM
// once credentials are supplied.
func Default() Config {
	return Config{
		CRM: CRMConfig{
			BaseURL:  "https://api.lessannoyingcrm.com",
			Timeout:  30 * time.Second,
			PageSize: 500,
			Pipeline: PipelineConfig{
				Name:     "Potensielle kunder",
				Status:   "Foreslått",
				Statuses: []string{"Foreslått", "Under vurdering", "Kontaktet", "Proposal sendt", "Lukket vunnet", "Lukket tapt"},
				Fields:   map[string]string{},
			},
		},
		Sources: SourcesConfig{
			HTTPTimeout:      10 * time.Second,
			UserAgent:        "Mozilla/5.0 (compatible; salgsmotor/1.0)",
			BreakerThreshold: 5,
			Brreg: BrregConfig{
				BaseURL:           "https://data.brreg.no/enhetsregisteret/api",
				RequestsPerSecond: 5,
				SearchSize:        5,
			},
			Proff: ScraperConfig{
				Enabled:           true,
				BaseURL:           "https://www.proff.no",
				RequestsPerSecond: 1,
			},
			DomainHealth: DomainHealthConfig{Enabled: true},
			Social:       ToggleConfig{Enabled: true},
			Gulesider: ScraperConfig{
				Enabled:           true,
				BaseURL:           "https://www.gulesider.no",
				RequestsPerSecond: 1,
			},
			RDAP: RDAPConfig{
				Enabled: true,
				BaseURL: "https://rdap.org",
			},
			OpenAI: OpenAIConfig{
				Model:          "gpt-4o-mini",
				MaxTokens:      200,
				Temperature:    0.7,
				AnalyzeWebsite: true,
			},
		},
		Cache: CacheConfig{
			Backend:    CacheFile,
			Dir:        "cache",
			SQLitePath: "salgsmotor.db",
			Retention:  30 * 24 * time.Hour,
		},
		Sync: SyncConfig{Workers: 4},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Events:  EventsConfig{Topic: "salgsmotor.sync.outcomes", ClientID: "salgsmotor"},
		Metrics: MetricsConfig{Job: "salgsmotor_sync"},
		Server:  ServerConfig{Addr: ":8080"},
		Log:     LogConfig{Level: "info", Format: "text"},
		Fields:  map[string]string{},
	}
}

// Load reads the YAML file at path on top of Default and applies
// environment overrides. An empty path skips the file. A .env file in the
// working directory is loaded first when present.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if cfg.Fields == nil {
		cfg.Fields = map[string]string{}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides:
//   - LACRM_USER_CODE, LACRM_API_TOKEN
//   - OPENAI_API_KEY
//   - DATABASE_URL, REDIS_URL, KAFKA_BROKERS (comma separated)
//   - SALGSMOTOR_CACHE_BACKEND, SALGSMOTOR_WORKERS, SALGSMOTOR_LOG_LEVEL,
//     SALGSMOTOR_LOG_FORMAT, SALGSMOTOR_ADDR, SALGSMOTOR_PUSHGATEWAY_URL
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LACRM_USER_CODE"); v != "" {
		cfg.CRM.UserCode = v
	}
	if v := os.Getenv("LACRM_API_TOKEN"); v != "" {
		cfg.CRM.APIToken = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Sources.OpenAI.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Events.Brokers = splitList(v)
	}
	if v := os.Getenv("SALGSMOTOR_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("SALGSMOTOR_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sync.Workers = n
		}
	}
	if v := os.Getenv("SALGSMOTOR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SALGSMOTOR_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("SALGSMOTOR_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SALGSMOTOR_PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every problem at once. CRM credentials are only
// required when requireCRM is set, so preview commands work without them.
func Validate(cfg Config, requireCRM bool) error {
	var errs []string

	if requireCRM {
		if cfg.CRM.UserCode == "" {
			errs = append(errs, "crm.user_code is required (or LACRM_USER_CODE)")
		}
		if cfg.CRM.APIToken == "" {
			errs = append(errs, "crm.api_token is required (or LACRM_API_TOKEN)")
		}
	}
	if cfg.Sync.Workers < 1 {
		errs = append(errs, "sync.workers must be >= 1")
	}

	switch cfg.Cache.Backend {
	case CacheMemory:
	case CacheFile:
		if cfg.Cache.Dir == "" {
			errs = append(errs, "cache.dir is required for the file backend")
		}
	case CacheSQLite:
		if cfg.Cache.SQLitePath == "" {
			errs = append(errs, "cache.sqlite_path is required for the sqlite backend")
		}
	case CachePostgres:
		if cfg.Postgres.URL == "" {
			errs = append(errs, "postgres.url is required for the postgres backend (or DATABASE_URL)")
		}
	case CacheRedis:
		if cfg.Redis.URL == "" {
			errs = append(errs, "redis.url is required for the redis backend (or REDIS_URL)")
		}
	default:
		errs = append(errs, fmt.Sprintf("cache.backend %q is not one of memory, file, sqlite, postgres, redis", cfg.Cache.Backend))
	}

	if len(cfg.Events.Brokers) > 0 && cfg.Events.Topic == "" {
		errs = append(errs, "events.topic is required when brokers are configured")
	}

	for _, name := range slices.Sorted(maps.Keys(cfg.Fields)) {
		if strings.TrimSpace(cfg.Fields[name]) == "" {
			errs = append(errs, fmt.Sprintf("fields.%s has an empty field id", name))
		}
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}
