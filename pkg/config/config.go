// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Indexer, Search, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Search    SearchConfig    `yaml:"search"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	CORS      CORSConfig      `yaml:"cors"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentIngest  string `yaml:"documentIngest"`
	IndexComplete   string `yaml:"indexComplete"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexerConfig controls where the index builder writes artifacts and how
// often dirty projects are flushed.
type IndexerConfig struct {
	DataDir       string        `yaml:"dataDir"`
	ArtifactName  string        `yaml:"artifactName"`
	FlushInterval time.Duration `yaml:"flushInterval"`
	Gzip          bool          `yaml:"gzip"`
}

// IndexSource describes one searchindex.js the searcher serves and how to
// turn its docnames into links.
type IndexSource struct {
	Name       string `yaml:"name"`
	Path       string `yaml:"path"`
	URLRoot    string `yaml:"urlRoot"`
	FileSuffix string `yaml:"fileSuffix"`
	Builder    string `yaml:"builder"`
}

// ScorerConfig holds the relevance weights used when ranking results.
type ScorerConfig struct {
	ObjNameMatch    int         `yaml:"objNameMatch"`
	ObjPartialMatch int         `yaml:"objPartialMatch"`
	ObjPrio         map[int]int `yaml:"objPrio"`
	ObjPrioDefault  int         `yaml:"objPrioDefault"`
	Title           int         `yaml:"title"`
	PartialTitle    int         `yaml:"partialTitle"`
	Term            int         `yaml:"term"`
	PartialTerm     int         `yaml:"partialTerm"`
}

// SearchConfig controls query execution limits, timeouts and the set of
// indexes served.
type SearchConfig struct {
	MaxResults      int           `yaml:"maxResults"`
	DefaultLimit    int           `yaml:"defaultLimit"`
	TimeoutPerIndex time.Duration `yaml:"timeoutPerIndex"`
	Indexes         []IndexSource `yaml:"indexes"`
	Scorer          ScorerConfig  `yaml:"scorer"`
	Watch           bool          `yaml:"watch"`
	WatchDebounce   time.Duration `yaml:"watchDebounce"`
	// ProjectTemplate supplies link settings for projects announced by the
	// indexer that are not listed in Indexes.
	ProjectTemplate IndexSource `yaml:"projectTemplate"`
}

// AnalyticsConfig controls event buffering and snapshot persistence.
type AnalyticsConfig struct {
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// RateLimitConfig controls per-client request throttling.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// CORSConfig lists the origins allowed to call the search API from a
// browser.
type CORSConfig struct {
	AllowOrigins []string `yaml:"allowOrigins"`
	MaxAge       int      `yaml:"maxAge"`
}

// AuthConfig lists SHA-256 hex digests of the keys accepted on mutating
// endpoints. Leaving it empty disables the check.
type AuthConfig struct {
	AdminKeyHashes []string `yaml:"adminKeyHashes"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the services cannot start with.
func (c *Config) Validate() error {
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.defaultLimit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search.maxResults (%d) must be >= search.defaultLimit (%d)",
			c.Search.MaxResults, c.Search.DefaultLimit)
	}
	seen := make(map[string]struct{}, len(c.Search.Indexes))
	for i, src := range c.Search.Indexes {
		if src.Name == "" {
			return fmt.Errorf("search.indexes[%d]: name is required", i)
		}
		if src.Path == "" {
			return fmt.Errorf("search.indexes[%d] (%s): path is required", i, src.Name)
		}
		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("search.indexes[%d]: duplicate name %q", i, src.Name)
		}
		seen[src.Name] = struct{}{}
		switch src.Builder {
		case "", "html", "dirhtml":
		default:
			return fmt.Errorf("search.indexes[%d] (%s): unknown builder %q", i, src.Name, src.Builder)
		}
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rateLimit.requestsPerSecond must be positive when enabled")
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "docsearch",
			User:            "docsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "docsearch-group",
			Topics: KafkaTopics{
				DocumentIngest:  "document-ingest",
				IndexComplete:   "index-complete",
				AnalyticsEvents: "analytics-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Indexer: IndexerConfig{
			DataDir:       "data/indexes",
			ArtifactName:  "searchindex.js",
			FlushInterval: 10 * time.Second,
			Gzip:          true,
		},
		Search: SearchConfig{
			MaxResults:      100,
			DefaultLimit:    20,
			TimeoutPerIndex: 2 * time.Second,
			Scorer: ScorerConfig{
				ObjNameMatch:    11,
				ObjPartialMatch: 6,
				ObjPrio:         map[int]int{0: 15, 1: 5, 2: -5},
				ObjPrioDefault:  0,
				Title:           15,
				PartialTitle:    7,
				Term:            5,
				PartialTerm:     2,
			},
			Watch:           true,
			WatchDebounce:   500 * time.Millisecond,
			ProjectTemplate: IndexSource{URLRoot: "/docs/{project}/"},
		},
		Analytics: AnalyticsConfig{
			BufferSize:       10000,
			BatchSize:        100,
			FlushInterval:    5 * time.Second,
			SnapshotInterval: time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 20,
			Burst:             40,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
			MaxAge:       86400,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads DS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("DS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("DS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DS_INDEXER_DATA_DIR"); v != "" {
		cfg.Indexer.DataDir = v
	}
	if v := os.Getenv("DS_SEARCH_INDEXES"); v != "" {
		cfg.Search.Indexes = parseIndexList(v)
	}
	if v := os.Getenv("DS_AUTH_ADMIN_KEY_HASHES"); v != "" {
		cfg.Auth.AdminKeyHashes = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("DS_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}

// parseIndexList parses "name=path,name=path". An entry without "=" uses
// the path as its name.
func parseIndexList(v string) []IndexSource {
	var sources []IndexSource
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, path, ok := strings.Cut(item, "=")
		if !ok {
			path = name
		}
		sources = append(sources, IndexSource{Name: name, Path: path})
	}
	return sources
}

// ParseIndexFlag parses a single "name=path" command-line value.
func ParseIndexFlag(v string) (IndexSource, error) {
	sources := parseIndexList(v)
	if len(sources) != 1 {
		return IndexSource{}, fmt.Errorf("expected name=path, got %q", v)
	}
	return sources[0], nil
}
