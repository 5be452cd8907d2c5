// Package config loads the YAML configuration selected by ENV.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the Sparko API and worker configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Papers    PapersConfig    `yaml:"papers"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Queue     QueueConfig     `yaml:"queue"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Worker    WorkerConfig    `yaml:"worker"`
	CORS      CORSConfig      `yaml:"cors"`
	Auth      AuthConfig      `yaml:"auth"`
	Taxonomy  TaxonomyConfig  `yaml:"taxonomy"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis/Valkey connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PapersConfig holds the relational database with the paper catalog.
type PapersConfig struct {
	Driver       string `yaml:"driver"` // postgres, sqlite (default: sqlite)
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
}

// JobsConfig selects the job store.
type JobsConfig struct {
	Store string `yaml:"store"` // redis, sql (default: redis)
}

// QueueConfig selects the job message transport.
type QueueConfig struct {
	Driver   string `yaml:"driver"` // redis, memory (default: redis)
	Stream   string `yaml:"stream"`
	Group    string `yaml:"group"`
	Consumer string `yaml:"consumer"`
	BlockMs  int    `yaml:"block_ms"`
	Batch    int    `yaml:"batch"`
	Size     int    `yaml:"size"` // memory driver buffer
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string           `yaml:"provider"` // service, openai (default: service)
	URL        string           `yaml:"url"`
	Model      string           `yaml:"model"` // metrics label for the service provider
	TimeoutSec int              `yaml:"timeout_sec"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Cache      EmbedCacheConfig `yaml:"cache"`
}

// RateLimitConfig caps outgoing embedding requests. RPS 0 disables the limit.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// OpenAIConfig holds settings for an OpenAI-compatible embeddings API.
type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	ProjectionAxes [2]int `yaml:"projection_axes"`
}

// EmbedCacheConfig controls the embedding result cache.
type EmbedCacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 = no expiry
}

// WorkerConfig holds queue consumer settings.
type WorkerConfig struct {
	Concurrency     int `yaml:"concurrency"`
	EmbedTimeoutSec int `yaml:"embed_timeout_sec"`
}

// CORSConfig holds cross-origin settings. No origins disables CORS handling.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAgeSec        int      `yaml:"max_age_sec"`
}

// TaxonomyConfig points at the journal taxonomy file.
type TaxonomyConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig holds Cache-Control max-age values for polled responses.
type CacheConfig struct {
	JobMaxAgeSec    int `yaml:"job_max_age_sec"`
	PapersMaxAgeSec int `yaml:"papers_max_age_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML after ${VAR} substitution, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Papers.Driver == "" {
		c.Papers.Driver = "sqlite"
	}
	if c.Papers.DSN == "" && c.Papers.Driver == "sqlite" {
		c.Papers.DSN = "db/local.db"
	}
	if c.Jobs.Store == "" {
		c.Jobs.Store = "redis"
	}
	if c.Queue.Driver == "" {
		c.Queue.Driver = "redis"
	}
	if c.Queue.Stream == "" {
		c.Queue.Stream = "sparko:jobs"
	}
	if c.Queue.Group == "" {
		c.Queue.Group = "sparko-workers"
	}
	if c.Queue.Consumer == "" {
		c.Queue.Consumer, _ = os.Hostname()
	}
	if c.Queue.BlockMs <= 0 {
		c.Queue.BlockMs = 5000
	}
	if c.Queue.Batch <= 0 {
		c.Queue.Batch = 10
	}
	if c.Queue.Size <= 0 {
		c.Queue.Size = 1024
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "service"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 60
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 4
	}
	if c.Worker.EmbedTimeoutSec <= 0 {
		c.Worker.EmbedTimeoutSec = 30
	}
	if c.Taxonomy.Path == "" {
		c.Taxonomy.Path = "config/journals.yml"
	}
	if c.Cache.JobMaxAgeSec <= 0 {
		c.Cache.JobMaxAgeSec = 10
	}
	if c.Cache.PapersMaxAgeSec <= 0 {
		c.Cache.PapersMaxAgeSec = 300
	}
	if c.CORS.MaxAgeSec <= 0 {
		c.CORS.MaxAgeSec = 300
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if err := oneOf("database.driver", c.Database.Driver, "valkey", "redis"); err != nil {
		return err
	}
	if err := oneOf("papers.driver", c.Papers.Driver, "postgres", "sqlite"); err != nil {
		return err
	}
	if c.Papers.DSN == "" {
		return errors.New("papers.dsn is required")
	}
	if err := oneOf("jobs.store", c.Jobs.Store, "redis", "sql"); err != nil {
		return err
	}
	if err := oneOf("queue.driver", c.Queue.Driver, "redis", "memory"); err != nil {
		return err
	}
	if (c.Jobs.Store == "redis" || c.Queue.Driver == "redis" || c.Embedding.Cache.Enabled) &&
		len(c.Database.Addrs) == 0 {
		return errors.New("database.addrs is required for redis job store, redis queue or embedding cache")
	}
	if err := oneOf("embedding.provider", c.Embedding.Provider, "service", "openai"); err != nil {
		return err
	}
	if c.Embedding.Provider == "openai" && c.Embedding.OpenAI.Model == "" {
		return errors.New("embedding.openai.model is required for the openai provider")
	}
	if c.Embedding.RateLimit.RPS < 0 {
		return fmt.Errorf("embedding.rate_limit.rps must not be negative, got %v", c.Embedding.RateLimit.RPS)
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), value)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
