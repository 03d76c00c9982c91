package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dropship/backend/internal/domain/integration"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Fetcher    FetcherConfig
	Aggregator AggregatorConfig
	Scheduler  SchedulerConfig
	Telemetry  TelemetryConfig
	Datasets   []DatasetConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite, memory
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite database file
	AutoMigrate     bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	SlowQuery       time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	RequestTimeout    time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// FetcherConfig holds feed download settings
type FetcherConfig struct {
	Attempts     int
	BackoffUnit  time.Duration // wait before retry n is n * BackoffUnit
	Timeout      time.Duration // per attempt
	MaxBodyBytes int64
	RateLimit    float64 // requests per second shared by all downloads, 0 = unlimited
	RateBurst    int
	UserAgent    string
}

// AggregatorConfig holds catalog aggregation settings
type AggregatorConfig struct {
	MaxConcurrentSources int
	CacheEnabled         bool
	CacheTTL             time.Duration
}

// SchedulerConfig holds sync job scheduler configuration
type SchedulerConfig struct {
	Enabled       bool
	Workers       int
	PollInterval  time.Duration
	JobTimeout    time.Duration
	StaleAfter    time.Duration // RUNNING longer than this is reclaimed by the reaper
	ReapInterval  time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// TelemetryConfig holds Prometheus metrics configuration
type TelemetryConfig struct {
	Enabled           bool
	Namespace         string
	RuntimeCollectors bool
	Path              string
}

// DatasetConfig names a set of feed sources synchronized together
type DatasetConfig struct {
	ID      string                         `mapstructure:"id"`
	Name    string                         `mapstructure:"name"`
	UserID  string                         `mapstructure:"user_id"`
	Sources []integration.DataSourceConfig `mapstructure:"sources"`
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with DROPSHIP_ prefix (e.g., DROPSHIP_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return loadFrom(v)
}

// loadFrom builds the configuration from a prepared viper instance
func loadFrom(v *viper.Viper) (*Config, error) {
	// Enable environment variable override
	v.SetEnvPrefix("DROPSHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			SlowQuery:       v.GetDuration("database.slow_query"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			RequestTimeout:    v.GetDuration("http.request_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Fetcher: FetcherConfig{
			Attempts:     v.GetInt("fetcher.attempts"),
			BackoffUnit:  v.GetDuration("fetcher.backoff_unit"),
			Timeout:      v.GetDuration("fetcher.timeout"),
			MaxBodyBytes: v.GetInt64("fetcher.max_body_bytes"),
			RateLimit:    v.GetFloat64("fetcher.rate_limit"),
			RateBurst:    v.GetInt("fetcher.rate_burst"),
			UserAgent:    v.GetString("fetcher.user_agent"),
		},
		Aggregator: AggregatorConfig{
			MaxConcurrentSources: v.GetInt("aggregator.max_concurrent_sources"),
			CacheEnabled:         v.GetBool("aggregator.cache_enabled"),
			CacheTTL:             v.GetDuration("aggregator.cache_ttl"),
		},
		Scheduler: SchedulerConfig{
			Enabled:       v.GetBool("scheduler.enabled"),
			Workers:       v.GetInt("scheduler.workers"),
			PollInterval:  v.GetDuration("scheduler.poll_interval"),
			JobTimeout:    v.GetDuration("scheduler.job_timeout"),
			StaleAfter:    v.GetDuration("scheduler.stale_after"),
			ReapInterval:  v.GetDuration("scheduler.reap_interval"),
			MaxRetries:    v.GetInt("scheduler.max_retries"),
			RetryDelay:    v.GetDuration("scheduler.retry_delay"),
			MaxRetryDelay: v.GetDuration("scheduler.max_retry_delay"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			Namespace:         v.GetString("telemetry.namespace"),
			RuntimeCollectors: v.GetBool("telemetry.runtime_collectors"),
			Path:              v.GetString("telemetry.path"),
		},
	}

	if err := v.UnmarshalKey("datasets", &cfg.Datasets); err != nil {
		return nil, fmt.Errorf("error decoding datasets: %w", err)
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "dropship-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "dropship"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "dropship.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.SlowQuery == 0 {
		cfg.Database.SlowQuery = 200 * time.Millisecond
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// Aggregation requests download whole feeds
		cfg.HTTP.WriteTimeout = 5 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.RequestTimeout == 0 {
		cfg.HTTP.RequestTimeout = 4 * time.Minute
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID", "X-User-ID"}
	}
	if cfg.Fetcher.Attempts == 0 {
		cfg.Fetcher.Attempts = 3
	}
	if cfg.Fetcher.BackoffUnit == 0 {
		cfg.Fetcher.BackoffUnit = time.Second
	}
	if cfg.Fetcher.Timeout == 0 {
		cfg.Fetcher.Timeout = 60 * time.Second
	}
	if cfg.Fetcher.MaxBodyBytes == 0 {
		cfg.Fetcher.MaxBodyBytes = 100 << 20 // 100MB
	}
	if cfg.Fetcher.RateBurst == 0 {
		cfg.Fetcher.RateBurst = 1
	}
	if cfg.Fetcher.UserAgent == "" {
		cfg.Fetcher.UserAgent = "dropship-feed-fetcher/1.0"
	}
	if cfg.Aggregator.MaxConcurrentSources == 0 {
		cfg.Aggregator.MaxConcurrentSources = 4
	}
	if cfg.Aggregator.CacheTTL == 0 {
		cfg.Aggregator.CacheTTL = 10 * time.Minute
	}
	if cfg.Scheduler.Workers == 0 {
		cfg.Scheduler.Workers = 2
	}
	if cfg.Scheduler.PollInterval == 0 {
		cfg.Scheduler.PollInterval = 5 * time.Second
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.StaleAfter == 0 {
		cfg.Scheduler.StaleAfter = time.Hour
	}
	if cfg.Scheduler.ReapInterval == 0 {
		cfg.Scheduler.ReapInterval = 5 * time.Minute
	}
	if cfg.Scheduler.MaxRetries == 0 {
		cfg.Scheduler.MaxRetries = 3
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = 30 * time.Second
	}
	if cfg.Scheduler.MaxRetryDelay == 0 {
		cfg.Scheduler.MaxRetryDelay = 30 * time.Minute
	}
	if cfg.Telemetry.Namespace == "" {
		cfg.Telemetry.Namespace = "dropship"
	}
	if cfg.Telemetry.Path == "" {
		cfg.Telemetry.Path = "/metrics"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of postgres, sqlite, memory, got %q", c.Database.Driver)
	}

	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Fetcher.Attempts < 1 {
		return fmt.Errorf("fetcher.attempts must be at least 1")
	}
	if c.Fetcher.RateLimit < 0 {
		return fmt.Errorf("fetcher.rate_limit cannot be negative")
	}
	if c.Aggregator.MaxConcurrentSources < 1 {
		return fmt.Errorf("aggregator.max_concurrent_sources must be at least 1")
	}
	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("scheduler.workers must be at least 1")
	}
	if c.Scheduler.MaxRetries < 0 {
		return fmt.Errorf("scheduler.max_retries cannot be negative")
	}
	if c.Scheduler.StaleAfter <= c.Scheduler.JobTimeout {
		return fmt.Errorf("scheduler.stale_after (%s) must exceed scheduler.job_timeout (%s)",
			c.Scheduler.StaleAfter, c.Scheduler.JobTimeout)
	}

	seen := make(map[string]bool, len(c.Datasets))
	for i, ds := range c.Datasets {
		if ds.ID == "" {
			return fmt.Errorf("datasets[%d].id is required", i)
		}
		if seen[ds.ID] {
			return fmt.Errorf("datasets[%d].id %q is duplicated", i, ds.ID)
		}
		seen[ds.ID] = true
		for j, src := range ds.Sources {
			if err := src.Validate(); err != nil {
				return fmt.Errorf("datasets[%d].sources[%d]: %w", i, j, err)
			}
		}
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Driver == DriverMemory {
			return fmt.Errorf("database.driver=memory is not allowed in production")
		}
		if c.Database.Driver == DriverPostgres {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// Dataset returns the dataset with the given ID
func (c *Config) Dataset(id string) (DatasetConfig, bool) {
	for _, ds := range c.Datasets {
		if ds.ID == id {
			return ds, true
		}
	}
	return DatasetConfig{}, false
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
