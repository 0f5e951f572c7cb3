package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Env      Environment `envconfig:"ENV" default:"development"`
	LogLevel string      `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool        `envconfig:"DEBUG" default:"false"`

	// Application
	App AppConfig

	// Server
	Server ServerConfig

	// Gemini LLM
	Gemini GeminiConfig

	// Web search
	Search SearchConfig

	// Browser automation
	Browser BrowserConfig

	// URL resolution
	Resolver ResolverConfig

	// Forms registry
	Registry RegistryConfig

	// Redis (optional, LLM cache + rate limiting)
	Redis RedisConfig

	// Database (optional, resolution audit log)
	Database DatabaseConfig

	// Storage (optional, step screenshots)
	Storage StorageConfig
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"formnav"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"APP_LOG_LEVEL" default:"info"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"300s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimit       int           `envconfig:"SERVER_RATE_LIMIT_PER_MIN" default:"30"`
	EnableCORS      bool          `envconfig:"SERVER_ENABLE_CORS" default:"true"`
}

// GeminiConfig holds Gemini LLM settings
type GeminiConfig struct {
	APIKey       string        `envconfig:"GEMINI_API_KEY" required:"true"`
	Model        string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	BaseURL      string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	Timeout      time.Duration `envconfig:"GEMINI_TIMEOUT" default:"60s"`
	RateLimitRPM int           `envconfig:"GEMINI_RATE_LIMIT_RPM" default:"30"`
	CacheTTL     time.Duration `envconfig:"GEMINI_CACHE_TTL" default:"1h"`
	MaxRetries   int           `envconfig:"GEMINI_MAX_RETRIES" default:"3"`
}

// SearchConfig holds web search provider settings
type SearchConfig struct {
	Endpoint   string        `envconfig:"SEARCH_ENDPOINT" default:"https://duckduckgo.com/html/"`
	MaxResults int           `envconfig:"SEARCH_MAX_RESULTS" default:"6"`
	Timeout    time.Duration `envconfig:"SEARCH_TIMEOUT" default:"15s"`

	// Host patterns that earn the government-domain score boost
	GovDomainPatterns []string `envconfig:"SEARCH_GOV_DOMAIN_PATTERNS" default:".gov.in,incometax.gov.in,nta.ac.in,nic.in"`
}

// BrowserConfig holds browser automation settings
type BrowserConfig struct {
	Headless   bool   `envconfig:"BROWSER_HEADLESS" default:"true"`
	UserAgent  string `envconfig:"BROWSER_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"`
	Locale     string `envconfig:"BROWSER_LOCALE" default:"en-US"`
	TimezoneID string `envconfig:"BROWSER_TIMEZONE" default:"Asia/Kolkata"`
	Width      int    `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"1366"`
	Height     int    `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"768"`
}

// ResolverConfig holds URL resolution settings
type ResolverConfig struct {
	// Per-candidate navigation timeout. Deliberately does NOT bound the
	// login wait, which has its own ceiling below.
	Timeout time.Duration `envconfig:"RESOLVER_TIMEOUT" default:"20s"`

	// Maximum candidates to verify/navigate per resolution
	MaxCandidates int `envconfig:"RESOLVER_MAX_CANDIDATES" default:"5"`

	// Navigation hop budget per candidate
	MaxAttempts int `envconfig:"RESOLVER_MAX_ATTEMPTS" default:"3"`

	// Pause for dynamic content to settle after each navigation
	SettleDelay time.Duration `envconfig:"RESOLVER_SETTLE_DELAY" default:"2s"`

	// Manual login wait: interval x max polls is the independent ceiling
	// (~3 minutes by default)
	LoginWaitInterval time.Duration `envconfig:"RESOLVER_LOGIN_WAIT_INTERVAL" default:"5s"`
	LoginWaitMaxPolls int           `envconfig:"RESOLVER_LOGIN_WAIT_MAX_POLLS" default:"36"`
}

// RegistryConfig holds forms registry settings
type RegistryConfig struct {
	Path string `envconfig:"REGISTRY_PATH" default:"forms.json"`
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	Enabled      bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Host         string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port         int           `envconfig:"REDIS_PORT" default:"6379"`
	Password     string        `envconfig:"REDIS_PASSWORD" default:""`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Addr returns Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL settings for the resolution audit log
type DatabaseConfig struct {
	Enabled         bool          `envconfig:"DB_ENABLED" default:"false"`
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"formnav"`
	Password        string        `envconfig:"DB_PASSWORD" default:""`
	Database        string        `envconfig:"DB_NAME" default:"formnav"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// StorageConfig holds object storage settings for step screenshots
type StorageConfig struct {
	Enabled   bool   `envconfig:"STORAGE_ENABLED" default:"false"`
	Endpoint  string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"STORAGE_BUCKET" default:"formnav"`
	UseSSL    bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config without failing on missing required fields (for CLI tools)
func LoadWithDefaults() (*Config, error) {
	var cfg Config
	envconfig.Process("", &cfg)
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.Gemini.APIKey == "" {
		errs = append(errs, "GEMINI_API_KEY is required")
	}

	if c.Resolver.MaxAttempts < 1 {
		errs = append(errs, "RESOLVER_MAX_ATTEMPTS must be at least 1")
	}
	if c.Resolver.MaxCandidates < 1 {
		errs = append(errs, "RESOLVER_MAX_CANDIDATES must be at least 1")
	}
	if c.Resolver.LoginWaitMaxPolls < 1 {
		errs = append(errs, "RESOLVER_LOGIN_WAIT_MAX_POLLS must be at least 1")
	}

	if c.Database.Enabled && c.Database.Password == "" && c.Env != EnvDevelopment {
		errs = append(errs, "DB_PASSWORD is required when the audit log is enabled outside development")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// GetLogLevel returns the appropriate zap log level
func (c *Config) GetLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}
