package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the fleetsync pipeline.
type Config struct {
	Organization OrganizationConfig `mapstructure:"organization"`
	Samsara      SamsaraConfig      `mapstructure:"samsara"`
	CAT          CATConfig          `mapstructure:"cat"`
	Sync         SyncConfig         `mapstructure:"sync"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	NATS         NATSConfig         `mapstructure:"nats"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// OrganizationConfig scopes every identity and position write to one tenant.
type OrganizationConfig struct {
	ID string `mapstructure:"id"`
}

// SamsaraConfig holds the Samsara fleet API client settings.
type SamsaraConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	APIToken  string        `mapstructure:"api_token"`
	PageLimit int           `mapstructure:"page_limit"`
	PageDelay time.Duration `mapstructure:"page_delay"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// CATConfig holds the CAT ISO 15143 fleet API client settings.
type CATConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BaseURL      string        `mapstructure:"base_url"`
	TokenURL     string        `mapstructure:"token_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	MaxPages     int           `mapstructure:"max_pages"`
	PageDelay    time.Duration `mapstructure:"page_delay"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// SyncConfig holds the pipeline policy knobs.
type SyncConfig struct {
	FreshnessMaxAge time.Duration `mapstructure:"freshness_max_age"`
	MaxSiteDistance float64       `mapstructure:"max_site_distance"`
	DistanceUnit    string        `mapstructure:"distance_unit"`
	PersistWorkers  int           `mapstructure:"persist_workers"`

	// FetchTimeout bounds one adapter's whole fetch, pagination included.
	// It must leave room for a full multi-page walk, so it is far larger
	// than the providers' per-request timeouts. Zero disables the bound.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Database   string `mapstructure:"database"`
	SSLMode    string `mapstructure:"sslmode"`
	Migrations string `mapstructure:"migrations"`
}

// ConnString builds the postgres:// connection URL.
func (p PostgresConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

// RedisConfig holds the pass-lock Redis settings.
type RedisConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

// NATSConfig holds the optional pass-report publisher settings.
type NATSConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Subject string        `mapstructure:"subject"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MetricsConfig holds the optional Pushgateway settings.
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// LoggingConfig holds log level and format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("organization.id", "")

	v.SetDefault("samsara.enabled", true)
	v.SetDefault("samsara.base_url", "https://api.samsara.com")
	v.SetDefault("samsara.page_limit", 200)
	v.SetDefault("samsara.page_delay", "200ms")
	v.SetDefault("samsara.timeout", "30s")

	v.SetDefault("cat.enabled", false)
	v.SetDefault("cat.base_url", "https://api.cat.com")
	v.SetDefault("cat.max_pages", 50)
	v.SetDefault("cat.page_delay", "200ms")
	v.SetDefault("cat.timeout", "30s")

	v.SetDefault("sync.freshness_max_age", "336h")
	v.SetDefault("sync.max_site_distance", 2.0)
	v.SetDefault("sync.distance_unit", "mi")
	v.SetDefault("sync.persist_workers", 4)
	v.SetDefault("sync.fetch_timeout", "5m")

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "fleetsync")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "fleetsync")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.migrations", "file://migrations")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.lock_ttl", "15m")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "fleetsync.pass.report")
	v.SetDefault("nats.timeout", "5s")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.pushgateway_url", "http://localhost:9091")
	v.SetDefault("metrics.job", "fleetsync")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/fleetsync")
	}

	// Environment variables override
	v.SetEnvPrefix("FLEETSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
