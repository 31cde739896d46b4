package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Session   SessionConfig   `mapstructure:"session"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

// DiscoveryConfig configures the generative discovery provider.
type DiscoveryConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// RoutingConfig configures the OSRM-compatible routing provider.
type RoutingConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// SpeechConfig configures text-to-speech synthesis.
type SpeechConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Voice   string `mapstructure:"voice"`
	Enabled bool   `mapstructure:"enabled"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// SessionConfig tunes the navigation session state machine.
type SessionConfig struct {
	CachePrecision     int     `mapstructure:"cache_precision"`      // decimal places for coordinate cache keys
	DisplacementMeters float64 `mapstructure:"displacement_meters"`  // min movement before a track point is recorded
	ArrivalMeters      float64 `mapstructure:"arrival_meters"`       // distance to target that counts as arrived
	CoverMeters        float64 `mapstructure:"cover_meters"`         // distance to a district that marks it covered
	FollowRouteOnStart bool    `mapstructure:"follow_route_on_start"` // selecting a target also enables tracking
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "wayfind")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "wayfind")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.enabled", false)
	v.SetDefault("discovery.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("discovery.model", "gemini-2.0-flash")
	v.SetDefault("discovery.timeout", 30)
	v.SetDefault("routing.base_url", "https://router.project-osrm.org")
	v.SetDefault("routing.timeout", 15)
	v.SetDefault("speech.base_url", "")
	v.SetDefault("speech.voice", "default")
	v.SetDefault("speech.enabled", false)
	v.SetDefault("speech.timeout", 10)
	v.SetDefault("session.cache_precision", 4)
	v.SetDefault("session.displacement_meters", 15.0)
	v.SetDefault("session.arrival_meters", 40.0)
	v.SetDefault("session.cover_meters", 250.0)
	v.SetDefault("session.follow_route_on_start", false)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: WAYFIND_DATABASE_HOST → database.host
	v.SetEnvPrefix("WAYFIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey.enabled")
	}
	if c.Discovery.BaseURL == "" {
		errs = append(errs, "discovery.base_url is required")
	}
	if c.Routing.BaseURL == "" {
		errs = append(errs, "routing.base_url is required")
	}
	if c.Speech.Enabled && c.Speech.BaseURL == "" {
		errs = append(errs, "speech.base_url is required when speech.enabled")
	}
	if c.Session.CachePrecision < 0 || c.Session.CachePrecision > 8 {
		errs = append(errs, fmt.Sprintf("session.cache_precision must be 0-8, got %d", c.Session.CachePrecision))
	}
	if c.Session.DisplacementMeters < 0 {
		errs = append(errs, "session.displacement_meters must not be negative")
	}
	if c.Session.ArrivalMeters <= 0 {
		errs = append(errs, "session.arrival_meters must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
