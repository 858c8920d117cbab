package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"tumulte/database"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseName     string `env:"DATABASE_NAME"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`

	// NATS configuration (comma-separated server addresses)
	NATSServers string `env:"NATS_SERVERS" envDefault:"nats://nats:4222"`

	// Redis backs the cooldown cache and the infrastructure pre-flight probe
	RedisURL string `env:"REDIS_URL" envDefault:"redis://redis:6379/0"`

	// Twitch configuration
	TwitchClientID            string        `env:"TWITCH_CLIENT_ID"`
	TwitchClientSecret        string        `env:"TWITCH_CLIENT_SECRET"`
	TwitchAPIBaseURL          string        `env:"TWITCH_API_BASE_URL" envDefault:"https://api.twitch.tv/helix"`
	TwitchAuthBaseURL         string        `env:"TWITCH_AUTH_BASE_URL" envDefault:"https://id.twitch.tv/oauth2"`
	TwitchEventSubCallbackURL string        `env:"TWITCH_EVENTSUB_CALLBACK_URL"`
	TwitchEventSubSecret      string        `env:"TWITCH_EVENTSUB_SECRET"`
	TwitchRequestTimeout      time.Duration `env:"TWITCH_REQUEST_TIMEOUT" envDefault:"10s"`

	// HTTP surface: health, VTT websocket and pre-flight
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Worker intervals
	ExpireSweepInterval       time.Duration `env:"EXPIRE_SWEEP_INTERVAL" envDefault:"10s"`
	ArmedSweepInterval        time.Duration `env:"ARMED_SWEEP_INTERVAL" envDefault:"5s"`
	OrphanSweepInterval       time.Duration `env:"ORPHAN_SWEEP_INTERVAL" envDefault:"1m"`
	EventSubReconcileInterval time.Duration `env:"EVENTSUB_RECONCILE_INTERVAL" envDefault:"15m"`

	// VTTCommandTimeout bounds the wait for a Foundry command response
	VTTCommandTimeout time.Duration `env:"VTT_COMMAND_TIMEOUT" envDefault:"10s"`

	// Metrics configuration
	MetricsExporter     string        `env:"METRICS_EXPORTER" envDefault:"stdout"`
	OTLPEndpoint        string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	MetricsExportPeriod time.Duration `env:"OTEL_METRIC_EXPORT_INTERVAL" envDefault:"30s"`
	ServiceName         string        `env:"OTEL_SERVICE_NAME" envDefault:"tumulte"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// NATSServerList splits NATSServers into individual addresses
func (c *Config) NATSServerList() []string {
	var servers []string
	for _, s := range strings.Split(c.NATSServers, ",") {
		if s = strings.TrimSpace(s); s != "" {
			servers = append(servers, s)
		}
	}
	return servers
}

// IsProduction returns true in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func load() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Environment == "test" {
		return nil
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.TwitchClientID == "" {
		return fmt.Errorf("TWITCH_CLIENT_ID is required")
	}
	if c.TwitchClientSecret == "" {
		return fmt.Errorf("TWITCH_CLIENT_SECRET is required")
	}
	if c.ExpireSweepInterval <= 0 || c.OrphanSweepInterval <= 0 || c.EventSubReconcileInterval <= 0 || c.ArmedSweepInterval <= 0 {
		return fmt.Errorf("worker intervals must be positive")
	}
	switch c.MetricsExporter {
	case "stdout", "otlp", "none":
	default:
		return fmt.Errorf("unknown METRICS_EXPORTER %q", c.MetricsExporter)
	}

	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:               "test",
		NATSServers:               "nats://localhost:4222",
		RedisURL:                  "redis://localhost:6379/0",
		TwitchAPIBaseURL:          "http://localhost/helix",
		TwitchAuthBaseURL:         "http://localhost/oauth2",
		TwitchRequestTimeout:      time.Second,
		HTTPAddr:                  ":0",
		ExpireSweepInterval:       time.Second,
		ArmedSweepInterval:        time.Second,
		OrphanSweepInterval:       time.Second,
		EventSubReconcileInterval: time.Second,
		VTTCommandTimeout:         time.Second,
		MetricsExporter:           "none",
		ServiceName:               "tumulte-test",
		LogLevel:                  "debug",
	}
}
