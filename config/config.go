package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"btclotto/database"
	"btclotto/domain/entities"

	"github.com/caarlos0/env/v6"
	"github.com/spf13/viper"
)

// Ledger client modes
const (
	LedgerModeGRPC   = "grpc"
	LedgerModeMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Database configuration
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseName     string `env:"DATABASE_NAME"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`

	// HTTP API
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	JWTSecret string `env:"JWT_SECRET"`

	// Identities
	DeployerPrincipal string `env:"DEPLOYER_PRINCIPAL"`
	TreasuryPrincipal string `env:"TREASURY_PRINCIPAL"`

	// External ledger
	LedgerMode       string        `env:"LEDGER_MODE" envDefault:"memory"`
	LedgerAddr       string        `env:"LEDGER_ADDR"`
	LedgerCanisterID string        `env:"LEDGER_CANISTER_ID" envDefault:"mxzaz-hqaaa-aaaar-qaada-cai"`
	LedgerFee        uint64        `env:"LEDGER_FEE" envDefault:"10"`
	LedgerTimeout    time.Duration `env:"LEDGER_TIMEOUT" envDefault:"10s"`

	// NATS configuration
	NATSEnabled bool   `env:"NATS_ENABLED" envDefault:"false"`
	NATSServers string `env:"NATS_SERVERS" envDefault:"nats://nats:4222"`

	// Redis stats cache, disabled when the address is empty
	RedisAddr     string        `env:"REDIS_ADDR"`
	StatsCacheTTL time.Duration `env:"STATS_CACHE_TTL" envDefault:"10s"`

	// Metrics
	OTelServiceName string        `env:"OTEL_SERVICE_NAME" envDefault:"btclotto"`
	MetricsExporter string        `env:"OTEL_METRICS_EXPORTER" envDefault:"none"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	MetricsInterval time.Duration `env:"OTEL_METRIC_EXPORT_INTERVAL" envDefault:"30s"`

	// Workers
	RoundSchedulerEnabled      bool          `env:"ROUND_SCHEDULER_ENABLED" envDefault:"true"`
	DepositPollInterval        time.Duration `env:"DEPOSIT_POLL_INTERVAL" envDefault:"0s"`
	ConsolidateDeposits        bool          `env:"CONSOLIDATE_DEPOSITS" envDefault:"false"`
	WithdrawalRecoveryInterval time.Duration `env:"WITHDRAWAL_RECOVERY_INTERVAL" envDefault:"1m"`

	// Product settings, overridable from CONFIG_FILE
	BetCost       uint64        `env:"BET_COST" envDefault:"1000000"`
	RoundDuration time.Duration `env:"ROUND_DURATION" envDefault:"5m"`
	UnitDecimals  int32         `env:"UNIT_DECIMALS" envDefault:"8"`
	ConfigFile    string        `env:"CONFIG_FILE"`
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
			if os.Getenv("ENVIRONMENT") == "test" {
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

// Rules returns the lottery rules every new round is created with
func (c *Config) Rules() entities.LotteryRules {
	return entities.LotteryRules{
		BetCost:       c.BetCost,
		RoundDuration: c.RoundDuration,
	}
}

// Treasury returns the principal owning the pooled funds and deposit subaccounts
func (c *Config) Treasury() (entities.Principal, error) {
	return entities.ParsePrincipal(c.TreasuryPrincipal)
}

// Deployer returns the principal allowed to initialize admin, empty if unset
func (c *Config) Deployer() (entities.Principal, error) {
	if c.DeployerPrincipal == "" {
		return "", nil
	}
	return entities.ParsePrincipal(c.DeployerPrincipal)
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func load() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if config.ConfigFile != "" {
		if err := applySettingsFile(config, config.ConfigFile); err != nil {
			return nil, err
		}
	}

	if config.Environment != "test" {
		if err := config.Validate(); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// applySettingsFile overrides product settings from a YAML, TOML or JSON file
func applySettingsFile(config *Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if v.IsSet("bet_cost") {
		config.BetCost = v.GetUint64("bet_cost")
	}
	if v.IsSet("round_duration") {
		config.RoundDuration = v.GetDuration("round_duration")
	}
	if v.IsSet("unit_decimals") {
		config.UnitDecimals = v.GetInt32("unit_decimals")
	}
	return nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if _, err := c.Treasury(); err != nil {
		return fmt.Errorf("TREASURY_PRINCIPAL is invalid: %w", err)
	}
	if _, err := c.Deployer(); err != nil {
		return fmt.Errorf("DEPLOYER_PRINCIPAL is invalid: %w", err)
	}
	switch c.LedgerMode {
	case LedgerModeMemory:
	case LedgerModeGRPC:
		if c.LedgerAddr == "" {
			return fmt.Errorf("LEDGER_ADDR is required when LEDGER_MODE=grpc")
		}
	default:
		return fmt.Errorf("unknown LEDGER_MODE %q", c.LedgerMode)
	}
	if err := c.Rules().Validate(); err != nil {
		return fmt.Errorf("invalid lottery rules: %w", err)
	}
	if c.UnitDecimals < 0 || c.UnitDecimals > 18 {
		return fmt.Errorf("UNIT_DECIMALS must be between 0 and 18")
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
		Environment:       "test",
		LogLevel:          "debug",
		HTTPAddr:          ":0",
		JWTSecret:         "test-secret",
		TreasuryPrincipal: "ryjl3-tyaaa-aaaaa-aaaba-cai",
		LedgerMode:        LedgerModeMemory,
		LedgerFee:         10,
		LedgerTimeout:     time.Second,
		StatsCacheTTL:     time.Second,
		OTelServiceName:   "btclotto-test",
		MetricsExporter:   "none",
		BetCost:           1_000_000,
		RoundDuration:     5 * time.Minute,
		UnitDecimals:      8,
	}
}
