package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Dispatch DispatchConfig `yaml:"dispatch" mapstructure:"dispatch"`
	Fallback FallbackConfig `yaml:"fallback" mapstructure:"fallback"`
	Office   OfficeConfig   `yaml:"office" mapstructure:"office"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	// Driver is one of sqlite, postgres or dynamodb.
	Driver      string       `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string       `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32        `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32        `yaml:"min_conns" mapstructure:"min_conns"`
	Dynamo      DynamoConfig `yaml:"dynamo" mapstructure:"dynamo"`
}

// DynamoConfig locates the DynamoDB tables.
type DynamoConfig struct {
	Region       string `yaml:"region" mapstructure:"region"`
	Endpoint     string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey    string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey    string `yaml:"secret_key" mapstructure:"secret_key"`
	BudgetsTable string `yaml:"budgets_table" mapstructure:"budgets_table"`
	ConfigsTable string `yaml:"configs_table" mapstructure:"configs_table"`
}

// DispatchConfig sizes the task dispatcher.
type DispatchConfig struct {
	// Workers of 0 means min(NumCPU, 4).
	Workers          int `yaml:"workers" mapstructure:"workers"`
	BatchTimeoutSecs int `yaml:"batch_timeout_secs" mapstructure:"batch_timeout_secs"`
	RestartBackoffMs int `yaml:"restart_backoff_ms" mapstructure:"restart_backoff_ms"`
}

// BatchTimeout returns the batch window as a duration.
func (d DispatchConfig) BatchTimeout() time.Duration {
	return time.Duration(d.BatchTimeoutSecs) * time.Second
}

// RestartBackoff returns the crashed-worker restart delay.
func (d DispatchConfig) RestartBackoff() time.Duration {
	return time.Duration(d.RestartBackoffMs) * time.Millisecond
}

// FallbackConfig tunes the inference engine.
type FallbackConfig struct {
	DefaultArea float64 `yaml:"default_area" mapstructure:"default_area"`
}

// OfficeConfig points at the pricing configuration given to new tenants.
type OfficeConfig struct {
	// DefaultsFile is an optional YAML office configuration. Empty uses the
	// built-in defaults.
	DefaultsFile string `yaml:"defaults_file" mapstructure:"defaults_file"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	RateLimit       float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst       int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins  []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ShutdownTimeout int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// ExportConfig configures workbook uploads to S3-compatible storage.
type ExportConfig struct {
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey      string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey      string `yaml:"secret_key" mapstructure:"secret_key"`
	Region         string `yaml:"region" mapstructure:"region"`
	Bucket         string `yaml:"bucket" mapstructure:"bucket"`
	UseSSL         bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
	RetryAttempts  int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs int    `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BRIEFING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "briefing.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("store.dynamo.region", "us-east-1")
	v.SetDefault("store.dynamo.budgets_table", "budgets")
	v.SetDefault("store.dynamo.configs_table", "office_configs")
	v.SetDefault("dispatch.workers", 0)
	v.SetDefault("dispatch.batch_timeout_secs", 30)
	v.SetDefault("dispatch.restart_backoff_ms", 500)
	v.SetDefault("fallback.default_area", 150)
	v.SetDefault("office.defaults_file", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 15)
	v.SetDefault("export.bucket", "proposals")
	v.SetDefault("export.region", "us-east-1")
	v.SetDefault("export.retry_attempts", 3)
	v.SetDefault("export.retry_backoff_ms", 500)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: "calculate",
// "serve", "export", "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "calculate":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server.rate_limit must be >= 0")
		}
	case "export":
		if c.Export.Endpoint == "" {
			errs = append(errs, "export.endpoint is required")
		}
		if c.Export.Bucket == "" {
			errs = append(errs, "export.bucket is required")
		}
	case "migrate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for "+c.Store.Driver)
		}
	case "dynamodb":
		if c.Store.Dynamo.BudgetsTable == "" || c.Store.Dynamo.ConfigsTable == "" {
			errs = append(errs, "store.dynamo tables are required")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, postgres, dynamodb", c.Store.Driver))
	}

	if c.Dispatch.Workers < 0 {
		errs = append(errs, "dispatch.workers must be >= 0")
	}
	if c.Dispatch.BatchTimeoutSecs <= 0 {
		errs = append(errs, "dispatch.batch_timeout_secs must be > 0")
	}
	if c.Fallback.DefaultArea <= 0 {
		errs = append(errs, "fallback.default_area must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
