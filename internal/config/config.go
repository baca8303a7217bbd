package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "DEMAND_SIGNAL_"

// Config captures the settings required to boot the demand signal service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Forecast ForecastConfig `yaml:"forecast"`
	Sources  SourcesConfig  `yaml:"sources"`
	Cache    CacheConfig    `yaml:"cache"`
	Advisory AdvisoryConfig `yaml:"advisory"`
	Summary  SummaryConfig  `yaml:"summary"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	Reflection      bool          `yaml:"reflection"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ForecastConfig selects and tunes the forecasting procedure.
type ForecastConfig struct {
	Oracle             string         `yaml:"oracle"`
	DefaultHorizonDays int            `yaml:"defaultHorizonDays"`
	MaxHorizonDays     int            `yaml:"maxHorizonDays"`
	Parallelism        int            `yaml:"parallelism"`
	IntervalWidth      float64        `yaml:"intervalWidth"`
	Timeout            time.Duration  `yaml:"timeout"`
	Additive           AdditiveConfig `yaml:"additive"`
	Holt               HoltConfig     `yaml:"holt"`
	Remote             RemoteConfig   `yaml:"remote"`
}

// AdditiveConfig tunes the trend plus weekly procedure.
type AdditiveConfig struct {
	SeasonalityMinDays int `yaml:"seasonalityMinDays"`
}

// HoltConfig holds the smoothing factors.
type HoltConfig struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
}

// RemoteConfig configures an external forecasting service.
type RemoteConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

// SourcesConfig locates requester and supplier order tables.
type SourcesConfig struct {
	Driver         string `yaml:"driver"`
	RequesterPath  string `yaml:"requesterPath"`
	SupplierPath   string `yaml:"supplierPath"`
	DSN            string `yaml:"dsn"`
	RequesterTable string `yaml:"requesterTable"`
	SupplierTable  string `yaml:"supplierTable"`
}

// CacheConfig controls caching of loaded event tables.
type CacheConfig struct {
	Backend      string        `yaml:"backend"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	EventsTTL    time.Duration `yaml:"eventsTTL"`
}

// AdvisoryConfig points at the advisory book.
type AdvisoryConfig struct {
	Path string `yaml:"path"`
}

// SummaryConfig controls population summaries.
type SummaryConfig struct {
	TopN int `yaml:"topN"`
}

// Load initialises Config from a YAML file, a .env file and environment
// overrides, in that order of increasing precedence.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(os.Getenv(envPrefix + "ENV_FILE")); err != nil {
		return nil, err
	}
	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv populates unset environment variables from a .env file. A
// missing default file is not an error.
func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var problems []string

	if c.Forecast.DefaultHorizonDays < 1 {
		problems = append(problems, "forecast.defaultHorizonDays must be at least 1")
	}
	if c.Forecast.MaxHorizonDays < c.Forecast.DefaultHorizonDays {
		problems = append(problems, "forecast.maxHorizonDays must not be below forecast.defaultHorizonDays")
	}
	if c.Forecast.Parallelism < 1 {
		problems = append(problems, "forecast.parallelism must be at least 1")
	}
	if c.Forecast.IntervalWidth <= 0 || c.Forecast.IntervalWidth >= 1 {
		problems = append(problems, "forecast.intervalWidth must be between 0 and 1")
	}
	switch strings.ToLower(c.Forecast.Oracle) {
	case "additive", "holt":
	case "remote":
		if c.Forecast.Remote.BaseURL == "" {
			problems = append(problems, "forecast.remote.baseURL required for remote oracle")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown forecast.oracle %q", c.Forecast.Oracle))
	}

	switch strings.ToLower(c.Sources.Driver) {
	case "csv":
		if c.Sources.RequesterPath == "" || c.Sources.SupplierPath == "" {
			problems = append(problems, "sources.requesterPath and sources.supplierPath required for csv driver")
		}
	case "postgres":
		if c.Sources.DSN == "" {
			problems = append(problems, "sources.dsn required for postgres driver")
		}
		if c.Sources.RequesterTable == "" || c.Sources.SupplierTable == "" {
			problems = append(problems, "sources.requesterTable and sources.supplierTable required for postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown sources.driver %q", c.Sources.Driver))
	}

	switch strings.ToLower(c.Cache.Backend) {
	case "none", "memory":
	case "redis":
		if c.Cache.Addr == "" {
			problems = append(problems, "cache.addr required for redis backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown cache.backend %q", c.Cache.Backend))
	}

	if c.Summary.TopN < 1 {
		problems = append(problems, "summary.topN must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
			Reflection:      true,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Forecast: ForecastConfig{
			Oracle:             "additive",
			DefaultHorizonDays: 1,
			MaxHorizonDays:     365,
			Parallelism:        1,
			IntervalWidth:      0.8,
			Additive:           AdditiveConfig{SeasonalityMinDays: 14},
			Holt:               HoltConfig{Alpha: 0.5, Beta: 0.3},
			Remote:             RemoteConfig{Path: "/v1/forecast"},
		},
		Sources: SourcesConfig{
			Driver:         "csv",
			RequesterPath:  "data/tummyCustomer3.csv",
			SupplierPath:   "data/tummyDonor3.csv",
			RequesterTable: "requester_orders",
			SupplierTable:  "supplier_orders",
		},
		Cache: CacheConfig{
			Backend:      "memory",
			EventsTTL:    10 * time.Minute,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
		Advisory: AdvisoryConfig{Path: "configs/advisories.yaml"},
		Summary:  SummaryConfig{TopN: 5},
	}
}

func applyEnvOverrides(cfg *Config) {
	envString("SERVER_ADDRESS", &cfg.Server.Address)
	envString("METRICS_ADDRESS", &cfg.Server.MetricsAddress)
	envDuration("GRACEFUL_TIMEOUT", &cfg.Server.GracefulTimeout)
	envBool("REFLECTION", &cfg.Server.Reflection)

	envString("LOG_LEVEL", &cfg.Logging.Level)
	if v := os.Getenv(envPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}

	envString("ORACLE", &cfg.Forecast.Oracle)
	envInt("DEFAULT_HORIZON_DAYS", &cfg.Forecast.DefaultHorizonDays)
	envInt("MAX_HORIZON_DAYS", &cfg.Forecast.MaxHorizonDays)
	envInt("FORECAST_PARALLELISM", &cfg.Forecast.Parallelism)
	envDuration("FORECAST_TIMEOUT", &cfg.Forecast.Timeout)
	envString("REMOTE_ORACLE_URL", &cfg.Forecast.Remote.BaseURL)
	envString("REMOTE_ORACLE_PATH", &cfg.Forecast.Remote.Path)

	envString("SOURCE_DRIVER", &cfg.Sources.Driver)
	envString("REQUESTER_PATH", &cfg.Sources.RequesterPath)
	envString("SUPPLIER_PATH", &cfg.Sources.SupplierPath)
	envString("DATABASE_DSN", &cfg.Sources.DSN)
	envString("REQUESTER_TABLE", &cfg.Sources.RequesterTable)
	envString("SUPPLIER_TABLE", &cfg.Sources.SupplierTable)

	envString("CACHE_BACKEND", &cfg.Cache.Backend)
	envString("CACHE_ADDR", &cfg.Cache.Addr)
	envString("CACHE_USERNAME", &cfg.Cache.Username)
	envString("CACHE_PASSWORD", &cfg.Cache.Password)
	envInt("CACHE_DB", &cfg.Cache.DB)
	envBool("CACHE_TLS", &cfg.Cache.TLS)
	envDuration("CACHE_DIAL_TIMEOUT", &cfg.Cache.DialTimeout)
	envDuration("CACHE_READ_TIMEOUT", &cfg.Cache.ReadTimeout)
	envDuration("CACHE_WRITE_TIMEOUT", &cfg.Cache.WriteTimeout)
	envInt("CACHE_MAX_RETRIES", &cfg.Cache.MaxRetries)
	envDuration("CACHE_EVENTS_TTL", &cfg.Cache.EventsTTL)

	envString("ADVISORY_PATH", &cfg.Advisory.Path)
	envInt("SUMMARY_TOP_N", &cfg.Summary.TopN)
}

func envString(key string, dst *string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
