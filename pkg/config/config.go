// Package config loads the corridor proxy's process-level settings (the
// teacher's env-var pattern, kept) and the dotted corridor/cache/timeout
// parameter groups consumed by the core (spec.md §6), loaded from an INI
// file via gopkg.in/ini.v1.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// Process-level defaults (teacher's env-loaded settings).
const (
	DefaultPort        = 8080
	DefaultMetricsPort = 9090
	DefaultLogLevel    = "info"
	DefaultUpstreamURL = ""
	DefaultHTTPTimeout = 30 * time.Second
	DefaultEnableCORS  = false
	DefaultDBPath      = "corridor-cache.db"
	DefaultConfigPath  = "corridor.ini"

	DefaultInsecureSkipVerify  = false
	DefaultDataSourceCacheTTL  = 5 * time.Minute
)

// Corridor parameter defaults (spec.md §6).
const (
	DefaultStep                   = 60
	DefaultWindowSize             = 15
	DefaultMarginPercent          = 5.0
	DefaultMaxHarmonics           = 5
	DefaultMinAmplitude           = 0.01
	DefaultMinDataPoints          = 10
	DefaultMinCorridorWidthFactor = 0.1
	DefaultUseCommonTrend         = true
	DefaultHistoricalOffsetDays   = 0
	DefaultHistoricalPeriodDays   = 7
	DefaultMaxTTLSeconds          = 86400
	DefaultMaxRebuildCount        = 100
	DefaultMaxMetrics             = 50
)

// CorridorParams is the `corrdor_params.*` group. The leading "corrdor" spells
// the dotted key the core actually reads (spec.md §6) — not a typo to fix.
type CorridorParams struct {
	Step                   int
	WindowSize             int
	MarginPercent          float64
	MaxHarmonics           int
	MinAmplitude           float64
	MinDataPoints          int
	MinCorridorWidthFactor float64
	UseCommonTrend         bool
	HistoricalOffsetDays   int
	HistoricalPeriodDays   int
	DefaultPercentiles     DefaultPercentiles
}

// DefaultPercentiles is `corrdor_params.default_percentiles.*`.
type DefaultPercentiles struct {
	Duration           float64
	Size               float64
	DurationMultiplier float64
	SizeMultiplier     float64
}

// CacheParams is the `cache.*` group.
type CacheParams struct {
	DatabasePath    string
	MaxTTLSeconds   int
	MaxRebuildCount int
	Percentiles     []int
}

// TimeoutParams is the `timeout.*` group.
type TimeoutParams struct {
	MaxMetrics int
}

// Config is the full process configuration: ambient process settings plus
// the dotted parameter groups the core consumes.
type Config struct {
	Port        int
	MetricsPort int
	LogLevel    string
	UpstreamURL string
	HTTPTimeout time.Duration
	EnableCORS  bool

	InsecureSkipVerify bool
	BearerToken        string
	DataSourceCacheTTL time.Duration

	Corridor      CorridorParams
	Cache         CacheParams
	Timeout       TimeoutParams
	ScaleCorridor bool
}

// Load builds the process config from the environment (teacher's pattern)
// and, if CORRIDOR_CONFIG_FILE points at an INI file, layers the dotted
// parameter groups on top of the defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvAsInt("PORT", DefaultPort),
		MetricsPort: getEnvAsInt("METRICS_PORT", DefaultMetricsPort),
		LogLevel:    getEnv("LOG_LEVEL", DefaultLogLevel),
		UpstreamURL: getEnv("UPSTREAM_URL", DefaultUpstreamURL),
		HTTPTimeout: getEnvAsDuration("HTTP_TIMEOUT", DefaultHTTPTimeout),
		EnableCORS:  getEnvAsBool("ENABLE_CORS", DefaultEnableCORS),

		InsecureSkipVerify: getEnvAsBool("UPSTREAM_INSECURE_SKIP_VERIFY", DefaultInsecureSkipVerify),
		BearerToken:        getEnv("UPSTREAM_BEARER_TOKEN", ""),
		DataSourceCacheTTL: getEnvAsDuration("UPSTREAM_CACHE_TTL", DefaultDataSourceCacheTTL),

		Corridor: CorridorParams{
			Step:                   DefaultStep,
			WindowSize:             DefaultWindowSize,
			MarginPercent:          DefaultMarginPercent,
			MaxHarmonics:           DefaultMaxHarmonics,
			MinAmplitude:           DefaultMinAmplitude,
			MinDataPoints:          DefaultMinDataPoints,
			MinCorridorWidthFactor: DefaultMinCorridorWidthFactor,
			UseCommonTrend:         DefaultUseCommonTrend,
			HistoricalOffsetDays:   DefaultHistoricalOffsetDays,
			HistoricalPeriodDays:   DefaultHistoricalPeriodDays,
		},
		Cache: CacheParams{
			DatabasePath:    getEnv("CACHE_DB_PATH", DefaultDBPath),
			MaxTTLSeconds:   DefaultMaxTTLSeconds,
			MaxRebuildCount: DefaultMaxRebuildCount,
			Percentiles:     []int{50, 90, 99},
		},
		Timeout: TimeoutParams{
			MaxMetrics: DefaultMaxMetrics,
		},
		ScaleCorridor: true,
	}

	if path := getEnv("CORRIDOR_CONFIG_FILE", ""); path != "" {
		if err := loadINI(cfg, path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile runs Load (environment variables and any CORRIDOR_CONFIG_FILE
// included) and then layers the INI file at path on top. It is used by
// cmd/corridor-cachectl.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := loadINI(cfg, path); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadINI(cfg *Config, path string) error {
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	cp := f.Section("corrdor_params")
	cfg.Corridor.Step = cp.Key("step").MustInt(cfg.Corridor.Step)
	cfg.Corridor.WindowSize = cp.Key("window_size").MustInt(cfg.Corridor.WindowSize)
	cfg.Corridor.MarginPercent = cp.Key("margin_percent").MustFloat64(cfg.Corridor.MarginPercent)
	cfg.Corridor.MaxHarmonics = cp.Key("max_harmonics").MustInt(cfg.Corridor.MaxHarmonics)
	cfg.Corridor.MinAmplitude = cp.Key("min_amplitude").MustFloat64(cfg.Corridor.MinAmplitude)
	cfg.Corridor.MinDataPoints = cp.Key("min_data_points").MustInt(cfg.Corridor.MinDataPoints)
	cfg.Corridor.MinCorridorWidthFactor = cp.Key("min_corridor_width_factor").MustFloat64(cfg.Corridor.MinCorridorWidthFactor)
	cfg.Corridor.UseCommonTrend = cp.Key("use_common_trend").MustBool(cfg.Corridor.UseCommonTrend)
	cfg.Corridor.HistoricalOffsetDays = cp.Key("historical_offset_days").MustInt(cfg.Corridor.HistoricalOffsetDays)
	cfg.Corridor.HistoricalPeriodDays = cp.Key("historical_period_days").MustInt(cfg.Corridor.HistoricalPeriodDays)

	dp := f.Section("corrdor_params.default_percentiles")
	cfg.Corridor.DefaultPercentiles.Duration = dp.Key("duration").MustFloat64(cfg.Corridor.DefaultPercentiles.Duration)
	cfg.Corridor.DefaultPercentiles.Size = dp.Key("size").MustFloat64(cfg.Corridor.DefaultPercentiles.Size)
	cfg.Corridor.DefaultPercentiles.DurationMultiplier = dp.Key("duration_multiplier").MustFloat64(cfg.Corridor.DefaultPercentiles.DurationMultiplier)
	cfg.Corridor.DefaultPercentiles.SizeMultiplier = dp.Key("size_multiplier").MustFloat64(cfg.Corridor.DefaultPercentiles.SizeMultiplier)

	cacheSec := f.Section("cache")
	cfg.Cache.DatabasePath = cacheSec.Key("database.path").MustString(cfg.Cache.DatabasePath)
	cfg.Cache.MaxTTLSeconds = cacheSec.Key("database.max_ttl").MustInt(cfg.Cache.MaxTTLSeconds)
	cfg.Cache.MaxRebuildCount = cacheSec.Key("max_rebuild_count").MustInt(cfg.Cache.MaxRebuildCount)
	if raw := cacheSec.Key("percentiles").String(); raw != "" {
		cfg.Cache.Percentiles = parseIntList(raw)
	}

	cfg.ScaleCorridor = f.Section("").Key("scaleCorridor").MustBool(cfg.ScaleCorridor)
	cfg.Timeout.MaxMetrics = f.Section("timeout").Key("max_metrics").MustInt(cfg.Timeout.MaxMetrics)

	return nil
}

func parseIntList(raw string) []int {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n, err := strconv.Atoi(p); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// Validate accumulates every violation before returning, matching the
// teacher's Validate() style.
func (c *Config) Validate() error {
	var errs []string

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		errs = append(errs, "metrics_port must be between 1 and 65535")
	}
	if c.Port == c.MetricsPort {
		errs = append(errs, "port and metrics_port must differ")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log_level: %s", c.LogLevel))
	}
	if c.HTTPTimeout < time.Second || c.HTTPTimeout > 5*time.Minute {
		errs = append(errs, "http_timeout must be between 1s and 5m")
	}
	if c.Corridor.WindowSize <= 0 {
		errs = append(errs, "corrdor_params.window_size must be positive")
	}
	if c.Corridor.MarginPercent <= 0 {
		errs = append(errs, "corrdor_params.margin_percent must be positive")
	}
	if c.Corridor.MinDataPoints <= 0 {
		errs = append(errs, "corrdor_params.min_data_points must be positive")
	}
	if c.Cache.DatabasePath == "" {
		errs = append(errs, "cache.database.path cannot be empty")
	}
	if c.Timeout.MaxMetrics <= 0 {
		errs = append(errs, "timeout.max_metrics must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvAsBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvAsSlice(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
