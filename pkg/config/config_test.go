package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultMetricsPort, cfg.MetricsPort)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultUpstreamURL, cfg.UpstreamURL)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, DefaultEnableCORS, cfg.EnableCORS)

	assert.Equal(t, DefaultWindowSize, cfg.Corridor.WindowSize)
	assert.Equal(t, float64(DefaultMarginPercent), cfg.Corridor.MarginPercent)
	assert.Equal(t, DefaultMaxHarmonics, cfg.Corridor.MaxHarmonics)
	assert.Equal(t, DefaultMinDataPoints, cfg.Corridor.MinDataPoints)
	assert.Equal(t, []int{50, 90, 99}, cfg.Cache.Percentiles)
	assert.Equal(t, DefaultMaxMetrics, cfg.Timeout.MaxMetrics)
	assert.True(t, cfg.ScaleCorridor)

	assert.Equal(t, DefaultInsecureSkipVerify, cfg.InsecureSkipVerify)
	assert.Equal(t, "", cfg.BearerToken)
	assert.Equal(t, DefaultDataSourceCacheTTL, cfg.DataSourceCacheTTL)
}

func TestLoad_UpstreamEnvironment(t *testing.T) {
	clearEnv(t)
	os.Setenv("UPSTREAM_INSECURE_SKIP_VERIFY", "true")
	os.Setenv("UPSTREAM_BEARER_TOKEN", "s3cr3t")
	os.Setenv("UPSTREAM_CACHE_TTL", "2m")
	defer clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.InsecureSkipVerify)
	assert.Equal(t, "s3cr3t", cfg.BearerToken)
	assert.Equal(t, 2*time.Minute, cfg.DataSourceCacheTTL)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)

	os.Setenv("PORT", "9000")
	os.Setenv("METRICS_PORT", "9091")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("UPSTREAM_URL", "http://grafana:3000")
	os.Setenv("HTTP_TIMEOUT", "60s")
	os.Setenv("ENABLE_CORS", "true")
	defer clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 9091, cfg.MetricsPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "http://grafana:3000", cfg.UpstreamURL)
	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout)
	assert.True(t, cfg.EnableCORS)
}

func TestLoad_FromINIFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "corridor.ini")
	contents := `
scaleCorridor = false

[corrdor_params]
step = 30
window_size = 21
margin_percent = 7.5
max_harmonics = 4
min_data_points = 20

[corrdor_params.default_percentiles]
duration = 0.5
size = 0.5

[cache]
database.path = /tmp/custom.db
database.max_ttl = 3600
max_rebuild_count = 5
percentiles = 50,95

[timeout]
max_metrics = 10
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	os.Setenv("CORRIDOR_CONFIG_FILE", path)
	defer clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Corridor.Step)
	assert.Equal(t, 21, cfg.Corridor.WindowSize)
	assert.Equal(t, 7.5, cfg.Corridor.MarginPercent)
	assert.Equal(t, 4, cfg.Corridor.MaxHarmonics)
	assert.Equal(t, 20, cfg.Corridor.MinDataPoints)
	assert.Equal(t, "/tmp/custom.db", cfg.Cache.DatabasePath)
	assert.Equal(t, 3600, cfg.Cache.MaxTTLSeconds)
	assert.Equal(t, 5, cfg.Cache.MaxRebuildCount)
	assert.Equal(t, []int{50, 95}, cfg.Cache.Percentiles)
	assert.Equal(t, 10, cfg.Timeout.MaxMetrics)
	assert.False(t, cfg.ScaleCorridor)
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validBaseConfig().Validate())
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name        string
		port        int
		metricsPort int
		wantError   bool
	}{
		{"port too low", 0, 9090, true},
		{"port too high", 70000, 9090, true},
		{"same ports", 8080, 8080, true},
		{"valid ports", 8080, 9090, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			cfg.Port = tt.port
			cfg.MetricsPort = tt.metricsPort
			err := cfg.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validBaseConfig()
	cfg.LogLevel = "invalid"

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log_level")
}

func TestValidate_InvalidHTTPTimeout(t *testing.T) {
	tests := []struct {
		name      string
		timeout   time.Duration
		wantError bool
	}{
		{"too short", 500 * time.Millisecond, true},
		{"minimum valid", 1 * time.Second, false},
		{"normal", 30 * time.Second, false},
		{"too long", 10 * time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			cfg.HTTPTimeout = tt.timeout
			err := cfg.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_InvalidCorridorParams(t *testing.T) {
	t.Run("window size zero", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.Corridor.WindowSize = 0
		assert.Error(t, cfg.Validate())
	})
	t.Run("margin percent zero", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.Corridor.MarginPercent = 0
		assert.Error(t, cfg.Validate())
	})
	t.Run("min data points zero", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.Corridor.MinDataPoints = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestValidate_EmptyDatabasePath(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Cache.DatabasePath = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cache.database.path cannot be empty")
}

func TestValidate_InvalidMaxMetrics(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Timeout.MaxMetrics = 0

	assert.Error(t, cfg.Validate())
}

func TestGetEnvAsSlice(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected []string
	}{
		{"single value", "http://localhost:3000", []string{"http://localhost:3000"}},
		{"multiple values", "http://localhost:3000,https://example.com", []string{"http://localhost:3000", "https://example.com"}},
		{"with spaces", "http://localhost:3000 , https://example.com", []string{"http://localhost:3000", "https://example.com"}},
		{"empty string", "", []string{"*"}},
		{"only commas", ",,,", []string{"*"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("TEST_SLICE", tt.envValue)
			defer os.Unsetenv("TEST_SLICE")

			result := getEnvAsSlice("TEST_SLICE", []string{"*"})
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected int
	}{
		{"valid int", "9000", 9000},
		{"invalid int", "abc", 8080},
		{"empty string", "", 8080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_INT", tt.envValue)
				defer os.Unsetenv("TEST_INT")
			}

			result := getEnvAsInt("TEST_INT", 8080)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected bool
	}{
		{"true lowercase", "true", true},
		{"true uppercase", "TRUE", true},
		{"true number", "1", true},
		{"false lowercase", "false", false},
		{"invalid", "abc", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_BOOL", tt.envValue)
				defer os.Unsetenv("TEST_BOOL")
			}

			result := getEnvAsBool("TEST_BOOL", false)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected time.Duration
	}{
		{"seconds", "30s", 30 * time.Second},
		{"minutes", "2m", 2 * time.Minute},
		{"complex", "1m30s", 90 * time.Second},
		{"invalid", "abc", 30 * time.Second},
		{"empty", "", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_DURATION", tt.envValue)
				defer os.Unsetenv("TEST_DURATION")
			}

			result := getEnvAsDuration("TEST_DURATION", 30*time.Second)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func validBaseConfig() *Config {
	return &Config{
		Port:        8080,
		MetricsPort: 9090,
		LogLevel:    "info",
		HTTPTimeout: 30 * time.Second,
		Corridor: CorridorParams{
			WindowSize:    15,
			MarginPercent: 5.0,
			MinDataPoints: 10,
		},
		Cache: CacheParams{
			DatabasePath: "cache.db",
		},
		Timeout: TimeoutParams{MaxMetrics: 50},
	}
}

// clearEnv removes all environment variables used by the config package.
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"PORT", "METRICS_PORT", "LOG_LEVEL", "UPSTREAM_URL", "HTTP_TIMEOUT",
		"ENABLE_CORS", "CACHE_DB_PATH", "CORRIDOR_CONFIG_FILE",
		"UPSTREAM_INSECURE_SKIP_VERIFY", "UPSTREAM_BEARER_TOKEN", "UPSTREAM_CACHE_TTL",
	}
	for _, key := range envVars {
		os.Unsetenv(key)
	}
}
