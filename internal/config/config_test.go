package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/tidal-grabber/internal/constants"
)

// validConfig returns a configuration that passes validation.
func validConfig() *Config {
	return &Config{
		AccessToken:            "access",
		RefreshToken:           "refresh",
		CountryCode:            "us",
		Quality:                "lossless",
		DownloadSpeedLimit:     "1MB",
		LogLevel:               "info",
		RetryAttemptsCount:     3,
		MaxDownloadPause:       "5s",
		MinRetryPause:          "1s",
		MaxRetryPause:          "3s",
		MaxConcurrentDownloads: 1,
	}
}

// TestConstants tests the constants.
func TestConstants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1024*1024, DefaultMaxLogLength)
	assert.Equal(t, []string{"LOW", "HIGH", "LOSSLESS", "HI_RES"}, QualityLevels)
	assert.Equal(t, "https://api.tidal.com/v1/", TidalAPIBaseURL)
}

// TestQualityRank tests quality ordering.
func TestQualityRank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected int
	}{
		{input: "LOW", expected: 0},
		{input: "high", expected: 1},
		{input: " Lossless ", expected: 2},
		{input: "HI_RES", expected: 3},
		{input: "MASTER", expected: -1},
		{input: "", expected: -1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, QualityRank(tt.input))
		})
	}
}

// TestLoadConfig tests the LoadConfig function.
//
//nolint:paralleltest // LoadConfig mutates the global viper instance.
func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name           string
		configFilename string
		configContent  string
		expectError    bool
		expectedError  string
	}{
		{
			name:           "valid config file",
			configFilename: "valid_config.yaml",
			configContent: `
access_token: "test_token"
refresh_token: "refresh_token"
country_code: "US"
quality: "HI_RES"
min_quality: ""
output_path: "/tmp/downloads"
track_filename_template: "{{.trackNumberPad}} - {{.trackTitle}}"
album_folder_template: "{{.releaseYear}} - {{.albumArtist}} - {{.albumTitle}}"
playlist_filename_template: "{{.trackNumberPad}} - {{.trackArtist}} - {{.trackTitle}}"
download_lyrics: true
pack_to_zip: true
log_level: "info"
download_speed_limit: "1MB"
retry_attempts_count: 3
max_download_pause: "5s"
min_retry_pause: "1s"
max_retry_pause: "3s"
requests_per_second: 4
page_size: 50
user_agent: "tidal-grabber-test/1.0"
save_metadata: true
`,
			expectError: false,
		},
		{
			name:           "non-existent file",
			configFilename: "non_existent.yaml",
			expectError:    true,
			expectedError:  "failed to read config from file",
		},
		{
			name:           "invalid yaml",
			configFilename: "invalid.yaml",
			configContent: `
invalid: yaml: content: [unclosed
`,
			expectError:   true,
			expectedError: "failed to read config from file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), tt.configFilename)

			if tt.configContent != "" {
				err := os.WriteFile(configPath, []byte(tt.configContent), constants.DefaultFilePermissions)
				require.NoError(t, err)
			}

			cfg, err := LoadConfig(configPath)

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, cfg)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "test_token", cfg.AccessToken)
			assert.Equal(t, "HI_RES", cfg.Quality)
			assert.Equal(t, DefaultClientID, cfg.ClientID)
			assert.True(t, cfg.PackToZip)
			assert.InDelta(t, 4.0, cfg.RequestsPerSecond, 0.001)
			assert.Equal(t, int64(50), cfg.PageSize)
			assert.Equal(t, "tidal-grabber-test/1.0", cfg.UserAgent)
			assert.True(t, cfg.SaveMetadata)
		})
	}
}

// TestValidateConfig tests the ValidateConfig function.
func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(cfg *Config)
		errorMsg string
	}{
		{
			name:   "valid config",
			mutate: func(_ *Config) {},
		},
		{
			name: "only refresh token",
			mutate: func(cfg *Config) {
				cfg.AccessToken = ""
			},
		},
		{
			name: "no tokens",
			mutate: func(cfg *Config) {
				cfg.AccessToken = "  "
				cfg.RefreshToken = ""
			},
			errorMsg: "authentication token cannot be empty",
		},
		{
			name: "empty country code",
			mutate: func(cfg *Config) {
				cfg.CountryCode = " "
			},
			errorMsg: "country code cannot be empty",
		},
		{
			name: "invalid token expiry",
			mutate: func(cfg *Config) {
				cfg.TokenExpiry = "tomorrow"
			},
			errorMsg: "failed to parse token expiry",
		},
		{
			name: "unknown quality",
			mutate: func(cfg *Config) {
				cfg.Quality = "MASTER"
			},
			errorMsg: "invalid quality: must be one of",
		},
		{
			name: "unknown min quality",
			mutate: func(cfg *Config) {
				cfg.MinQuality = "best"
			},
			errorMsg: "invalid min_quality",
		},
		{
			name: "min quality above quality",
			mutate: func(cfg *Config) {
				cfg.MinQuality = "HI_RES"
			},
			errorMsg: "min_quality cannot be higher than quality",
		},
		{
			name: "invalid log level",
			mutate: func(cfg *Config) {
				cfg.LogLevel = "invalid"
			},
			errorMsg: "unknown log level:",
		},
		{
			name: "invalid download speed limit",
			mutate: func(cfg *Config) {
				cfg.DownloadSpeedLimit = "invalid"
			},
			errorMsg: "failed to parse download speed limit:",
		},
		{
			name: "invalid retry attempts count",
			mutate: func(cfg *Config) {
				cfg.RetryAttemptsCount = 0
			},
			errorMsg: "retry attempts count must a positive integer",
		},
		{
			name: "invalid max download pause",
			mutate: func(cfg *Config) {
				cfg.MaxDownloadPause = "invalid"
			},
			errorMsg: "failed to parse max download pause:",
		},
		{
			name: "zero min retry pause",
			mutate: func(cfg *Config) {
				cfg.MinRetryPause = "0s"
			},
			errorMsg: "min_retry_pause must be positive",
		},
		{
			name: "negative max retry pause",
			mutate: func(cfg *Config) {
				cfg.MaxRetryPause = "-1s"
			},
			errorMsg: "max_retry_pause must be positive",
		},
		{
			name: "no concurrent downloads",
			mutate: func(cfg *Config) {
				cfg.MaxConcurrentDownloads = 0
			},
			errorMsg: "max concurrent downloads must be a positive integer",
		},
		{
			name: "negative request rate",
			mutate: func(cfg *Config) {
				cfg.RequestsPerSecond = -1
			},
			errorMsg: "requests_per_second cannot be negative",
		},
		{
			name: "page size too large",
			mutate: func(cfg *Config) {
				cfg.PageSize = 1000
			},
			errorMsg: "invalid page_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, zapcore.InfoLevel, cfg.ParsedLogLevel)
			assert.Equal(t, "US", cfg.CountryCode)
			assert.Equal(t, "LOSSLESS", cfg.Quality)
			assert.Equal(t, DefaultClientID, cfg.ClientID)
			assert.Equal(t, TidalAPIBaseURL, cfg.TidalAPIBaseURL)
			assert.Equal(t, int64(DefaultPageSize), cfg.PageSize)
			assert.Equal(t, 3*time.Second, cfg.ParsedMaxRetryPause)
		})
	}
}

// TestValidateConfig_DownloadSpeedLimit tests download speed limit validation.
func TestValidateConfig_DownloadSpeedLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		speedLimit    string
		expectedBytes int64
	}{
		{name: "empty limit", speedLimit: "", expectedBytes: 0},
		{name: "zero limit", speedLimit: "0", expectedBytes: 0},
		{name: "1KB limit", speedLimit: "1KB", expectedBytes: 1000},
		{name: "1MB limit", speedLimit: "1MB", expectedBytes: 1000000},
		{name: "1GB limit", speedLimit: "1GB", expectedBytes: 1000000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.DownloadSpeedLimit = tt.speedLimit

			require.NoError(t, ValidateConfig(cfg))
			assert.Equal(t, tt.expectedBytes, cfg.ParsedDownloadSpeedLimit)
		})
	}
}

// TestSaveConfig tests that credentials are written back while keeping other settings intact.
//
//nolint:paralleltest // SaveConfig reads the global viper instance.
func TestSaveConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	original := `# TIDAL settings
access_token: "old"
quality: "LOSSLESS"
country_code: "GB"
`

	require.NoError(t, os.WriteFile(configPath, []byte(original), constants.DefaultFilePermissions))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	cfg.AccessToken = "new-access"
	cfg.RefreshToken = "new-refresh"
	cfg.CountryCode = "US"
	cfg.ParsedTokenExpiry = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, SaveConfig(cfg))

	reloaded, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "new-access", reloaded.AccessToken)
	assert.Equal(t, "new-refresh", reloaded.RefreshToken)
	assert.Equal(t, "US", reloaded.CountryCode)
	assert.Equal(t, "2026-01-02T03:04:05Z", reloaded.TokenExpiry)
	assert.Equal(t, "LOSSLESS", reloaded.Quality)

	content, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# TIDAL settings")
}
