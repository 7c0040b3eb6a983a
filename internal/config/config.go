package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/tidal-grabber/internal/constants"
	"github.com/oshokin/tidal-grabber/internal/logger"
	"github.com/oshokin/tidal-grabber/internal/utils"
)

// Config holds all configuration settings.
type Config struct {
	// ClientID is the TIDAL application client ID sent as X-Tidal-Token and used for OAuth2.
	ClientID string `mapstructure:"client_id"`
	// AccessToken is the OAuth2 access token for API access.
	AccessToken string `mapstructure:"access_token"`
	// RefreshToken is the OAuth2 refresh token used to renew AccessToken.
	RefreshToken string `mapstructure:"refresh_token"`
	// TokenExpiry is the RFC 3339 expiration time of AccessToken.
	TokenExpiry string `mapstructure:"token_expiry"`
	// CountryCode is the account country sent with every catalog request.
	CountryCode string `mapstructure:"country_code"`
	// Quality specifies the preferred audio quality (LOW, HIGH, LOSSLESS, HI_RES).
	Quality string `mapstructure:"quality"`
	// MinQuality specifies the minimum acceptable quality.
	// Tracks that are not available in at least this quality are skipped. Empty disables filtering.
	MinQuality string `mapstructure:"min_quality"`
	// OutputPath is the directory path where downloaded files will be saved.
	OutputPath string `mapstructure:"output_path"`
	// TrackFilenameTemplate is the template for naming individual track files.
	TrackFilenameTemplate string `mapstructure:"track_filename_template"`
	// AlbumFolderTemplate is the template for naming album folders.
	AlbumFolderTemplate string `mapstructure:"album_folder_template"`
	// PlaylistFilenameTemplate is the template for naming playlist track files.
	PlaylistFilenameTemplate string `mapstructure:"playlist_filename_template"`
	// DownloadLyrics indicates whether to download lyrics for tracks.
	DownloadLyrics bool `mapstructure:"download_lyrics"`
	// SaveMetadata indicates whether track tags are saved as a JSON file next to each track.
	SaveMetadata bool `mapstructure:"save_metadata"`
	// ReplaceTracks indicates whether to replace existing track files.
	ReplaceTracks bool `mapstructure:"replace_tracks"`
	// ReplaceCovers indicates whether to replace existing cover art files.
	ReplaceCovers bool `mapstructure:"replace_covers"`
	// ReplaceLyrics indicates whether to replace existing lyrics files.
	ReplaceLyrics bool `mapstructure:"replace_lyrics"`
	// PackToZip indicates whether collections are packed into ZIP archives instead of folders.
	PackToZip bool `mapstructure:"pack_to_zip"`
	// LogLevel specifies the logging verbosity level.
	LogLevel string `mapstructure:"log_level"`
	// DownloadSpeedLimit sets the maximum download speed (e.g., "1MB", "500KB").
	DownloadSpeedLimit string `mapstructure:"download_speed_limit"`
	// CreateFolderForSingles indicates whether to create folders for single tracks.
	CreateFolderForSingles bool `mapstructure:"create_folder_for_singles"`
	// MaxFolderNameLength is the maximum length for folder names.
	MaxFolderNameLength int64 `mapstructure:"max_folder_name_length"`
	// RetryAttemptsCount is the number of retry attempts for failed API requests.
	RetryAttemptsCount int64 `mapstructure:"retry_attempts_count"`
	// MaxDownloadPause is the maximum pause duration between downloads.
	MaxDownloadPause string `mapstructure:"max_download_pause"`
	// MinRetryPause is the minimum pause duration before retrying.
	MinRetryPause string `mapstructure:"min_retry_pause"`
	// MaxRetryPause is the maximum pause duration before retrying.
	MaxRetryPause string `mapstructure:"max_retry_pause"`
	// MaxConcurrentDownloads is the maximum number of tracks to download simultaneously.
	MaxConcurrentDownloads int64 `mapstructure:"max_concurrent_downloads"`
	// RequestsPerSecond limits the rate of API requests. Zero disables limiting.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	// PageSize is the number of items requested per page of a collection.
	PageSize int64 `mapstructure:"page_size"`
	// UserAgent overrides the User-Agent sent to TIDAL. Empty keeps the Android client value.
	UserAgent string `mapstructure:"user_agent"`
	// TidalAPIBaseURL is the base URL for the TIDAL API (set automatically).
	TidalAPIBaseURL string
	// DryRun indicates whether to preview downloads without actually downloading files.
	DryRun bool
	// ParsedTokenExpiry is the parsed access token expiration time.
	ParsedTokenExpiry time.Time
	// ParsedDownloadSpeedLimit is the parsed download speed limit in bytes.
	ParsedDownloadSpeedLimit int64
	// ParsedLogLevel is the parsed zap log level.
	ParsedLogLevel zapcore.Level
	// ParsedMaxDownloadPause is the parsed maximum download pause duration.
	ParsedMaxDownloadPause time.Duration
	// ParsedMinRetryPause is the parsed minimum retry pause duration.
	ParsedMinRetryPause time.Duration
	// ParsedMaxRetryPause is the parsed maximum retry pause duration.
	ParsedMaxRetryPause time.Duration
}

const (
	// TidalAPIBaseURL is the base URL for the TIDAL catalog API.
	TidalAPIBaseURL = "https://api.tidal.com/v1/"

	// DefaultClientID is the client ID of the TIDAL Android application.
	DefaultClientID = "zU4XHVVkc2tDPo4t"

	// DefaultConfigFilename is the default name of the configuration file.
	DefaultConfigFilename = ".tidal-grabber.yaml"

	// DefaultTrackFilenameTemplate is the default template for naming downloaded track files.
	DefaultTrackFilenameTemplate = "{{.trackNumberPad}} - {{.trackTitle}}"

	// DefaultAlbumFolderTemplate is the default template for naming folders for downloaded albums.
	DefaultAlbumFolderTemplate = "{{.releaseYear}} - {{.albumArtist}} - {{.albumTitle}}"

	// DefaultPlaylistFilenameTemplate is the default template for naming downloaded track files from playlists.
	DefaultPlaylistFilenameTemplate = "{{.trackNumberPad}} - {{.trackArtist}} - {{.trackTitle}}"

	// DefaultMaxLogLength is the default maximum size (in bytes) for log files.
	DefaultMaxLogLength = 1 * 1024 * 1024 // 1 MB

	// DefaultPageSize is the default number of collection items requested per page.
	DefaultPageSize = 100

	// maxPageSize is the largest page size accepted by the API.
	maxPageSize = 100
)

// QualityLevels lists the audio quality names from the lowest to the highest.
//
//nolint:gochecknoglobals // Immutable ordered list used as a constant.
var QualityLevels = []string{"LOW", "HIGH", "LOSSLESS", "HI_RES"}

// Static error definitions for better error handling.
var (
	// ErrEmptyAuthToken indicates that neither an access token nor a refresh token is configured.
	ErrEmptyAuthToken = errors.New("authentication token cannot be empty, run 'tidal-grabber auth login'")
	// ErrEmptyCountryCode indicates that the country code is missing.
	ErrEmptyCountryCode = errors.New("country code cannot be empty")
	// ErrInvalidQuality indicates that the quality setting is invalid.
	ErrInvalidQuality = errors.New("invalid quality")
	// ErrInvalidMinQuality indicates that the minimum quality setting is invalid.
	ErrInvalidMinQuality = errors.New("invalid min_quality")
	// ErrMinQualityTooHigh indicates that min_quality is higher than quality.
	ErrMinQualityTooHigh = errors.New("min_quality cannot be higher than quality")
	// ErrUnknownLogLevel indicates that the log level is not recognized.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrInvalidRetryAttempts indicates that the retry attempts count is invalid.
	ErrInvalidRetryAttempts = errors.New("retry attempts count must a positive integer")
	// ErrInvalidMaxDownloadPause indicates that the max download pause duration is invalid.
	ErrInvalidMaxDownloadPause = errors.New("max_download_pause must be positive")
	// ErrInvalidMinRetryPause indicates that the min retry pause duration is invalid.
	ErrInvalidMinRetryPause = errors.New("min_retry_pause must be positive")
	// ErrInvalidMaxRetryPause indicates that the max retry pause duration is invalid.
	ErrInvalidMaxRetryPause = errors.New("max_retry_pause must be positive")
	// ErrInvalidConcurrentDownloads indicates that the concurrent downloads count is invalid.
	ErrInvalidConcurrentDownloads = errors.New("max concurrent downloads must be a positive integer")
	// ErrInvalidRequestsPerSecond indicates that the request rate is negative.
	ErrInvalidRequestsPerSecond = errors.New("requests_per_second cannot be negative")
	// ErrInvalidPageSize indicates that the page size is out of range.
	ErrInvalidPageSize = errors.New("invalid page_size")
)

// LoadConfig loads configuration settings from a YAML file.
func LoadConfig(configFilename string) (*Config, error) {
	if configFilename == "" {
		configFilename = DefaultConfigFilename
	}

	viper.SetConfigFile(configFilename)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config from file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.ClientID) == "" {
		cfg.ClientID = DefaultClientID
	}

	return &cfg, nil
}

// QualityRank returns the position of a quality name in QualityLevels, or -1 if it is unknown.
func QualityRank(quality string) int {
	return slices.Index(QualityLevels, strings.ToUpper(strings.TrimSpace(quality)))
}

// ValidateConfig checks the configuration for validity and sets derived fields.
//
//nolint:funlen,gocognit,cyclop // Validation functions naturally have high complexity and length due to sequential checks.
func ValidateConfig(cfg *Config) error {
	var (
		downloadSpeedLimit       = strings.TrimSpace(cfg.DownloadSpeedLimit)
		parsedDownloadSpeedLimit uint64
		err                      error
	)

	if strings.TrimSpace(cfg.AccessToken) == "" && strings.TrimSpace(cfg.RefreshToken) == "" {
		return ErrEmptyAuthToken
	}

	cfg.CountryCode = strings.ToUpper(strings.TrimSpace(cfg.CountryCode))
	if cfg.CountryCode == "" {
		return ErrEmptyCountryCode
	}

	if strings.TrimSpace(cfg.ClientID) == "" {
		cfg.ClientID = DefaultClientID
	}

	cfg.TidalAPIBaseURL = TidalAPIBaseURL

	if cfg.TokenExpiry != "" {
		cfg.ParsedTokenExpiry, err = time.Parse(time.RFC3339, cfg.TokenExpiry)
		if err != nil {
			return fmt.Errorf("failed to parse token expiry: %w", err)
		}
	}

	qualityRank := QualityRank(cfg.Quality)
	if qualityRank < 0 {
		return fmt.Errorf("%w: must be one of %s", ErrInvalidQuality, strings.Join(QualityLevels, ", "))
	}

	cfg.Quality = QualityLevels[qualityRank]

	// Validate min_quality if set (empty means no filtering).
	if strings.TrimSpace(cfg.MinQuality) != "" {
		minQualityRank := QualityRank(cfg.MinQuality)
		if minQualityRank < 0 {
			return fmt.Errorf("%w: must be one of %s, or empty to disable",
				ErrInvalidMinQuality, strings.Join(QualityLevels, ", "))
		}

		if minQualityRank > qualityRank {
			return ErrMinQualityTooHigh
		}

		cfg.MinQuality = QualityLevels[minQualityRank]
	}

	parsedLogLevel, isLogLevelCorrect := logger.ParseLogLevel(cfg.LogLevel)
	if !(isLogLevelCorrect) {
		return fmt.Errorf("%w: '%s'", ErrUnknownLogLevel, cfg.LogLevel)
	}

	cfg.ParsedLogLevel = parsedLogLevel

	if downloadSpeedLimit != "" && downloadSpeedLimit != "0" {
		parsedDownloadSpeedLimit, err = humanize.ParseBytes(downloadSpeedLimit)
		if err != nil {
			return fmt.Errorf("failed to parse download speed limit: %w", err)
		}
	}

	// io.CopyN accepts only int64 so we transform it safely in order to use it later.
	cfg.ParsedDownloadSpeedLimit = utils.SafeUint64ToInt64(parsedDownloadSpeedLimit)

	if cfg.RetryAttemptsCount <= 0 {
		return ErrInvalidRetryAttempts
	}

	cfg.ParsedMaxDownloadPause, err = time.ParseDuration(cfg.MaxDownloadPause)
	if err != nil {
		return fmt.Errorf("failed to parse max download pause: %w", err)
	}

	if cfg.ParsedMaxDownloadPause <= 0 {
		return ErrInvalidMaxDownloadPause
	}

	cfg.ParsedMinRetryPause, err = time.ParseDuration(cfg.MinRetryPause)
	if err != nil {
		return fmt.Errorf("failed to parse min retry pause: %w", err)
	}

	if cfg.ParsedMinRetryPause <= 0 {
		return ErrInvalidMinRetryPause
	}

	cfg.ParsedMaxRetryPause, err = time.ParseDuration(cfg.MaxRetryPause)
	if err != nil {
		return fmt.Errorf("failed to parse max retry pause: %w", err)
	}

	if cfg.ParsedMaxRetryPause <= 0 {
		return ErrInvalidMaxRetryPause
	}

	if cfg.MaxConcurrentDownloads <= 0 {
		return ErrInvalidConcurrentDownloads
	}

	if cfg.RequestsPerSecond < 0 {
		return ErrInvalidRequestsPerSecond
	}

	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}

	if cfg.PageSize < 0 || cfg.PageSize > maxPageSize {
		return fmt.Errorf("%w: must be between 1 and %d", ErrInvalidPageSize, maxPageSize)
	}

	return nil
}

// SaveConfig saves the credentials to the file while preserving the original format and order.
func SaveConfig(cfg *Config) error {
	configFile := getConfigFilePath()
	values := credentialValues(cfg)

	// Read the original file content.
	originalContent, err := os.ReadFile(configFile)
	if err != nil {
		return handleMissingConfigFile(configFile, values, err)
	}

	// Parse YAML while preserving order using yaml.Node.
	var node yaml.Node
	if err = yaml.Unmarshal(originalContent, &node); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	updateValuesInNode(&node, values)

	// Marshal back to YAML (preserves order).
	newContent, err := yaml.Marshal(&node)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	// Write the file back with preserved order.
	if err = os.WriteFile(configFile, newContent, constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// credentialKey pairs a YAML key with its new value.
type credentialKey struct {
	// key is the YAML mapping key.
	key string
	// value is the string value to store.
	value string
}

// credentialValues lists the settings written by SaveConfig, in file order.
func credentialValues(cfg *Config) []credentialKey {
	expiry := cfg.TokenExpiry
	if !cfg.ParsedTokenExpiry.IsZero() {
		expiry = cfg.ParsedTokenExpiry.UTC().Format(time.RFC3339)
	}

	return []credentialKey{
		{key: "access_token", value: cfg.AccessToken},
		{key: "refresh_token", value: cfg.RefreshToken},
		{key: "token_expiry", value: expiry},
		{key: "country_code", value: cfg.CountryCode},
	}
}

// getConfigFilePath returns the config file path from viper or the default.
func getConfigFilePath() string {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		return DefaultConfigFilename
	}

	return configFile
}

// handleMissingConfigFile creates a new config file if it doesn't exist.
func handleMissingConfigFile(configFile string, values []credentialKey, err error) error {
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// File doesn't exist, create it with viper.
	for _, v := range values {
		viper.Set(v.key, v.value)
	}

	if err = viper.SafeWriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	return nil
}

// updateValuesInNode updates scalar values in the YAML node tree, appending keys that are absent.
func updateValuesInNode(node *yaml.Node, values []credentialKey) {
	// The root node is a document node, content[0] is the actual map.
	if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
		return
	}

	mapNode := node.Content[0]

	for _, v := range values {
		found := false

		// Iterate through key-value pairs (stored as alternating nodes).
		for i := 0; i+1 < len(mapNode.Content); i += 2 {
			if mapNode.Content[i].Value != v.key {
				continue
			}

			valueNode := mapNode.Content[i+1]
			valueNode.Kind = yaml.ScalarNode
			valueNode.Tag = "!!str"
			valueNode.Value = v.value

			// Ensure it's quoted if it contains special characters.
			if valueNode.Style == 0 {
				valueNode.Style = yaml.DoubleQuotedStyle
			}

			found = true

			break
		}

		if !found {
			mapNode.Content = append(mapNode.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.key},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.value, Style: yaml.DoubleQuotedStyle},
			)
		}
	}
}
