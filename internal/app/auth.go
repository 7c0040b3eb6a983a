package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/oshokin/tidal-grabber/internal/client/tidal"
	"github.com/oshokin/tidal-grabber/internal/config"
	"github.com/oshokin/tidal-grabber/internal/logger"
	http_transport "github.com/oshokin/tidal-grabber/internal/transport/http"
	"github.com/oshokin/tidal-grabber/internal/utils"
)

// ErrEmptyRedirectURL indicates that no redirect URL was pasted.
var ErrEmptyRedirectURL = errors.New("redirect URL cannot be empty")

// ExecuteAuthLoginCommand executes the auth login command.
// It prints the TIDAL login page address, waits for the user to paste the address
// the browser was redirected to, exchanges it for tokens and saves them to the configuration file.
func ExecuteAuthLoginCommand(ctx context.Context, cfg *config.Config) {
	logger.Info(ctx, "Starting authentication process")

	oauthConfig := tidal.NewOAuthConfig(cfg.ClientID, "", "")

	if err := login(authContext(ctx, cfg), cfg, oauthConfig, os.Stdin); err != nil {
		logger.Fatalf(ctx, "Authentication failed: %v", err)
	}

	if err := config.SaveConfig(cfg); err != nil {
		logger.Fatalf(ctx, "Failed to save configuration: %v", err)
	}

	logger.Info(ctx, "Configuration updated successfully!")
	logger.Infof(ctx, "Authentication complete! Account country: %s", cfg.CountryCode)
	logger.Info(ctx, "")
	logger.Info(ctx, "Try downloading an album:")
	logger.Info(ctx, "tidal-grabber https://tidal.com/browse/album/251380836")
	logger.Info(ctx, "")
	logger.Info(ctx, "Or a playlist:")
	logger.Info(ctx, "tidal-grabber https://tidal.com/browse/playlist/36ea71a8-445e-41a4-82ab-6628c581535d")
}

// ExecuteAuthRefreshCommand renews the access token with the stored refresh token and saves it.
func ExecuteAuthRefreshCommand(ctx context.Context, cfg *config.Config) {
	oauthConfig := tidal.NewOAuthConfig(cfg.ClientID, "", "")

	if err := refresh(authContext(ctx, cfg), cfg, oauthConfig); err != nil {
		logger.Fatalf(ctx, "Failed to refresh access token: %v", err)
	}

	if err := config.SaveConfig(cfg); err != nil {
		logger.Fatalf(ctx, "Failed to save configuration: %v", err)
	}

	logger.Infof(ctx, "Access token refreshed, valid until %s", cfg.TokenExpiry)
}

func login(ctx context.Context, cfg *config.Config, oauthConfig *oauth2.Config, input io.Reader) error {
	request := tidal.BeginLogin(oauthConfig)

	logger.Info(ctx, "1. Open this address in a browser and log in to TIDAL:")
	logger.Info(ctx, "")
	logger.Info(ctx, request.URL)
	logger.Info(ctx, "")
	logger.Info(ctx, "2. The browser ends up on a page that may fail to load. That is expected.")
	logger.Info(ctx, "3. Copy the full address of that page and paste it here, then press Enter:")

	redirectedURL, err := readLine(input)
	if err != nil {
		return err
	}

	token, err := request.Complete(ctx, redirectedURL)
	if err != nil {
		return err
	}

	applyToken(cfg, token)

	return nil
}

func refresh(ctx context.Context, cfg *config.Config, oauthConfig *oauth2.Config) error {
	token, err := tidal.RefreshToken(ctx, oauthConfig, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	if err != nil {
		return err
	}

	applyToken(cfg, token)

	return nil
}

// applyToken copies token into the configuration. Fields absent from the token are kept.
func applyToken(cfg *config.Config, token *oauth2.Token) {
	cfg.AccessToken = token.AccessToken

	if token.RefreshToken != "" {
		cfg.RefreshToken = token.RefreshToken
	}

	if !token.Expiry.IsZero() {
		cfg.ParsedTokenExpiry = token.Expiry
		cfg.TokenExpiry = token.Expiry.UTC().Format(time.RFC3339)
	}

	if countryCode := tidal.CountryCode(token); countryCode != "" {
		cfg.CountryCode = countryCode
	}
}

// authContext returns a context carrying the HTTP client used for OAuth2 requests.
func authContext(ctx context.Context, cfg *config.Config) context.Context {
	transport := http_transport.NewUserAgentInjector(
		http_transport.NewLogTransport(http.DefaultTransport, 0),
		utils.NewStaticUserAgentProvider(cfg.UserAgent, http_transport.DefaultUserAgent))

	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
		Transport: transport,
		Timeout:   http_transport.DefaultTimeout,
	})
}

func readLine(input io.Reader) (string, error) {
	scanner := bufio.NewScanner(input)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read redirect URL: %w", err)
		}

		return "", ErrEmptyRedirectURL
	}

	line := strings.TrimSpace(scanner.Text())
	if line == "" {
		return "", ErrEmptyRedirectURL
	}

	return line, nil
}
