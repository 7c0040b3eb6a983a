package tidal

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/oshokin/tidal-grabber/internal/logger"
)

// TokenHandler receives tokens obtained by a refresh so they can be persisted.
type TokenHandler func(token *oauth2.Token)

// NewOAuthConfig returns the OAuth2 configuration of the TIDAL Android client.
// Empty endpoint URLs fall back to the public TIDAL endpoints.
func NewOAuthConfig(clientID, authURL, tokenURL string) *oauth2.Config {
	if authURL == "" {
		authURL = OAuthAuthorizeURL
	}

	if tokenURL == "" {
		tokenURL = OAuthTokenURL
	}

	return &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: OAuthRedirectURL,
		Scopes:      OAuthScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// LoginRequest is a pending PKCE authorization.
type LoginRequest struct {
	// config is the OAuth2 client configuration.
	config *oauth2.Config
	// verifier is the PKCE code verifier matching the challenge in URL.
	verifier string
	// URL is the authorization page the user must open.
	URL string
}

// BeginLogin creates a PKCE authorization request.
func BeginLogin(config *oauth2.Config) *LoginRequest {
	verifier := oauth2.GenerateVerifier()

	authURL := config.AuthCodeURL("",
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("appMode", "android"),
		oauth2.SetAuthURLParam("restrict_signup", "true"))

	return &LoginRequest{
		config:   config,
		verifier: verifier,
		URL:      authURL,
	}
}

// Complete exchanges the code found in the URL the browser was redirected to for a token.
// The context may carry an *http.Client under oauth2.HTTPClient.
func (r *LoginRequest) Complete(ctx context.Context, redirectedURL string) (*oauth2.Token, error) {
	code, err := authCodeFromURL(redirectedURL)
	if err != nil {
		return nil, err
	}

	token, err := r.config.Exchange(ctx, code,
		oauth2.VerifierOption(r.verifier),
		oauth2.SetAuthURLParam("scope", strings.Join(r.config.Scopes, " ")))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return token, nil
}

func authCodeFromURL(redirectedURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(redirectedURL))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingAuthCode, err)
	}

	code := parsed.Query().Get("code")
	if code == "" {
		return "", ErrMissingAuthCode
	}

	return code, nil
}

// CountryCode returns the account country carried by a token response, or an empty string.
func CountryCode(token *oauth2.Token) string {
	user, ok := token.Extra("user").(map[string]any)
	if !ok {
		return ""
	}

	countryCode, _ := user["countryCode"].(string)

	return countryCode
}

// RefreshToken renews token using its refresh token.
func RefreshToken(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (*oauth2.Token, error) {
	if token.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	refreshed, err := config.TokenSource(ctx, &oauth2.Token{RefreshToken: token.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}

	return refreshed, nil
}

// refreshingTokenSource is an oauth2.TokenSource that refreshes on expiry or on demand.
type refreshingTokenSource struct {
	// ctx carries the HTTP client used for refresh requests.
	ctx context.Context //nolint:containedctx // oauth2.TokenSource.Token takes no context.
	// config is the OAuth2 client configuration.
	config *oauth2.Config
	// onRefresh is notified with every refreshed token, may be nil.
	onRefresh TokenHandler
	// mu guards token.
	mu sync.Mutex
	// token is the current token.
	token *oauth2.Token
}

// Token returns a valid token, refreshing it when it has expired.
func (s *refreshingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.Valid() {
		return s.token, nil
	}

	refreshed, err := RefreshToken(s.ctx, s.config, s.token)
	if err != nil {
		return nil, err
	}

	logger.Infof(s.ctx, "Access token refreshed, valid until %s", refreshed.Expiry.Format(time.RFC3339))

	s.token = refreshed
	if s.onRefresh != nil {
		s.onRefresh(refreshed)
	}

	return refreshed, nil
}

// invalidate forces the next Token call to refresh.
// It reports false when there is nothing to refresh with.
func (s *refreshingTokenSource) invalidate(rejected string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.RefreshToken == "" {
		return false
	}

	// Another request may have refreshed the token already.
	if s.token.AccessToken != rejected {
		return true
	}

	expired := *s.token
	expired.Expiry = time.Unix(1, 0)
	s.token = &expired

	return true
}
