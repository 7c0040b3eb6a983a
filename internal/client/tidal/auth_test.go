package tidal

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestBeginLogin(t *testing.T) {
	t.Parallel()

	login := BeginLogin(NewOAuthConfig("client-id", "", ""))

	parsed, err := url.Parse(login.URL)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "login.tidal.com", parsed.Host)
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, OAuthRedirectURL, query.Get("redirect_uri"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(login.verifier), query.Get("code_challenge"))
	assert.Equal(t, "android", query.Get("appMode"))
	assert.Equal(t, "r_usr w_usr w_sub", query.Get("scope"))
}

func TestLoginRequest_Complete(t *testing.T) {
	t.Parallel()

	var verifier string

	tokenServer := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, verifier, r.PostForm.Get("code_verifier"))
		assert.Equal(t, "r_usr w_usr w_sub", r.PostForm.Get("scope"))

		writeJSON(t, w, http.StatusOK, map[string]any{
			"access_token":  "access",
			"refresh_token": "refresh",
			"token_type":    "Bearer",
			"expires_in":    604800,
			"user":          map[string]any{"userId": 1, "countryCode": "NO"},
		})
	})

	login := BeginLogin(NewOAuthConfig("client-id", "", tokenServer.URL))
	verifier = login.verifier

	ctx := context.WithValue(t.Context(), oauth2.HTTPClient, tokenServer.Client())

	token, err := login.Complete(ctx, "https://tidal.com/android/login/auth?code=the-code&state=na")
	require.NoError(t, err)
	assert.Equal(t, "access", token.AccessToken)
	assert.Equal(t, "refresh", token.RefreshToken)
	assert.Equal(t, "NO", CountryCode(token))

	_, err = login.Complete(ctx, "https://tidal.com/android/login/auth?error=denied")
	require.ErrorIs(t, err, ErrMissingAuthCode)
}

func TestRefreshToken_WithoutRefreshToken(t *testing.T) {
	t.Parallel()

	_, err := RefreshToken(t.Context(), NewOAuthConfig("id", "", ""), &oauth2.Token{AccessToken: "a"})
	require.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestCountryCode_Missing(t *testing.T) {
	t.Parallel()

	assert.Empty(t, CountryCode(&oauth2.Token{AccessToken: "a"}))
}
