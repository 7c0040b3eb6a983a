package tidal

const (
	// OAuthAuthorizeURL is the TIDAL login page used for the authorization code flow.
	OAuthAuthorizeURL = "https://login.tidal.com/authorize"
	// OAuthTokenURL is the TIDAL token endpoint.
	OAuthTokenURL = "https://auth.tidal.com/v1/oauth2/token"
	// OAuthRedirectURL is the redirect URI registered for the Android client.
	OAuthRedirectURL = "https://tidal.com/android/login/auth"
)

// OAuthScopes are the scopes requested by the Android client.
//
//nolint:gochecknoglobals // Immutable list passed to oauth2.Config.
var OAuthScopes = []string{"r_usr", "w_usr", "w_sub"}

const (
	tracksPath    = "tracks"
	albumsPath    = "albums"
	playlistsPath = "playlists"
	artistsPath   = "artists"

	playbackInfoPath = "playbackinfopostpaywall"
	lyricsPath       = "lyrics"

	tidalTokenHeader = "X-Tidal-Token"
)

const (
	// coverURLTemplate builds cover image URLs from the cover path and the size.
	coverURLTemplate = "https://resources.tidal.com/images/%s/%dx%d.jpg"
	// dashManifestURLPrefix is prepended to manifests that are not JSON.
	dashManifestURLPrefix = "data:application/dash+xml;base64,"
)

const (
	// lyricsCacheSize defines the maximum number of lyrics entries to cache.
	lyricsCacheSize = 1000
	// rateLimiterBurst is the number of API requests allowed back to back.
	rateLimiterBurst = 4
	// breakerName identifies the API circuit breaker in state change logs.
	breakerName = "tidal-api"
	// breakerMaxRequests is the number of probe requests allowed in the half-open state.
	breakerMaxRequests = 3
	// breakerConsecutiveFailures is the number of consecutive failures that opens the breaker.
	breakerConsecutiveFailures = 5
)
