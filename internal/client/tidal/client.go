package tidal

//go:generate $MOCKGEN -source=client.go -destination=mocks/client_mock.go

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"

	"github.com/oshokin/tidal-grabber/internal/config"
	"github.com/oshokin/tidal-grabber/internal/logger"
	"github.com/oshokin/tidal-grabber/internal/remotefile"
	http_transport "github.com/oshokin/tidal-grabber/internal/transport/http"
	"github.com/oshokin/tidal-grabber/internal/utils"
)

// Client defines the interface for interacting with the TIDAL API.
type Client interface {
	// DownloadFromURL downloads content such as cover images from the specified URL.
	DownloadFromURL(ctx context.Context, url string) (io.ReadCloser, error)
	// GetAlbum fetches an album by ID.
	GetAlbum(ctx context.Context, albumID string) (*Album, error)
	// GetAlbumTracks fetches a page of album tracks.
	GetAlbumTracks(ctx context.Context, albumID string, offset, limit int) (*Page[Track], error)
	// GetArtist fetches an artist by ID.
	GetArtist(ctx context.Context, artistID string) (*Artist, error)
	// GetArtistAlbums fetches a page of albums released by an artist.
	GetArtistAlbums(ctx context.Context, artistID string, offset, limit int) (*Page[Album], error)
	// GetLyrics fetches track lyrics. It returns nil when the track has none.
	GetLyrics(ctx context.Context, trackID string) (*Lyrics, error)
	// GetPlaybackInfo fetches the stream manifest of a track in the requested quality.
	GetPlaybackInfo(ctx context.Context, trackID string, quality AudioQuality) (*PlaybackInfo, error)
	// GetPlaylist fetches a playlist by UUID.
	GetPlaylist(ctx context.Context, playlistUUID string) (*Playlist, error)
	// GetPlaylistTracks fetches a page of playlist tracks.
	GetPlaylistTracks(ctx context.Context, playlistUUID string, offset, limit int) (*Page[Track], error)
	// GetTrack fetches a track by ID.
	GetTrack(ctx context.Context, trackID string) (*Track, error)
	// OpenFile opens a stream URL as a seekable remote file.
	OpenFile(ctx context.Context, fileURL string) (*remotefile.File, error)
}

// ClientImpl implements the Client interface for interacting with the TIDAL API.
type ClientImpl struct {
	// cfg contains the application configuration.
	cfg *config.Config
	// baseURL is the base URL for API requests.
	baseURL *url.URL
	// apiClient sends authenticated, retried and rate-limited API requests.
	apiClient *http.Client
	// fileClient fetches streams and images without API credentials.
	fileClient *http.Client
	// tokens supplies and refreshes OAuth2 access tokens.
	tokens *refreshingTokenSource
	// breaker stops hammering the API after repeated failures.
	breaker *gobreaker.CircuitBreaker
	// lyricsCache caches lyrics, including their absence, by track ID.
	lyricsCache *lru.Cache[string, *Lyrics]
}

// Option configures a ClientImpl.
type Option func(*clientOptions)

type clientOptions struct {
	// tokenURL overrides the OAuth2 token endpoint.
	tokenURL string
	// onTokenRefresh is notified with every refreshed token.
	onTokenRefresh TokenHandler
	// baseTransport is the innermost round tripper.
	baseTransport http.RoundTripper
}

const (
	// breakerInterval is the cyclic period after which closed-state counts are cleared.
	breakerInterval = 10 * time.Second
	// breakerTimeout is the time the breaker stays open before probing again.
	breakerTimeout = 30 * time.Second
)

// WithTokenURL overrides the OAuth2 token endpoint.
func WithTokenURL(tokenURL string) Option {
	return func(o *clientOptions) {
		o.tokenURL = tokenURL
	}
}

// WithTokenRefreshHandler registers a handler receiving refreshed tokens.
func WithTokenRefreshHandler(handler TokenHandler) Option {
	return func(o *clientOptions) {
		o.onTokenRefresh = handler
	}
}

// WithBaseTransport replaces http.DefaultTransport as the innermost round tripper.
func WithBaseTransport(transport http.RoundTripper) Option {
	return func(o *clientOptions) {
		o.baseTransport = transport
	}
}

// NewClient creates and returns a new instance of ClientImpl.
// The context is used for token refresh requests made for the lifetime of the client.
func NewClient(ctx context.Context, cfg *config.Config, opts ...Option) (Client, error) {
	options := &clientOptions{
		baseTransport: http.DefaultTransport,
	}

	for _, opt := range opts {
		opt(options)
	}

	// Parse the base URL for the TIDAL API.
	baseURL, err := url.Parse(cfg.TidalAPIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid host URL: %w", err)
	}

	// Streams and images: logging and user agent only, no timeout since downloads can be long.
	fileTransport := http_transport.NewUserAgentInjector(
		http_transport.NewLogTransport(options.baseTransport, 0),
		utils.NewStaticUserAgentProvider(cfg.UserAgent, http_transport.DefaultUserAgent))
	fileClient := &http.Client{Transport: fileTransport}

	// API requests additionally carry the client token and are rate limited.
	apiTransport := http_transport.NewHeaderInjector(
		http_transport.NewRateLimiter(fileTransport, cfg.RequestsPerSecond, rateLimiterBurst),
		baseURL.Host,
		http.Header{tidalTokenHeader: []string{cfg.ClientID}})

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{
		Transport: apiTransport,
		Timeout:   http_transport.DefaultTimeout,
	}
	retryClient.RetryMax = int(cfg.RetryAttemptsCount)
	retryClient.RetryWaitMin = cfg.ParsedMinRetryPause
	retryClient.RetryWaitMax = cfg.ParsedMaxRetryPause
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	tokens := &refreshingTokenSource{
		ctx:       context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, fileClient),
		config:    NewOAuthConfig(cfg.ClientID, "", options.tokenURL),
		onRefresh: options.onTokenRefresh,
		token: &oauth2.Token{
			AccessToken:  cfg.AccessToken,
			TokenType:    "Bearer",
			RefreshToken: cfg.RefreshToken,
			Expiry:       cfg.ParsedTokenExpiry,
		},
	}

	apiClient := retryClient.StandardClient()
	apiClient.Transport = &oauth2.Transport{
		Source: tokens,
		Base:   apiClient.Transport,
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: breakerMaxRequests,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > breakerConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf(ctx, "Circuit breaker %s changed state from %s to %s", name, from, to)
		},
		IsSuccessful: isBreakerSuccess,
	})

	lyricsCache, err := lru.New[string, *Lyrics](lyricsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create lyrics cache: %w", err)
	}

	client := &ClientImpl{
		cfg:         cfg,
		baseURL:     baseURL,
		apiClient:   apiClient,
		fileClient:  fileClient,
		tokens:      tokens,
		breaker:     breaker,
		lyricsCache: lyricsCache,
	}

	return client, nil
}

// DownloadFromURL downloads content from the specified URL.
func (c *ClientImpl) DownloadFromURL(ctx context.Context, url string) (io.ReadCloser, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := c.fileClient.Do(request)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		response.Body.Close() //nolint:gosec // Error on close is not critical here.

		return nil, &StatusError{StatusCode: response.StatusCode}
	}

	return response.Body, nil
}

// GetAlbum fetches an album by ID.
func (c *ClientImpl) GetAlbum(ctx context.Context, albumID string) (*Album, error) {
	return fetchJSON[Album](ctx, c, nil, albumsPath, albumID)
}

// GetAlbumTracks fetches a page of album tracks.
func (c *ClientImpl) GetAlbumTracks(ctx context.Context, albumID string, offset, limit int) (*Page[Track], error) {
	return fetchJSON[Page[Track]](ctx, c, pageQuery(offset, limit), albumsPath, albumID, tracksPath)
}

// GetArtist fetches an artist by ID.
func (c *ClientImpl) GetArtist(ctx context.Context, artistID string) (*Artist, error) {
	return fetchJSON[Artist](ctx, c, nil, artistsPath, artistID)
}

// GetArtistAlbums fetches a page of albums released by an artist.
func (c *ClientImpl) GetArtistAlbums(ctx context.Context, artistID string, offset, limit int) (*Page[Album], error) {
	return fetchJSON[Page[Album]](ctx, c, pageQuery(offset, limit), artistsPath, artistID, albumsPath)
}

// GetLyrics fetches track lyrics. It returns nil when the track has none.
// Results, including missing lyrics, are cached per track.
func (c *ClientImpl) GetLyrics(ctx context.Context, trackID string) (*Lyrics, error) {
	if cached, ok := c.lyricsCache.Get(trackID); ok {
		logger.Debugf(ctx, "Lyrics cache hit for track ID: %s", trackID)

		return cached, nil
	}

	lyrics, err := fetchJSON[Lyrics](ctx, c, nil, tracksPath, trackID, lyricsPath)
	if errors.Is(err, ErrNotFound) {
		lyrics, err = nil, nil
	}

	if err != nil {
		return nil, err
	}

	c.lyricsCache.Add(trackID, lyrics)

	return lyrics, nil
}

// GetPlaybackInfo fetches the stream manifest of a track in the requested quality.
func (c *ClientImpl) GetPlaybackInfo(
	ctx context.Context,
	trackID string,
	quality AudioQuality,
) (*PlaybackInfo, error) {
	query := url.Values{}
	query.Set("playbackmode", "STREAM")
	query.Set("assetpresentation", "FULL")
	query.Set("audioquality", quality.String())

	return fetchJSON[PlaybackInfo](ctx, c, query, tracksPath, trackID, playbackInfoPath)
}

// GetPlaylist fetches a playlist by UUID.
func (c *ClientImpl) GetPlaylist(ctx context.Context, playlistUUID string) (*Playlist, error) {
	return fetchJSON[Playlist](ctx, c, nil, playlistsPath, playlistUUID)
}

// GetPlaylistTracks fetches a page of playlist tracks.
func (c *ClientImpl) GetPlaylistTracks(
	ctx context.Context,
	playlistUUID string,
	offset, limit int,
) (*Page[Track], error) {
	return fetchJSON[Page[Track]](ctx, c, pageQuery(offset, limit), playlistsPath, playlistUUID, tracksPath)
}

// GetTrack fetches a track by ID.
func (c *ClientImpl) GetTrack(ctx context.Context, trackID string) (*Track, error) {
	return fetchJSON[Track](ctx, c, nil, tracksPath, trackID)
}

// OpenFile opens a stream URL as a seekable remote file.
// Stream hosts never receive the API credentials.
func (c *ClientImpl) OpenFile(ctx context.Context, fileURL string) (*remotefile.File, error) {
	return remotefile.Open(ctx, c.fileClient, fileURL)
}

func pageQuery(offset, limit int) url.Values {
	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	return query
}

// isBreakerSuccess reports whether err should not count as an API failure.
func isBreakerSuccess(err error) bool {
	var statusErr *StatusError

	switch {
	case err == nil:
		return true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.As(err, &statusErr):
		return statusErr.StatusCode < http.StatusInternalServerError &&
			statusErr.StatusCode != http.StatusTooManyRequests
	default:
		return false
	}
}

// fetchJSON fetches the API resource at the joined path and decodes it into T.
//
//nolint:revive // Has no sense, it's cause Go doesn't allow struct methods to be generic.
func fetchJSON[T any](
	ctx context.Context,
	c *ClientImpl,
	query url.Values,
	elem ...string,
) (*T, error) {
	route := c.baseURL.JoinPath(elem...)

	if query == nil {
		query = url.Values{}
	}

	query.Set("countryCode", c.cfg.CountryCode)
	route.RawQuery = query.Encode()

	result, err := c.breaker.Execute(func() (any, error) {
		return fetchJSONWithRefresh[T](ctx, c, route.String())
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}

		return nil, err
	}

	typed, _ := result.(*T)

	return typed, nil
}

// fetchJSONWithRefresh sends the request and retries it once with a refreshed
// token when the access token is rejected.
//
//nolint:revive // Has no sense, it's cause Go doesn't allow struct methods to be generic.
func fetchJSONWithRefresh[T any](ctx context.Context, c *ClientImpl, route string) (*T, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}

		result, err := doJSON[T](ctx, c, route)
		if !errors.Is(err, ErrUnauthorized) || attempt > 0 || !c.tokens.invalidate(token.AccessToken) {
			return result, err
		}

		logger.Info(ctx, "Access token was rejected, refreshing it")
	}
}

//nolint:revive // Has no sense, it's cause Go doesn't allow struct methods to be generic.
func doJSON[T any](ctx context.Context, c *ClientImpl, route string) (*T, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, route, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := c.apiClient.Do(request)
	if err != nil {
		return nil, err
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, newStatusError(response)
	}

	var result T
	if err = json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

func newStatusError(response *http.Response) *StatusError {
	statusErr := new(StatusError)

	// The body is optional, a decoding failure only loses the message.
	_ = json.NewDecoder(response.Body).Decode(statusErr)
	statusErr.StatusCode = response.StatusCode

	return statusErr
}
