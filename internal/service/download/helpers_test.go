package download

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oshokin/tidal-grabber/internal/client/tidal"
	mock_tidal "github.com/oshokin/tidal-grabber/internal/client/tidal/mocks"
	"github.com/oshokin/tidal-grabber/internal/config"
	"github.com/oshokin/tidal-grabber/internal/remotefile"
	"github.com/oshokin/tidal-grabber/internal/service/catalog"
)

const (
	testPageSize    = 100
	testAlbumFolder = "2024 - Test Artist - Test Album"
)

// cdnServer serves stream files and records the Range header of every GET request.
type cdnServer struct {
	*httptest.Server

	mu            sync.Mutex
	files         map[string][]byte
	noRanges      bool
	rangeRequests []string
}

func newCDNServer(t *testing.T) *cdnServer {
	t.Helper()

	cdn := &cdnServer{files: make(map[string][]byte)}
	cdn.Server = httptest.NewServer(http.HandlerFunc(cdn.serve))
	t.Cleanup(cdn.Close)

	return cdn
}

func (c *cdnServer) serve(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	content, ok := c.files[r.URL.Path]
	noRanges := c.noRanges

	if r.Method == http.MethodGet {
		c.rangeRequests = append(c.rangeRequests, r.Header.Get("Range"))
	}
	c.mu.Unlock()

	if !ok {
		http.NotFound(w, r)

		return
	}

	if noRanges {
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.WriteHeader(http.StatusOK)

		if r.Method == http.MethodGet {
			_, _ = w.Write(content)
		}

		return
	}

	http.ServeContent(w, r, filepath.Base(r.URL.Path), time.Time{}, bytes.NewReader(content))
}

func (c *cdnServer) put(path string, content []byte) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.files[path] = content

	return c.URL + path
}

func (c *cdnServer) ranges() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.rangeRequests...)
}

// open opens a CDN file the way the real client does.
func (c *cdnServer) open(ctx context.Context, fileURL string) (*remotefile.File, error) {
	return remotefile.Open(ctx, c.Client(), fileURL)
}

// testDownloadSetup encapsulates common test dependencies and configuration.
type testDownloadSetup struct {
	client  *mock_tidal.MockClient
	cdn     *cdnServer
	cfg     *config.Config
	service *ServiceImpl
}

// newTestDownloadSetup creates a standard test setup with optional config overrides.
func newTestDownloadSetup(t *testing.T, configOverrides ...func(*config.Config)) *testDownloadSetup {
	t.Helper()

	ctrl := gomock.NewController(t)
	client := mock_tidal.NewMockClient(ctrl)

	cfg := &config.Config{
		OutputPath:               t.TempDir(),
		Quality:                  "LOSSLESS",
		TrackFilenameTemplate:    config.DefaultTrackFilenameTemplate,
		AlbumFolderTemplate:      config.DefaultAlbumFolderTemplate,
		PlaylistFilenameTemplate: config.DefaultPlaylistFilenameTemplate,
		CreateFolderForSingles:   true,
		MaxConcurrentDownloads:   2,
	}

	for _, override := range configOverrides {
		override(cfg)
	}

	ctx := context.Background()
	session := catalog.NewSession(client, testPageSize)

	service, ok := NewService(cfg, session, client, NewURLProcessor(), NewTemplateManager(ctx, cfg)).(*ServiceImpl)
	require.True(t, ok)

	return &testDownloadSetup{
		client:  client,
		cdn:     newCDNServer(t),
		cfg:     cfg,
		service: service,
	}
}

func testArtists() []*tidal.ArtistRef {
	return []*tidal.ArtistRef{{ID: 1, Name: "Test Artist", Type: tidal.ArtistTypeMain}}
}

func newTestAlbum(id int64, tracksCount int64) *tidal.Album {
	return &tidal.Album{
		ID:             id,
		Title:          "Test Album",
		Type:           "ALBUM",
		NumberOfTracks: tracksCount,
		ReleaseDate:    "2024-03-01",
		AudioQuality:   tidal.AudioQualityLossless,
		URL:            "http://www.tidal.com/album/" + strconv.FormatInt(id, 10),
		Artists:        testArtists(),
	}
}

func newTestTrack(id, albumID, number int64, title string) *tidal.Track {
	return &tidal.Track{
		ID:           id,
		Title:        title,
		TrackNumber:  number,
		VolumeNumber: 1,
		AudioQuality: tidal.AudioQualityLossless,
		URL:          "http://www.tidal.com/track/" + strconv.FormatInt(id, 10),
		Artists:      testArtists(),
		Album:        &tidal.AlbumRef{ID: albumID, Title: "Test Album"},
	}
}

func playbackInfo(t *testing.T, trackID int64, streamURL string, quality tidal.AudioQuality) *tidal.PlaybackInfo {
	t.Helper()

	manifest, err := json.Marshal(tidal.Manifest{
		MimeType:       "audio/flac",
		Codecs:         "flac",
		EncryptionType: "NONE",
		URLs:           []string{streamURL},
	})
	require.NoError(t, err)

	return &tidal.PlaybackInfo{
		TrackID:          trackID,
		AudioMode:        "STEREO",
		AudioQuality:     quality,
		ManifestMimeType: "application/vnd.tidal.bts",
		Manifest:         base64.StdEncoding.EncodeToString(manifest),
	}
}

// expectAlbum registers the album lookup and a single page of its tracks.
func (s *testDownloadSetup) expectAlbum(album *tidal.Album, tracks []*tidal.Track) {
	s.client.EXPECT().GetAlbum(gomock.Any(), album.Key()).Return(album, nil)
	s.expectAlbumTracks(album, tracks)
}

func (s *testDownloadSetup) expectAlbumTracks(album *tidal.Album, tracks []*tidal.Track) {
	s.client.EXPECT().
		GetAlbumTracks(gomock.Any(), album.Key(), 0, testPageSize).
		Return(&tidal.Page[tidal.Track]{
			Limit:              testPageSize,
			TotalNumberOfItems: len(tracks),
			Items:              tracks,
		}, nil)
}

// expectStream serves content as the stream of track and registers the playback lookup.
// When opened is false the stream is resolved but never opened.
func (s *testDownloadSetup) expectStream(t *testing.T, track *tidal.Track, content []byte, opened bool) string {
	t.Helper()

	streamURL := s.cdn.put("/"+track.Key()+".flac", content)

	s.client.EXPECT().
		GetPlaybackInfo(gomock.Any(), track.Key(), tidal.AudioQualityLossless).
		Return(playbackInfo(t, track.ID, streamURL, tidal.AudioQualityLossless), nil)

	if opened {
		s.client.EXPECT().OpenFile(gomock.Any(), streamURL).DoAndReturn(s.cdn.open)
	}

	return streamURL
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()

	content, err := os.ReadFile(path) //nolint:gosec // Test paths are built from t.TempDir.
	require.NoError(t, err)

	return content
}
