package catalog

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oshokin/tidal-grabber/internal/client/tidal"
	mock_tidal "github.com/oshokin/tidal-grabber/internal/client/tidal/mocks"
)

var errAPI = errors.New("api is down")

func newTestSession(t *testing.T, pageSize int) (*Session, *mock_tidal.MockClient) {
	t.Helper()

	ctrl := gomock.NewController(t)
	client := mock_tidal.NewMockClient(ctrl)

	return NewSession(client, pageSize), client
}

func manifest(t *testing.T, payload string) string {
	t.Helper()

	return base64.StdEncoding.EncodeToString([]byte(payload))
}

func TestSession_TrackIsMemoized(t *testing.T) {
	t.Parallel()

	session, client := newTestSession(t, 0)
	track := &tidal.Track{ID: 22563746, Title: "Furthest Thing"}

	client.EXPECT().GetTrack(gomock.Any(), "22563746").Return(track, nil).Times(1)

	const callers = 16

	var (
		wg      sync.WaitGroup
		results = make([]*tidal.Track, callers)
	)

	for i := range callers {
		wg.Go(func() {
			got, err := session.Track(t.Context(), "22563746")
			assert.NoError(t, err)

			results[i] = got
		})
	}

	wg.Wait()

	for _, got := range results {
		assert.Same(t, track, got)
	}

	again, err := session.Track(t.Context(), "22563746")
	require.NoError(t, err)
	assert.Same(t, track, again)
}

func TestSession_ErrorsAreMemoized(t *testing.T) {
	t.Parallel()

	session, client := newTestSession(t, 0)

	client.EXPECT().GetAlbum(gomock.Any(), "1").Return(nil, errAPI).Times(1)

	_, first := session.Album(t.Context(), "1")
	require.ErrorIs(t, first, errAPI)

	_, second := session.Album(t.Context(), "1")
	require.ErrorIs(t, second, errAPI)
	assert.Same(t, first, second)
}

func TestSession_Object(t *testing.T) {
	t.Parallel()

	session, client := newTestSession(t, 0)

	client.EXPECT().GetTrack(gomock.Any(), "1").Return(&tidal.Track{ID: 1}, nil)
	client.EXPECT().GetAlbum(gomock.Any(), "2").Return(&tidal.Album{ID: 2}, nil)
	client.EXPECT().GetPlaylist(gomock.Any(), "dcbab999-7523-4e2f-adf4-57d10fc17516").
		Return(&tidal.Playlist{UUID: "dcbab999-7523-4e2f-adf4-57d10fc17516"}, nil)
	client.EXPECT().GetArtist(gomock.Any(), "4").Return(&tidal.Artist{ID: 4}, nil)

	tests := []struct {
		url      string
		expected any
	}{
		{url: "https://tidal.com/browse/track/1", expected: &tidal.Track{ID: 1}},
		{url: "https://listen.tidal.com/album/2", expected: &tidal.Album{ID: 2}},
		{
			url:      "https://www.tidal.com/playlist/dcbab999-7523-4e2f-adf4-57d10fc17516",
			expected: &tidal.Playlist{UUID: "dcbab999-7523-4e2f-adf4-57d10fc17516"},
		},
		{url: "http://tidal.com/artist/4", expected: &tidal.Artist{ID: 4}},
	}

	for _, tt := range tests {
		got, err := session.ObjectFromURL(t.Context(), tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.expected, got, tt.url)
	}

	_, err := session.ObjectFromURL(t.Context(), "https://example.com/track/1")
	require.ErrorIs(t, err, ErrInvalidURL)

	_, err = session.Object(t.Context(), Ref{Kind: "video", ID: "1"})
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestSession_AlbumTracksPaging(t *testing.T) {
	t.Parallel()

	session, client := newTestSession(t, 2)

	gomock.InOrder(
		client.EXPECT().GetAlbumTracks(gomock.Any(), "10", 0, 2).Return(&tidal.Page[tidal.Track]{
			Offset: 0, Limit: 2, TotalNumberOfItems: 3,
			Items: []*tidal.Track{{ID: 1}, {ID: 2}},
		}, nil),
		client.EXPECT().GetAlbumTracks(gomock.Any(), "10", 2, 2).Return(&tidal.Page[tidal.Track]{
			Offset: 2, Limit: 2, TotalNumberOfItems: 3,
			Items: []*tidal.Track{{ID: 3}},
		}, nil),
	)

	var ids []int64

	for track, err := range session.AlbumTracks(t.Context(), "10") {
		require.NoError(t, err)

		ids = append(ids, track.ID)
	}

	assert.Equal(t, []int64{1, 2, 3}, ids)

	// Tracks seen in pages are served without another request.
	track, err := session.Track(t.Context(), "2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), track.ID)
}

func TestSession_PagesReuseMemoizedRecords(t *testing.T) {
	t.Parallel()

	session, client := newTestSession(t, 10)
	known := &tidal.Track{ID: 7, Title: "Known"}

	client.EXPECT().GetTrack(gomock.Any(), "7").Return(known, nil)
	client.EXPECT().GetPlaylistTracks(gomock.Any(), "abc", 0, 10).Return(&tidal.Page[tidal.Track]{
		Offset: 0, Limit: 10, TotalNumberOfItems: 1,
		Items: []*tidal.Track{{ID: 7, Title: "Page copy"}},
	}, nil)

	_, err := session.Track(t.Context(), "7")
	require.NoError(t, err)

	for track, err := range session.PlaylistTracks(t.Context(), "abc") {
		require.NoError(t, err)
		assert.Same(t, known, track)
	}
}

func TestSession_IteratorStopsOnError(t *testing.T) {
	t.Parallel()

	session, client := newTestSession(t, 1)

	client.EXPECT().GetArtistAlbums(gomock.Any(), "5", 0, 1).Return(&tidal.Page[tidal.Album]{
		Offset: 0, Limit: 1, TotalNumberOfItems: 2,
		Items: []*tidal.Album{{ID: 1}},
	}, nil)
	client.EXPECT().GetArtistAlbums(gomock.Any(), "5", 1, 1).Return(nil, errAPI)

	var (
		albums int
		errs   []error
	)

	for album, err := range session.ArtistAlbums(t.Context(), "5") {
		if err != nil {
			errs = append(errs, err)

			continue
		}

		assert.NotNil(t, album)

		albums++
	}

	assert.Equal(t, 1, albums)
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], errAPI)
}

func TestSession_IteratorEarlyBreak(t *testing.T) {
	t.Parallel()

	session, client := newTestSession(t, 2)

	client.EXPECT().GetAlbumTracks(gomock.Any(), "10", 0, 2).Return(&tidal.Page[tidal.Track]{
		Offset: 0, Limit: 2, TotalNumberOfItems: 100,
		Items: []*tidal.Track{{ID: 1}, {ID: 2}},
	}, nil).Times(1)

	for track, err := range session.AlbumTracks(t.Context(), "10") {
		require.NoError(t, err)
		assert.Equal(t, int64(1), track.ID)

		break
	}
}

func TestSession_IteratorEmptyPage(t *testing.T) {
	t.Parallel()

	session, client := newTestSession(t, 2)

	client.EXPECT().GetAlbumTracks(gomock.Any(), "10", 0, 2).Return(&tidal.Page[tidal.Track]{
		Offset: 0, Limit: 2, TotalNumberOfItems: 5,
	}, nil).Times(1)

	count := 0

	for range session.AlbumTracks(t.Context(), "10") {
		count++
	}

	assert.Zero(t, count)
}

func TestSession_TrackStream(t *testing.T) {
	t.Parallel()

	flacManifest := `{"mimeType":"audio/flac","codecs":"flac","urls":["https://cdn.example/1.flac"]}`

	tests := []struct {
		name             string
		track            *tidal.Track
		required         tidal.AudioQuality
		preferred        tidal.AudioQuality
		expectedRequest  tidal.AudioQuality
		granted          tidal.AudioQuality
		expectedErr      error
		expectedMimeType string
	}{
		{
			name:             "preferred capped by advertised quality",
			track:            &tidal.Track{ID: 1, AudioQuality: tidal.AudioQualityLossless},
			required:         tidal.AudioQualityLow,
			preferred:        tidal.AudioQualityHiRes,
			expectedRequest:  tidal.AudioQualityLossless,
			granted:          tidal.AudioQualityLossless,
			expectedMimeType: "audio/flac",
		},
		{
			name:             "preferred below advertised quality",
			track:            &tidal.Track{ID: 1, AudioQuality: tidal.AudioQualityHiRes},
			required:         tidal.AudioQualityLow,
			preferred:        tidal.AudioQualityHigh,
			expectedRequest:  tidal.AudioQualityHigh,
			granted:          tidal.AudioQualityHigh,
			expectedMimeType: "audio/flac",
		},
		{
			name:        "advertised quality below required",
			track:       &tidal.Track{ID: 1, AudioQuality: tidal.AudioQualityHigh},
			required:    tidal.AudioQualityLossless,
			preferred:   tidal.AudioQualityHiRes,
			expectedErr: ErrInsufficientAudioQuality,
		},
		{
			name:            "granted quality below required",
			track:           &tidal.Track{ID: 1, AudioQuality: tidal.AudioQualityHiRes},
			required:        tidal.AudioQualityLossless,
			preferred:       tidal.AudioQualityHiRes,
			expectedRequest: tidal.AudioQualityHiRes,
			granted:         tidal.AudioQualityHigh,
			expectedErr:     ErrInsufficientAudioQuality,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			session, client := newTestSession(t, 0)

			if tt.expectedRequest != "" {
				client.EXPECT().GetPlaybackInfo(gomock.Any(), "1", tt.expectedRequest).Return(&tidal.PlaybackInfo{
					TrackID:      1,
					AudioQuality: tt.granted,
					Manifest:     manifest(t, flacManifest),
				}, nil)
			}

			stream, err := session.TrackStream(t.Context(), tt.track, tt.required, tt.preferred)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "https://cdn.example/1.flac", stream.URL)
			assert.Equal(t, tt.granted, stream.Quality)
			assert.Equal(t, tt.expectedMimeType, stream.MimeType)
		})
	}
}

func TestSession_TrackFileURL_DASH(t *testing.T) {
	t.Parallel()

	session, client := newTestSession(t, 0)
	dash := manifest(t, "<MPD/>")

	client.EXPECT().GetPlaybackInfo(gomock.Any(), "1", tidal.AudioQualityHiRes).Return(&tidal.PlaybackInfo{
		AudioQuality: tidal.AudioQualityHiRes,
		Manifest:     dash,
	}, nil)

	fileURL, err := session.TrackFileURL(context.Background(), &tidal.Track{ID: 1, AudioQuality: tidal.AudioQualityHiRes},
		tidal.AudioQualityLow, tidal.AudioQualityHiRes)
	require.NoError(t, err)
	assert.Equal(t, "data:application/dash+xml;base64,"+dash, fileURL)
	assert.True(t, tidal.IsDASHURL(fileURL))
}
