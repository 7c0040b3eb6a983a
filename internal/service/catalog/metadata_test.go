package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oshokin/tidal-grabber/internal/client/tidal"
)

func newMetadataTrack(copyright string) *tidal.Track {
	return &tidal.Track{
		ID:           77646170,
		Title:        "Gold",
		Version:      "Live",
		TrackNumber:  3,
		VolumeNumber: 2,
		ReplayGain:   -9.5,
		Peak:         0.98,
		Copyright:    copyright,
		ISRC:         "USUM71703085",
		URL:          "http://www.tidal.com/track/77646170",
		Artists:      []*tidal.ArtistRef{{ID: 1, Name: "Main"}, {ID: 2, Name: "Guest"}},
		Album:        &tidal.AlbumRef{ID: 77646164, Title: "Live Album"},
	}
}

func newMetadataAlbum() *tidal.Album {
	return &tidal.Album{
		ID:              77646164,
		Title:           "Live Album",
		NumberOfTracks:  24,
		NumberOfVolumes: 2,
		ReleaseDate:     "2017-09-22",
		Copyright:       "(P) 2017 Album Label",
		UPC:             "00602557643012",
		Artists:         []*tidal.ArtistRef{{ID: 1, Name: "Main"}},
	}
}

func TestSession_TrackMetadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		trackCopyright    string
		lyrics            *tidal.Lyrics
		expectedCopyright string
		expectedLyrics    string
		expectedSubtitles string
	}{
		{
			name:              "track copyright wins",
			trackCopyright:    "(P) 2017 Track Label",
			lyrics:            &tidal.Lyrics{Lyrics: "words", Subtitles: "[00:01.00] words"},
			expectedCopyright: "(P) 2017 Track Label",
			expectedLyrics:    "words",
			expectedSubtitles: "[00:01.00] words",
		},
		{
			name:              "album copyright fills the gap",
			lyrics:            &tidal.Lyrics{Lyrics: "words"},
			expectedCopyright: "(P) 2017 Album Label",
			expectedLyrics:    "words",
		},
		{
			name:              "track without lyrics",
			expectedCopyright: "(P) 2017 Album Label",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			session, client := newTestSession(t, 0)
			track := newMetadataTrack(tt.trackCopyright)

			client.EXPECT().GetAlbum(gomock.Any(), "77646164").Return(newMetadataAlbum(), nil).Times(1)
			client.EXPECT().GetLyrics(gomock.Any(), "77646170").Return(tt.lyrics, nil).Times(1)

			metadata, err := session.TrackMetadata(t.Context(), track)
			require.NoError(t, err)

			assert.Equal(t, &TrackMetadata{
				Artist:              "Main",
				Artists:             []string{"Main", "Guest"},
				Title:               "Gold (feat. Guest) [Live]",
				AlbumArtist:         "Main",
				AlbumArtists:        []string{"Main"},
				Album:               "Live Album",
				Date:                "2017-09-22",
				Disc:                2,
				DiscTotal:           2,
				Track:               3,
				TrackTotal:          24,
				ReplayGainTrackGain: -9.5,
				ReplayGainTrackPeak: 0.98,
				URL:                 "http://www.tidal.com/track/77646170",
				Copyright:           tt.expectedCopyright,
				ISRC:                "USUM71703085",
				Barcode:             "00602557643012",
				Lyrics:              tt.expectedLyrics,
				Subtitles:           tt.expectedSubtitles,
			}, metadata)
		})
	}
}

func TestSession_TrackMetadata_SharesAlbum(t *testing.T) {
	t.Parallel()

	session, client := newTestSession(t, 0)

	first := newMetadataTrack("")
	second := newMetadataTrack("")
	second.ID = 77646171

	client.EXPECT().GetAlbum(gomock.Any(), "77646164").Return(newMetadataAlbum(), nil).Times(1)
	client.EXPECT().GetLyrics(gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)

	for _, track := range []*tidal.Track{first, second} {
		metadata, err := session.TrackMetadata(t.Context(), track)
		require.NoError(t, err)
		assert.Equal(t, "00602557643012", metadata.Barcode)
	}
}

func TestSession_TrackMetadata_WithoutAlbum(t *testing.T) {
	t.Parallel()

	session, client := newTestSession(t, 0)

	track := newMetadataTrack("")
	track.Album = nil

	client.EXPECT().GetLyrics(gomock.Any(), "77646170").Return(nil, nil)

	metadata, err := session.TrackMetadata(t.Context(), track)
	require.NoError(t, err)

	assert.Empty(t, metadata.Album)
	assert.Empty(t, metadata.Copyright)
	assert.Empty(t, metadata.Barcode)
	assert.Equal(t, int64(3), metadata.Track)
}

func TestSession_TrackMetadata_Errors(t *testing.T) {
	t.Parallel()

	t.Run("album", func(t *testing.T) {
		t.Parallel()

		session, client := newTestSession(t, 0)
		client.EXPECT().GetAlbum(gomock.Any(), "77646164").Return(nil, errAPI)

		_, err := session.TrackMetadata(t.Context(), newMetadataTrack(""))
		require.ErrorIs(t, err, errAPI)
	})

	t.Run("lyrics", func(t *testing.T) {
		t.Parallel()

		session, client := newTestSession(t, 0)
		client.EXPECT().GetAlbum(gomock.Any(), "77646164").Return(newMetadataAlbum(), nil)
		client.EXPECT().GetLyrics(gomock.Any(), "77646170").Return(nil, errAPI)

		_, err := session.TrackMetadata(t.Context(), newMetadataTrack(""))
		require.ErrorIs(t, err, errAPI)
	})
}
