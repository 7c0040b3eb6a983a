package download

import (
	"archive/zip"
	"context"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oshokin/tidal-grabber/internal/client/tidal"
	"github.com/oshokin/tidal-grabber/internal/config"
	"github.com/oshokin/tidal-grabber/internal/constants"
	"github.com/oshokin/tidal-grabber/internal/remotefile"
)

func TestDownloadURLs_Album(t *testing.T) {
	t.Parallel()

	setup := newTestDownloadSetup(t, func(cfg *config.Config) {
		cfg.DownloadLyrics = true
	})

	album := newTestAlbum(7, 2)
	album.Cover = "ab-cd"
	tracks := []*tidal.Track{
		newTestTrack(71, 7, 1, "Song One"),
		newTestTrack(72, 7, 2, "Song Two"),
	}

	setup.expectAlbum(album, tracks)
	setup.expectStream(t, tracks[0], []byte("first track audio"), true)
	setup.expectStream(t, tracks[1], []byte("second track audio"), true)

	setup.client.EXPECT().
		DownloadFromURL(gomock.Any(), album.Cover.URL(constants.DefaultCoverDim)).
		Return(io.NopCloser(strings.NewReader("jpeg")), nil)
	setup.client.EXPECT().
		GetLyrics(gomock.Any(), "71").
		Return(&tidal.Lyrics{TrackID: 71, Lyrics: "plain", Subtitles: "[00:01.00] synced"}, nil)
	setup.client.EXPECT().
		GetLyrics(gomock.Any(), "72").
		Return(&tidal.Lyrics{TrackID: 72, Lyrics: "only plain"}, nil)

	setup.service.DownloadURLs(context.Background(), []string{"https://tidal.com/browse/album/7"})

	folder := filepath.Join(setup.cfg.OutputPath, testAlbumFolder)
	assert.Equal(t, []byte("first track audio"), readFile(t, filepath.Join(folder, "01 - Song One.flac")))
	assert.Equal(t, []byte("second track audio"), readFile(t, filepath.Join(folder, "02 - Song Two.flac")))
	assert.Equal(t, []byte("jpeg"), readFile(t, filepath.Join(folder, constants.CoverFilename)))
	assert.Equal(t, "[00:01.00] synced\n", string(readFile(t, filepath.Join(folder, "01 - Song One.lrc"))))
	assert.Equal(t, "only plain\n", string(readFile(t, filepath.Join(folder, "02 - Song Two.txt"))))

	leftovers, err := filepath.Glob(filepath.Join(folder, "*"+constants.ExtensionPart))
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	stats := setup.service.Statistics()
	assert.Equal(t, int64(2), stats.TracksDownloaded)
	assert.Equal(t, int64(len("first track audio")+len("second track audio")), stats.TotalBytesDownloaded)
	assert.Equal(t, int64(1), stats.CoversDownloaded)
	assert.Equal(t, int64(2), stats.LyricsDownloaded)
	assert.Empty(t, stats.Errors)
	assert.False(t, stats.EndTime.Before(stats.StartTime))
}

func TestDownloadURLs_ArtistAlbumsAreSeeded(t *testing.T) {
	t.Parallel()

	setup := newTestDownloadSetup(t)

	album := newTestAlbum(8, 1)
	track := newTestTrack(81, 8, 1, "Only Song")

	setup.client.EXPECT().
		GetArtist(gomock.Any(), "1").
		Return(&tidal.Artist{ID: 1, Name: "Test Artist"}, nil)
	setup.client.EXPECT().
		GetArtistAlbums(gomock.Any(), "1", 0, testPageSize).
		Return(&tidal.Page[tidal.Album]{Limit: testPageSize, TotalNumberOfItems: 1, Items: []*tidal.Album{album}}, nil)

	// The album record comes from the artist page, so GetAlbum is never called.
	setup.expectAlbumTracks(album, []*tidal.Track{track})
	setup.expectStream(t, track, []byte("audio"), true)

	setup.service.DownloadURLs(context.Background(), []string{
		"https://tidal.com/browse/artist/1",
		"https://tidal.com/browse/album/8",
	})

	assert.FileExists(t, filepath.Join(setup.cfg.OutputPath, testAlbumFolder, "01 - Only Song.flac"))
	assert.Equal(t, int64(1), setup.service.Statistics().TracksDownloaded)
}

func TestDownloadURLs_StandaloneTrack(t *testing.T) {
	t.Parallel()

	setup := newTestDownloadSetup(t)

	album := newTestAlbum(9, 12)
	track := newTestTrack(95, 9, 5, "Fifth")

	setup.client.EXPECT().GetTrack(gomock.Any(), "95").Return(track, nil)
	setup.client.EXPECT().GetAlbum(gomock.Any(), "9").Return(album, nil)
	setup.expectStream(t, track, []byte("fifth audio"), true)

	setup.service.DownloadURLs(context.Background(), []string{"https://listen.tidal.com/track/95"})

	assert.Equal(t, []byte("fifth audio"),
		readFile(t, filepath.Join(setup.cfg.OutputPath, testAlbumFolder, "05 - Fifth.flac")))
}

func TestDownloadURLs_SingleWithoutFolder(t *testing.T) {
	t.Parallel()

	setup := newTestDownloadSetup(t, func(cfg *config.Config) {
		cfg.CreateFolderForSingles = false
	})

	album := newTestAlbum(10, 1)
	album.Cover = "ef-01"
	track := newTestTrack(101, 10, 1, "Single")

	setup.expectAlbum(album, []*tidal.Track{track})
	setup.expectStream(t, track, []byte("single audio"), true)
	setup.client.EXPECT().
		DownloadFromURL(gomock.Any(), album.Cover.URL(constants.DefaultCoverDim)).
		Return(io.NopCloser(strings.NewReader("jpeg")), nil)

	setup.service.DownloadURLs(context.Background(), []string{"https://tidal.com/album/10"})

	trackPath := filepath.Join(setup.cfg.OutputPath, "01 - Test Artist - Single.flac")
	assert.FileExists(t, trackPath)
	assert.FileExists(t, filepath.Join(setup.cfg.OutputPath, "01 - Test Artist - Single.jpg"))
	assert.NoDirExists(t, filepath.Join(setup.cfg.OutputPath, testAlbumFolder))
}

func TestDownloadURLs_SkipsExistingTrack(t *testing.T) {
	t.Parallel()

	setup := newTestDownloadSetup(t)

	album := newTestAlbum(11, 1)
	track := newTestTrack(111, 11, 1, "Kept")

	setup.expectAlbum(album, []*tidal.Track{track})
	setup.expectStream(t, track, []byte("new audio"), false)

	folder := filepath.Join(setup.cfg.OutputPath, testAlbumFolder)
	require.NoError(t, os.MkdirAll(folder, constants.DefaultFolderPermissions))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "01 - Kept.flac"), []byte("old"), constants.DefaultFilePermissions))

	setup.service.DownloadURLs(context.Background(), []string{"https://tidal.com/album/11"})

	assert.Equal(t, []byte("old"), readFile(t, filepath.Join(folder, "01 - Kept.flac")))

	stats := setup.service.Statistics()
	assert.Equal(t, int64(1), stats.TracksSkippedExists)
	assert.Zero(t, stats.TracksDownloaded)
}

func TestDownloadURLs_PartFiles(t *testing.T) {
	t.Parallel()

	content := []byte("0123456789abcdef")

	tests := []struct {
		name          string
		noRanges      bool
		partContent   []byte
		wantRange     string
		wantResumed   int64
		wantBytesRead int64
	}{
		{
			name:          "resumes from leftover part on seekable server",
			partContent:   content[:6],
			wantRange:     "bytes=6-",
			wantResumed:   1,
			wantBytesRead: int64(len(content) - 6),
		},
		{
			name:          "restarts when server ignores ranges",
			noRanges:      true,
			partContent:   []byte("garbage"),
			wantRange:     "",
			wantBytesRead: int64(len(content)),
		},
		{
			name:          "restarts when part is larger than remote file",
			partContent:   append(append([]byte(nil), content...), "extra"...),
			wantRange:     "bytes=0-",
			wantBytesRead: int64(len(content)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			setup := newTestDownloadSetup(t)
			setup.cdn.noRanges = tt.noRanges

			album := newTestAlbum(12, 1)
			track := newTestTrack(121, 12, 1, "Partial")

			setup.expectAlbum(album, []*tidal.Track{track})
			setup.expectStream(t, track, content, true)

			folder := filepath.Join(setup.cfg.OutputPath, testAlbumFolder)
			trackPath := filepath.Join(folder, "01 - Partial.flac")
			require.NoError(t, os.MkdirAll(folder, constants.DefaultFolderPermissions))
			require.NoError(t, os.WriteFile(trackPath+constants.ExtensionPart, tt.partContent,
				constants.DefaultFilePermissions))

			setup.service.DownloadURLs(context.Background(), []string{"https://tidal.com/album/12"})

			assert.Equal(t, content, readFile(t, trackPath))
			assert.NoFileExists(t, trackPath+constants.ExtensionPart)
			assert.Equal(t, []string{tt.wantRange}, setup.cdn.ranges())

			stats := setup.service.Statistics()
			assert.Equal(t, tt.wantResumed, stats.TracksResumed)
			assert.Equal(t, tt.wantBytesRead, stats.TotalBytesDownloaded)
		})
	}
}

func TestDownloadURLs_QualityFilter(t *testing.T) {
	t.Parallel()

	setup := newTestDownloadSetup(t, func(cfg *config.Config) {
		cfg.Quality = "HI_RES"
		cfg.MinQuality = "HI_RES"
	})

	album := newTestAlbum(13, 1)
	track := newTestTrack(131, 13, 1, "Only Lossless")

	// The track is advertised below the minimum, so no playback info is requested.
	setup.expectAlbum(album, []*tidal.Track{track})

	setup.service.DownloadURLs(context.Background(), []string{"https://tidal.com/album/13"})

	stats := setup.service.Statistics()
	assert.Equal(t, int64(1), stats.TracksSkippedQuality)
	assert.Empty(t, stats.Errors)
}

func TestDownloadURLs_DASHIsRecordedAsFailure(t *testing.T) {
	t.Parallel()

	setup := newTestDownloadSetup(t)

	album := newTestAlbum(14, 1)
	track := newTestTrack(141, 14, 1, "Dash")

	setup.expectAlbum(album, []*tidal.Track{track})
	setup.client.EXPECT().
		GetPlaybackInfo(gomock.Any(), "141", tidal.AudioQualityLossless).
		Return(&tidal.PlaybackInfo{
			TrackID:      141,
			AudioQuality: tidal.AudioQualityLossless,
			Manifest:     base64.StdEncoding.EncodeToString([]byte("<MPD></MPD>")),
		}, nil)

	setup.service.DownloadURLs(context.Background(), []string{"https://tidal.com/album/14"})

	stats := setup.service.Statistics()
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, int64(1), stats.TracksFailed)
	assert.Equal(t, "resolving stream", stats.Errors[0].Phase)
	assert.Contains(t, stats.Errors[0].ErrorMessage, ErrDASHNotSupported.Error())
	assert.Equal(t, DownloadCategoryAlbum, stats.Errors[0].ParentCategory)
	assert.Equal(t, "14", stats.Errors[0].ParentID)
}

func TestDownloadURLs_AlbumErrorIsRecorded(t *testing.T) {
	t.Parallel()

	setup := newTestDownloadSetup(t)

	setup.client.EXPECT().
		GetAlbum(gomock.Any(), "15").
		Return(nil, tidal.ErrNotFound)

	setup.service.DownloadURLs(context.Background(), []string{"https://tidal.com/album/15"})

	stats := setup.service.Statistics()
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, DownloadCategoryAlbum, stats.Errors[0].Category)
	assert.Equal(t, "https://tidal.com/album/15", stats.Errors[0].ItemURL)
	assert.Equal(t, []string{"https://tidal.com/album/15"}, retryURLs(stats.Errors))
}

func TestDownloadURLs_DryRunWritesNothing(t *testing.T) {
	t.Parallel()

	setup := newTestDownloadSetup(t, func(cfg *config.Config) {
		cfg.DryRun = true
	})

	album := newTestAlbum(16, 2)
	tracks := []*tidal.Track{
		newTestTrack(161, 16, 1, "One"),
		newTestTrack(162, 16, 2, "Two"),
	}

	setup.expectAlbum(album, tracks)
	setup.expectStream(t, tracks[0], []byte("12345"), true)
	setup.expectStream(t, tracks[1], []byte("1234567"), true)

	setup.service.DownloadURLs(context.Background(), []string{"https://tidal.com/album/16"})

	entries, err := os.ReadDir(setup.cfg.OutputPath)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, setup.cdn.ranges())

	stats := setup.service.Statistics()
	assert.True(t, stats.IsDryRun)
	assert.Equal(t, int64(2), stats.TracksDownloaded)
	assert.Equal(t, int64(12), stats.TotalBytesDownloaded)
}

func TestDownloadURLs_PackToZip(t *testing.T) {
	t.Parallel()

	setup := newTestDownloadSetup(t, func(cfg *config.Config) {
		cfg.PackToZip = true
		cfg.DownloadLyrics = true
	})

	album := newTestAlbum(17, 2)
	album.Cover = "12-34"
	tracks := []*tidal.Track{
		newTestTrack(171, 17, 1, "Zipped"),
		newTestTrack(172, 17, 2, "Ünïcode"),
	}

	setup.expectAlbum(album, tracks)
	setup.expectStream(t, tracks[0], []byte("zipped audio"), true)
	setup.expectStream(t, tracks[1], []byte("unicode audio"), true)

	coverURL := setup.cdn.put("/cover.jpg", []byte("cover bytes"))
	setup.client.EXPECT().
		OpenFile(gomock.Any(), album.Cover.URL(constants.DefaultCoverDim)).
		DoAndReturn(func(ctx context.Context, _ string) (*remotefile.File, error) {
			return setup.cdn.open(ctx, coverURL)
		})
	setup.client.EXPECT().
		GetLyrics(gomock.Any(), "171").
		Return(&tidal.Lyrics{Subtitles: "[00:00.50] la"}, nil)
	setup.client.EXPECT().
		GetLyrics(gomock.Any(), "172").
		Return(nil, nil)

	setup.service.DownloadURLs(context.Background(), []string{"https://tidal.com/album/17"})

	archivePath := filepath.Join(setup.cfg.OutputPath, testAlbumFolder+constants.ExtensionZIP)
	require.FileExists(t, archivePath)
	assert.NoDirExists(t, filepath.Join(setup.cfg.OutputPath, testAlbumFolder))

	reader, err := zip.OpenReader(archivePath)
	require.NoError(t, err)

	defer reader.Close()

	want := []ArchiveEntry{
		{Name: constants.CoverFilename, Size: int64(len("cover bytes"))},
		{Name: "01 - Zipped.flac", Size: int64(len("zipped audio"))},
		{Name: "01 - Zipped.lrc", Size: int64(len("[00:00.50] la\n"))},
		{Name: "02 - Ünïcode.flac", Size: int64(len("unicode audio"))},
	}

	got := make([]ArchiveEntry, 0, len(reader.File))
	for _, f := range reader.File {
		assert.Equal(t, zip.Store, f.Method)
		got = append(got, ArchiveEntry{Name: f.Name, Size: int64(f.UncompressedSize64)}) //nolint:gosec // Test sizes are tiny.
	}

	assert.Equal(t, want, got)

	info, err := os.Stat(archivePath)
	require.NoError(t, err)
	assert.Equal(t, PredictArchiveSize(want), info.Size())

	stats := setup.service.Statistics()
	assert.Equal(t, int64(2), stats.TracksDownloaded)
	assert.Equal(t, int64(1), stats.ArchivesCreated)
	assert.Equal(t, int64(1), stats.LyricsDownloaded)
	assert.Equal(t, int64(1), stats.CoversDownloaded)
}
