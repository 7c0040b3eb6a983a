package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oshokin/tidal-grabber/internal/client/tidal"
	"github.com/oshokin/tidal-grabber/internal/constants"
	"github.com/oshokin/tidal-grabber/internal/logger"
	"github.com/oshokin/tidal-grabber/internal/remotefile"
	"github.com/oshokin/tidal-grabber/internal/service/catalog"
	"github.com/oshokin/tidal-grabber/internal/utils"
)

// downloadTracks downloads the tracks of a collection with at most MaxConcurrentDownloads in flight.
func (s *ServiceImpl) downloadTracks(ctx context.Context, collection *audioCollection, tracks []*collectionTrack) {
	var group errgroup.Group

	group.SetLimit(int(max(1, s.cfg.MaxConcurrentDownloads)))

	for _, item := range tracks {
		// Stop queueing new downloads once the run is canceled (CTRL+C).
		if ctx.Err() != nil {
			break
		}

		group.Go(func() error {
			s.downloadTrack(ctx, collection, item)

			// Add a random pause between downloads to avoid rate limiting.
			if !s.cfg.DryRun {
				utils.RandomPause(0, s.cfg.ParsedMaxDownloadPause)
			}

			return nil
		})
	}

	_ = group.Wait() //nolint:errcheck // Track errors are recorded in statistics.
}

func (s *ServiceImpl) downloadTrack(ctx context.Context, collection *audioCollection, item *collectionTrack) {
	track := item.track
	title := catalog.FormatTrackTitle(track)

	logger.Infof(ctx, "Downloading track %d of %d: %s - %s",
		item.position, collection.tracksCount, catalog.FormatArtists(track.Artists), title)

	stream, err := s.session.TrackStream(ctx, track, s.requiredQuality, s.preferredQuality)
	if err != nil {
		if errors.Is(err, catalog.ErrInsufficientAudioQuality) {
			logger.Warnf(ctx, "Skipping track '%s': %v", title, err)
			s.incrementTrackSkipped(SkipReasonQuality)

			return
		}

		s.failTrack(ctx, collection, track, "resolving stream", err)

		return
	}

	if tidal.IsDASHURL(stream.URL) {
		s.failTrack(ctx, collection, track, "resolving stream",
			fmt.Errorf("%w: track is streamed in %s", ErrDASHNotSupported, stream.Quality))

		return
	}

	trackPath := filepath.Join(collection.tracksPath, s.trackFilename(ctx, collection, item, stream))

	result, err := s.downloadAndSaveTrack(ctx, stream.URL, trackPath)
	if err != nil {
		s.failTrack(ctx, collection, track, "downloading track", err)

		return
	}

	if result.IsExist {
		s.incrementTrackSkipped(SkipReasonExists)
	} else {
		if !s.cfg.DryRun {
			if err = os.Rename(result.TempPath, trackPath); err != nil {
				s.failTrack(ctx, collection, track, "finalizing track", err)

				return
			}

			logger.Infof(ctx, "Track saved to file: %s", trackPath)
		}

		if result.ResumedFrom > 0 {
			s.incrementTrackResumed()
		}

		s.incrementTrackDownloaded(result.BytesDownloaded)
	}

	s.downloadAndSaveLyrics(ctx, collection, track, trackPath)
	s.saveTrackMetadata(ctx, collection, track, trackPath)

	if collection.isSingleWithoutFolder && collection.coverURL != "" {
		s.downloadCover(ctx, collection, utils.SetFileExtension(trackPath, constants.ExtensionJPG, true))
	}
}

func (s *ServiceImpl) failTrack(
	ctx context.Context,
	collection *audioCollection,
	track *tidal.Track,
	phase string,
	err error,
) {
	if errors.Is(err, context.Canceled) {
		return
	}

	logger.Errorf(ctx, "Failed %s for track '%s': %v", phase, catalog.FormatTrackTitle(track), err)
	s.recordError(collection.trackErrorContext(track, phase), err)
	s.incrementTrackFailed()
}

// trackFilename renders the sanitized file name of a track, extension included.
func (s *ServiceImpl) trackFilename(
	ctx context.Context,
	collection *audioCollection,
	item *collectionTrack,
	stream *catalog.Stream,
) string {
	tags := fillTrackTagsForTemplating(collection, item, stream.Quality)
	isPlaylist := collection.category == DownloadCategoryPlaylist
	filename := s.templateManager.GetTrackFilename(ctx, isPlaylist, tags, collection.tracksCount)
	filename = utils.SanitizeFilename(filename)

	return utils.SetFileExtension(filename, streamExtension(stream), false)
}

// streamExtension picks the file extension of a stream from its media type.
func streamExtension(stream *catalog.Stream) string {
	mimeType := strings.ToLower(stream.MimeType)

	switch {
	case strings.Contains(mimeType, "flac"):
		return constants.ExtensionFLAC
	case strings.HasPrefix(mimeType, "audio/mp4"), strings.Contains(mimeType, "m4a"):
		return constants.ExtensionM4A
	case strings.EqualFold(stream.Codecs, "flac"):
		return constants.ExtensionFLAC
	case stream.Quality.IsLossless():
		return constants.ExtensionFLAC
	default:
		return constants.ExtensionM4A
	}
}

// downloadAndSaveTrack downloads a stream into trackPath + ".part".
// A leftover .part file is continued when the server supports ranges, otherwise the download restarts.
// The completed .part file is left for the caller to rename.
//
//nolint:funlen // Sequential download steps are easier to follow in one place.
func (s *ServiceImpl) downloadAndSaveTrack(
	ctx context.Context,
	streamURL string,
	trackPath string,
) (*DownloadTrackResult, error) {
	if !s.cfg.ReplaceTracks {
		if isExist, _ := utils.IsFileExist(trackPath); isExist {
			if s.cfg.DryRun {
				logger.Infof(ctx, "[DRY-RUN] Track '%s' already exists, would skip", trackPath)
			} else {
				logger.Infof(ctx, "Track '%s' already exists, skipping download", trackPath)
			}

			return &DownloadTrackResult{IsExist: true}, nil
		}
	}

	file, err := s.client.OpenFile(ctx, streamURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open track stream: %w", err)
	}

	defer file.Close() //nolint:errcheck // Error on close is not critical here.

	tempFilePath := trackPath + constants.ExtensionPart
	resumeFrom := s.resumeOffset(ctx, file, tempFilePath)

	if s.cfg.DryRun {
		logger.Infof(ctx, "[DRY-RUN] Would download track to: %s (%s)",
			trackPath, humanize.Bytes(uint64(file.Length()))) //nolint:gosec // Length is never negative.

		return &DownloadTrackResult{
			BytesDownloaded: file.Length() - resumeFrom,
			ResumedFrom:     resumeFrom,
		}, nil
	}

	fileOptions := overwriteFileOptions
	if resumeFrom > 0 {
		fileOptions = appendFileOptions
	}

	f, err := os.OpenFile(filepath.Clean(tempFilePath), fileOptions, constants.DefaultFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}

	var downloadSucceeded bool

	defer func() {
		if downloadSucceeded {
			return
		}

		_ = f.Close()

		// Partial files of seekable streams are continued by the next run.
		if file.Seekable() {
			return
		}

		if removeErr := os.Remove(tempFilePath); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warnf(ctx, "Failed to clean up temporary file '%s': %v", tempFilePath, removeErr)
		}
	}()

	// Progress bars are disabled when downloading concurrently to avoid terminal output conflicts.
	var writer io.Writer = f

	if logger.Level() <= zap.InfoLevel && s.cfg.MaxConcurrentDownloads == 1 {
		bar := progressbar.DefaultBytes(file.Length(), "Downloading")
		if resumeFrom > 0 {
			_ = bar.Set64(resumeFrom)
		}

		writer = io.MultiWriter(f, bar)
	}

	bytesWritten, err := s.copyTrack(ctx, writer, file)
	if err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	if resumeFrom+bytesWritten != file.Length() {
		return nil, fmt.Errorf(
			"%w: wrote %d bytes, expected %d bytes",
			ErrIncompleteDownload,
			resumeFrom+bytesWritten,
			file.Length(),
		)
	}

	if err = f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}

	downloadSucceeded = true

	return &DownloadTrackResult{
		TempPath:        tempFilePath,
		BytesDownloaded: bytesWritten,
		ResumedFrom:     resumeFrom,
	}, nil
}

// resumeOffset returns the size of a leftover .part file if the stream can continue from it, zero otherwise.
func (s *ServiceImpl) resumeOffset(ctx context.Context, file *remotefile.File, tempFilePath string) int64 {
	size, err := utils.FileSize(tempFilePath)
	if err != nil || size <= 0 {
		return 0
	}

	if size > file.Length() {
		logger.Warnf(ctx, "Temporary file '%s' is larger than the remote file, restarting", tempFilePath)

		return 0
	}

	if s.cfg.DryRun {
		if !file.Seekable() {
			return 0
		}

		return size
	}

	if _, err = file.Seek(size, io.SeekStart); err != nil {
		if errors.Is(err, remotefile.ErrNotSeekable) {
			logger.Infof(ctx, "Server does not support ranges, restarting '%s'", tempFilePath)
		} else {
			logger.Warnf(ctx, "Failed to resume '%s', restarting: %v", tempFilePath, err)
		}

		return 0
	}

	//nolint:gosec // size is positive.
	logger.Infof(ctx, "Resuming '%s' from %s", tempFilePath, humanize.Bytes(uint64(size)))

	return size
}

// copyTrack copies a stream, continuing once from the current position if a seekable stream breaks.
func (s *ServiceImpl) copyTrack(ctx context.Context, dst io.Writer, file *remotefile.File) (int64, error) {
	written, err := copyWithSpeedLimit(ctx, dst, file, s.cfg.ParsedDownloadSpeedLimit)
	if err == nil || ctx.Err() != nil || !file.Seekable() {
		return written, err
	}

	// The next read reopens the stream at the current position.
	logger.Warnf(ctx, "Stream broke at %d of %d bytes, reopening: %v", file.Tell(), file.Length(), err)

	more, err := copyWithSpeedLimit(ctx, dst, file, s.cfg.ParsedDownloadSpeedLimit)

	return written + more, err
}

func (s *ServiceImpl) downloadAndSaveLyrics(
	ctx context.Context,
	collection *audioCollection,
	track *tidal.Track,
	trackPath string,
) {
	if !s.cfg.DownloadLyrics {
		return
	}

	lyrics, err := s.session.Lyrics(ctx, track)
	if err != nil {
		logger.Errorf(ctx, "Failed to get lyrics: %v", err)
		s.recordError(collection.trackErrorContext(track, "downloading lyrics"), err)

		return
	}

	content, extension := lyricsContent(lyrics)
	if content == "" {
		logger.Debugf(ctx, "No lyrics for track '%s'", catalog.FormatTrackTitle(track))

		return
	}

	lyricsPath := utils.SetFileExtension(trackPath, extension, true)

	if s.cfg.DryRun {
		if isExist, _ := utils.IsFileExist(lyricsPath); isExist && !s.cfg.ReplaceLyrics {
			logger.Infof(ctx, "[DRY-RUN] Lyrics '%s' already exists, would skip", lyricsPath)
			s.incrementLyricsSkipped()
		} else {
			logger.Infof(ctx, "[DRY-RUN] Would save lyrics to: %s", lyricsPath)
			s.incrementLyricsDownloaded()
		}

		return
	}

	isExist, err := writeTextFile(ctx, content, lyricsPath, s.cfg.ReplaceLyrics)
	if err != nil {
		logger.Errorf(ctx, "Failed to write lyrics: %v", err)
		s.recordError(collection.trackErrorContext(track, "writing lyrics"), err)

		return
	}

	if isExist {
		s.incrementLyricsSkipped()

		return
	}

	s.incrementLyricsDownloaded()
	logger.Infof(ctx, "Lyrics saved to file: %s", lyricsPath)
}

// saveTrackMetadata writes the tags of a track as JSON next to the track file.
func (s *ServiceImpl) saveTrackMetadata(
	ctx context.Context,
	collection *audioCollection,
	track *tidal.Track,
	trackPath string,
) {
	if !s.cfg.SaveMetadata {
		return
	}

	metadataPath := utils.SetFileExtension(trackPath, constants.ExtensionJSON, true)

	// Existing files are skipped before the album and lyrics are requested.
	if isExist, _ := utils.IsFileExist(metadataPath); isExist && !s.cfg.ReplaceTracks {
		logger.Infof(ctx, "Metadata '%s' already exists, skipping", metadataPath)
		s.incrementMetadataSkipped()

		return
	}

	if s.cfg.DryRun {
		logger.Infof(ctx, "[DRY-RUN] Would save metadata to: %s", metadataPath)
		s.incrementMetadataSaved()

		return
	}

	content, err := s.trackMetadataContent(ctx, track)
	if err != nil {
		logger.Errorf(ctx, "Failed to build metadata: %v", err)
		s.recordError(collection.trackErrorContext(track, "building metadata"), err)

		return
	}

	isExist, err := writeTextFile(ctx, content, metadataPath, s.cfg.ReplaceTracks)
	if err != nil {
		logger.Errorf(ctx, "Failed to write metadata: %v", err)
		s.recordError(collection.trackErrorContext(track, "writing metadata"), err)

		return
	}

	if isExist {
		s.incrementMetadataSkipped()

		return
	}

	s.incrementMetadataSaved()
	logger.Debugf(ctx, "Metadata saved to file: %s", metadataPath)
}

// trackMetadataContent renders the tags of a track as indented JSON.
func (s *ServiceImpl) trackMetadataContent(ctx context.Context, track *tidal.Track) (string, error) {
	metadata, err := s.session.TrackMetadata(ctx, track)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}

	return string(data) + "\n", nil
}

// lyricsContent returns synchronized lyrics as LRC when present, plain text otherwise.
func lyricsContent(lyrics *tidal.Lyrics) (string, string) {
	if lyrics == nil {
		return "", ""
	}

	if subtitles := strings.TrimSpace(lyrics.Subtitles); subtitles != "" {
		return subtitles + "\n", constants.ExtensionLRC
	}

	if text := strings.TrimSpace(lyrics.Lyrics); text != "" {
		return text + "\n", constants.ExtensionTXT
	}

	return "", ""
}
