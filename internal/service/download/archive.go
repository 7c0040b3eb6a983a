package download

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/oshokin/tidal-grabber/internal/client/tidal"
	"github.com/oshokin/tidal-grabber/internal/constants"
	"github.com/oshokin/tidal-grabber/internal/logger"
	"github.com/oshokin/tidal-grabber/internal/service/catalog"
	"github.com/oshokin/tidal-grabber/internal/utils"
)

// ZIP record sizes as written by archive/zip for stored entries with a modification time.
const (
	zipLocalHeaderLen        = 30
	zipCentralHeaderLen      = 46
	zipExtendedTimestampLen  = 9
	zipDataDescriptorLen     = 16
	zipDataDescriptor64Len   = 24
	zipCentralZip64ExtraLen  = 28
	zipDirectoryEndLen       = 22
	zipDirectory64EndLen     = 56
	zipDirectory64LocatorLen = 20
	zipUint16Max             = 1<<16 - 1
	zipUint32Max             = 1<<32 - 1
)

// ArchiveEntry is a file stored in a ZIP archive.
type ArchiveEntry struct {
	// Name is the path of the entry inside the archive.
	Name string
	// Size is the exact length of the entry content.
	Size int64
}

// PredictArchiveSize returns the exact size of a ZIP archive holding entries
// stored without compression, in order, each with a modification time.
// Archives past 4 GiB or 65535 entries switch to ZIP64 records as archive/zip does.
func PredictArchiveSize(entries []ArchiveEntry) int64 {
	var offset, directorySize uint64

	for _, entry := range entries {
		var (
			size        = uint64(max(entry.Size, 0))
			nameLen     = uint64(len(entry.Name))
			entryOffset = offset
		)

		offset += zipLocalHeaderLen + nameLen + zipExtendedTimestampLen + size

		if size >= zipUint32Max {
			offset += zipDataDescriptor64Len
		} else {
			offset += zipDataDescriptorLen
		}

		directorySize += zipCentralHeaderLen + nameLen + zipExtendedTimestampLen

		if size >= zipUint32Max || entryOffset >= zipUint32Max {
			directorySize += zipCentralZip64ExtraLen
		}
	}

	total := offset + directorySize + zipDirectoryEndLen

	if len(entries) >= zipUint16Max || directorySize >= zipUint32Max || offset >= zipUint32Max {
		total += zipDirectory64EndLen + zipDirectory64LocatorLen
	}

	return utils.SafeUint64ToInt64(total)
}

// archiveSource is an archive entry with the reader of its content.
type archiveSource struct {
	ArchiveEntry

	// reader yields exactly Size bytes.
	reader io.Reader
	// track is the track the entry belongs to, nil for covers and lyrics.
	track *tidal.Track
	// isLyrics marks lyrics entries.
	isLyrics bool
	// isMetadata marks metadata entries.
	isMetadata bool
}

// writeArchive streams sources into w as stored entries and returns the number of bytes written.
func writeArchive(
	ctx context.Context,
	w io.Writer,
	sources []*archiveSource,
	modified time.Time,
	speedLimit int64,
) (int64, error) {
	counter := &countingWriter{w: w}
	zipWriter := zip.NewWriter(counter)

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return counter.n, err
		}

		entryWriter, err := zipWriter.CreateHeader(&zip.FileHeader{
			Name:     source.Name,
			Method:   zip.Store,
			Modified: modified,
		})
		if err != nil {
			return counter.n, fmt.Errorf("failed to add '%s': %w", source.Name, err)
		}

		copied, err := copyWithSpeedLimit(ctx, entryWriter, source.reader, speedLimit)
		if err != nil {
			return counter.n, fmt.Errorf("failed to write '%s': %w", source.Name, err)
		}

		if copied != source.Size {
			return counter.n, fmt.Errorf("%w: '%s' has %d bytes, expected %d bytes",
				ErrIncompleteDownload, source.Name, copied, source.Size)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return counter.n, fmt.Errorf("failed to finish archive: %w", err)
	}

	return counter.n, nil
}

// countingWriter counts the bytes passed to w.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	return n, err
}

// packCollection downloads a collection into a single ZIP archive next to where its folder would be.
//
//nolint:funlen,cyclop // Archive assembly follows the same sequential steps as a folder download.
func (s *ServiceImpl) packCollection(ctx context.Context, collection *audioCollection, tracks []*collectionTrack) {
	archivePath := collection.tracksPath + constants.ExtensionZIP

	if !s.cfg.ReplaceTracks {
		if isExist, _ := utils.IsFileExist(archivePath); isExist {
			logger.Infof(ctx, "Archive '%s' already exists, skipping", archivePath)

			for range tracks {
				s.incrementTrackSkipped(SkipReasonExists)
			}

			return
		}
	}

	sources, closeSources := s.collectArchiveSources(ctx, collection, tracks)
	defer closeSources()

	var trackSources []*archiveSource

	for _, source := range sources {
		if source.track != nil {
			trackSources = append(trackSources, source)
		}
	}

	if len(trackSources) == 0 {
		logger.Warnf(ctx, "Nothing to pack for %s '%s'", collection.category, collection.title)

		return
	}

	entries := make([]ArchiveEntry, 0, len(sources))
	for _, source := range sources {
		entries = append(entries, source.ArchiveEntry)
	}

	predictedSize := PredictArchiveSize(entries)

	if s.cfg.DryRun {
		//nolint:gosec // predictedSize is never negative.
		logger.Infof(ctx, "[DRY-RUN] Would create archive '%s' with %d entries (%s)",
			archivePath, len(entries), humanize.Bytes(uint64(predictedSize)))
		s.countArchiveSources(sources)

		return
	}

	//nolint:gosec // predictedSize is never negative.
	logger.Infof(ctx, "Packing %d entries into '%s' (%s)", len(entries), archivePath, humanize.Bytes(uint64(predictedSize)))

	tempFilePath := archivePath + constants.ExtensionPart

	written, err := s.writeArchiveFile(ctx, tempFilePath, sources, predictedSize)
	if err == nil {
		err = os.Rename(tempFilePath, archivePath)
	}

	if err != nil {
		_ = os.Remove(tempFilePath)

		if errors.Is(err, context.Canceled) {
			return
		}

		logger.Errorf(ctx, "Failed to pack %s '%s': %v", collection.category, collection.title, err)
		s.recordError(collection.errorContext("packing archive"), err)

		for range trackSources {
			s.incrementTrackFailed()
		}

		return
	}

	if written != predictedSize {
		logger.Warnf(ctx, "Archive '%s' has %d bytes, predicted %d bytes", archivePath, written, predictedSize)
	}

	logger.Infof(ctx, "Archive saved to file: %s", archivePath)
	s.countArchiveSources(sources)
	s.incrementArchiveCreated()
}

func (s *ServiceImpl) writeArchiveFile(
	ctx context.Context,
	path string,
	sources []*archiveSource,
	predictedSize int64,
) (int64, error) {
	f, err := os.OpenFile(filepath.Clean(path), overwriteFileOptions, constants.DefaultFilePermissions)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	var writer io.Writer = f

	if logger.Level() <= zap.InfoLevel && s.cfg.MaxConcurrentDownloads == 1 {
		writer = io.MultiWriter(f, progressbar.DefaultBytes(predictedSize, "Packing"))
	}

	written, err := writeArchive(ctx, writer, sources, time.Now(), s.cfg.ParsedDownloadSpeedLimit)

	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close temporary file: %w", closeErr)
	}

	return written, err
}

// collectArchiveSources resolves every entry of a collection archive. Remote files are only probed here,
// their content is streamed while the archive is written. Tracks that cannot be resolved are recorded and left out.
func (s *ServiceImpl) collectArchiveSources(
	ctx context.Context,
	collection *audioCollection,
	tracks []*collectionTrack,
) ([]*archiveSource, func()) {
	var (
		sources []*archiveSource
		closers []io.Closer
		names   = make(map[string]int)
	)

	closeAll := func() {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}

	if collection.coverURL != "" {
		cover, err := s.client.OpenFile(ctx, collection.coverURL)
		if err != nil {
			logger.Errorf(ctx, "Failed to open cover of '%s': %v", collection.title, err)
			s.recordError(collection.errorContext("downloading cover"), err)
		} else {
			closers = append(closers, cover)
			sources = append(sources, &archiveSource{
				ArchiveEntry: ArchiveEntry{Name: uniqueEntryName(names, constants.CoverFilename), Size: cover.Length()},
				reader:       cover,
			})
		}
	}

	for _, item := range tracks {
		if ctx.Err() != nil {
			break
		}

		track := item.track

		stream, err := s.session.TrackStream(ctx, track, s.requiredQuality, s.preferredQuality)
		if err != nil {
			if errors.Is(err, catalog.ErrInsufficientAudioQuality) {
				logger.Warnf(ctx, "Skipping track '%s': %v", catalog.FormatTrackTitle(track), err)
				s.incrementTrackSkipped(SkipReasonQuality)

				continue
			}

			s.failTrack(ctx, collection, track, "resolving stream", err)

			continue
		}

		if tidal.IsDASHURL(stream.URL) {
			s.failTrack(ctx, collection, track, "resolving stream",
				fmt.Errorf("%w: track is streamed in %s", ErrDASHNotSupported, stream.Quality))

			continue
		}

		file, err := s.client.OpenFile(ctx, stream.URL)
		if err != nil {
			s.failTrack(ctx, collection, track, "opening stream", err)

			continue
		}

		closers = append(closers, file)

		filename := uniqueEntryName(names, s.trackFilename(ctx, collection, item, stream))
		sources = append(sources, &archiveSource{
			ArchiveEntry: ArchiveEntry{Name: filename, Size: file.Length()},
			reader:       file,
			track:        track,
		})

		if lyricsSource := s.lyricsArchiveSource(ctx, collection, track, filename, names); lyricsSource != nil {
			sources = append(sources, lyricsSource)
		}

		if metadataSource := s.metadataArchiveSource(ctx, collection, track, filename, names); metadataSource != nil {
			sources = append(sources, metadataSource)
		}
	}

	return sources, closeAll
}

func (s *ServiceImpl) lyricsArchiveSource(
	ctx context.Context,
	collection *audioCollection,
	track *tidal.Track,
	trackFilename string,
	names map[string]int,
) *archiveSource {
	if !s.cfg.DownloadLyrics {
		return nil
	}

	lyrics, err := s.session.Lyrics(ctx, track)
	if err != nil {
		logger.Errorf(ctx, "Failed to get lyrics: %v", err)
		s.recordError(collection.trackErrorContext(track, "downloading lyrics"), err)

		return nil
	}

	content, extension := lyricsContent(lyrics)
	if content == "" {
		return nil
	}

	return &archiveSource{
		ArchiveEntry: ArchiveEntry{
			Name: uniqueEntryName(names, utils.SetFileExtension(trackFilename, extension, true)),
			Size: int64(len(content)),
		},
		reader:   strings.NewReader(content),
		isLyrics: true,
	}
}

func (s *ServiceImpl) metadataArchiveSource(
	ctx context.Context,
	collection *audioCollection,
	track *tidal.Track,
	trackFilename string,
	names map[string]int,
) *archiveSource {
	if !s.cfg.SaveMetadata {
		return nil
	}

	content, err := s.trackMetadataContent(ctx, track)
	if err != nil {
		logger.Errorf(ctx, "Failed to build metadata: %v", err)
		s.recordError(collection.trackErrorContext(track, "building metadata"), err)

		return nil
	}

	return &archiveSource{
		ArchiveEntry: ArchiveEntry{
			Name: uniqueEntryName(names, utils.SetFileExtension(trackFilename, constants.ExtensionJSON, true)),
			Size: int64(len(content)),
		},
		reader:     strings.NewReader(content),
		isMetadata: true,
	}
}

// countArchiveSources adds the entries of a written archive to the statistics.
func (s *ServiceImpl) countArchiveSources(sources []*archiveSource) {
	for _, source := range sources {
		switch {
		case source.track != nil:
			s.incrementTrackDownloaded(source.Size)
		case source.isLyrics:
			s.incrementLyricsDownloaded()
		case source.isMetadata:
			s.incrementMetadataSaved()
		default:
			s.incrementCoverDownloaded()
		}
	}
}

// uniqueEntryName returns name, or name with a " (N)" suffix if it was already used.
func uniqueEntryName(names map[string]int, name string) string {
	key := strings.ToLower(name)

	count := names[key]
	names[key] = count + 1

	if count == 0 {
		return name
	}

	extension := filepath.Ext(name)
	unique := strings.TrimSuffix(name, extension) + " (" + strconv.Itoa(count+1) + ")" + extension
	names[strings.ToLower(unique)]++

	return unique
}
