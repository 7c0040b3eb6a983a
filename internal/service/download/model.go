package download

import (
	"fmt"
	"time"

	"github.com/oshokin/tidal-grabber/internal/client/tidal"
	"github.com/oshokin/tidal-grabber/internal/service/catalog"
)

const (
	// defaultUnknownYear replaces a missing release year in templates.
	defaultUnknownYear = "0000"
	// trackNumberPaddingWidth is the minimum width of zero-padded track numbers.
	trackNumberPaddingWidth = 2
)

// DownloadCategory represents the type of content being downloaded.
type DownloadCategory uint8

const (
	// DownloadCategoryUnknown - unknown category.
	DownloadCategoryUnknown DownloadCategory = iota
	// DownloadCategoryTrack - single track.
	DownloadCategoryTrack
	// DownloadCategoryAlbum - full album.
	DownloadCategoryAlbum
	// DownloadCategoryPlaylist - playlist.
	DownloadCategoryPlaylist
	// DownloadCategoryArtist - complete artist's discography.
	DownloadCategoryArtist
)

// String returns a human-readable representation of the DownloadCategory.
func (dc DownloadCategory) String() string {
	switch dc {
	case DownloadCategoryUnknown:
		return "unknown"
	case DownloadCategoryTrack:
		return "track"
	case DownloadCategoryAlbum:
		return "album"
	case DownloadCategoryPlaylist:
		return "playlist"
	case DownloadCategoryArtist:
		return "artist"
	default:
		return fmt.Sprintf("unknown: %d", dc)
	}
}

// categoryFromKind maps a catalog object kind to a download category.
func categoryFromKind(kind catalog.Kind) DownloadCategory {
	switch kind {
	case catalog.KindTrack:
		return DownloadCategoryTrack
	case catalog.KindAlbum:
		return DownloadCategoryAlbum
	case catalog.KindPlaylist:
		return DownloadCategoryPlaylist
	case catalog.KindArtist:
		return DownloadCategoryArtist
	default:
		return DownloadCategoryUnknown
	}
}

// SkipReason represents why a track was skipped.
type SkipReason uint8

const (
	// SkipReasonExists - track file already exists.
	SkipReasonExists SkipReason = iota
	// SkipReasonQuality - track is not available in the minimum quality.
	SkipReasonQuality
)

// String returns a human-readable representation of the SkipReason.
func (sr SkipReason) String() string {
	switch sr {
	case SkipReasonExists:
		return "already exists"
	case SkipReasonQuality:
		return "quality filter"
	default:
		return fmt.Sprintf("unknown reason: %d", sr)
	}
}

// DownloadItem represents a downloadable item: its category, URL and identifier.
type DownloadItem struct {
	// Category is the type of content (track, album, playlist, artist).
	Category DownloadCategory
	// URL is the direct URL to the item.
	URL string
	// ItemID is the unique identifier of the item.
	ItemID string
}

// String returns a human-readable representation of the DownloadItem.
func (di DownloadItem) String() string {
	return fmt.Sprintf("category: %v, ID: %s", di.Category, di.ItemID)
}

// GetShortVersion converts a DownloadItem into a ShortDownloadItem by stripping the URL.
func (di DownloadItem) GetShortVersion() ShortDownloadItem {
	return ShortDownloadItem{
		Category: di.Category,
		ItemID:   di.ItemID,
	}
}

// ShortDownloadItem identifies an item without its URL.
type ShortDownloadItem struct {
	// Category is the type of content.
	Category DownloadCategory
	// ItemID is the unique identifier of the item.
	ItemID string
}

// DownloadStatistics tracks metrics for a download session.
type DownloadStatistics struct {
	// StartTime is when the download session began.
	StartTime time.Time
	// EndTime is when the download session completed.
	EndTime time.Time
	// IsDryRun indicates if this was a dry-run preview.
	IsDryRun bool
	// TotalTracksProcessed is the total number of tracks attempted.
	TotalTracksProcessed int64
	// TracksDownloaded is the number of tracks successfully downloaded.
	TracksDownloaded int64
	// TracksSkipped is the total number of tracks skipped for any reason.
	TracksSkipped int64
	// TracksSkippedExists is the number of tracks skipped because they already exist.
	TracksSkippedExists int64
	// TracksSkippedQuality is the number of tracks skipped due to the quality threshold.
	TracksSkippedQuality int64
	// TracksFailed is the number of tracks that failed to download.
	TracksFailed int64
	// TracksResumed is the number of tracks continued from a partial file.
	TracksResumed int64
	// TotalBytesDownloaded is the total size of downloaded content in bytes.
	TotalBytesDownloaded int64
	// ArchivesCreated is the number of ZIP archives written.
	ArchivesCreated int64
	// LyricsDownloaded is the number of lyrics files downloaded.
	LyricsDownloaded int64
	// LyricsSkipped is the number of lyrics files skipped (already exist).
	LyricsSkipped int64
	// MetadataSaved is the number of metadata files written.
	MetadataSaved int64
	// MetadataSkipped is the number of metadata files skipped (already exist).
	MetadataSkipped int64
	// CoversDownloaded is the number of cover art files downloaded.
	CoversDownloaded int64
	// CoversSkipped is the number of cover art files skipped (already exist).
	CoversSkipped int64
	// Errors is a list of all errors encountered during the download process.
	Errors []DownloadError
}

// DownloadError represents a single error that occurred during download.
type DownloadError struct {
	// Category is the type of item that failed (track, album, playlist, artist).
	Category DownloadCategory
	// ItemID is the unique identifier of the item that failed.
	ItemID string
	// ItemTitle is the human-readable title of the item.
	ItemTitle string
	// ItemURL is the URL of the failed item (for albums/playlists/artists).
	ItemURL string
	// ErrorMessage is the error message.
	ErrorMessage string
	// Phase indicates when the error occurred.
	Phase string
	// ParentCategory is the type of parent collection (album/playlist) for tracks.
	ParentCategory DownloadCategory
	// ParentID is the ID of the parent collection.
	ParentID string
	// ParentTitle is the title of the parent collection.
	ParentTitle string
}

// DownloadTrackResult contains the result of downloadAndSaveTrack.
type DownloadTrackResult struct {
	// IsExist indicates whether the track file already existed (download was skipped).
	IsExist bool
	// TempPath is the path to the completed .part file, empty if nothing was written.
	TempPath string
	// BytesDownloaded is the number of bytes transferred by this run.
	BytesDownloaded int64
	// ResumedFrom is the offset a leftover .part file was continued from, zero for a fresh download.
	ResumedFrom int64
}

// audioCollection is an album or playlist being downloaded.
type audioCollection struct {
	// category is the collection type.
	category DownloadCategory
	// id is the catalog key of the collection.
	id string
	// title is the display title.
	title string
	// url is the public URL of the collection.
	url string
	// tags holds the collection template values.
	tags map[string]string
	// tracksPath is the folder tracks are written to.
	tracksPath string
	// tracksCount is the number of tracks in the collection.
	tracksCount int64
	// coverURL is the cover image location, empty if the collection has none.
	coverURL string
	// isSingleWithoutFolder is set for one-track releases saved directly into the output path.
	isSingleWithoutFolder bool
}

// errorContext returns the error context of the collection itself.
func (c *audioCollection) errorContext(phase string) *ErrorContext {
	return &ErrorContext{
		Category:  c.category,
		ItemID:    c.id,
		ItemTitle: c.title,
		ItemURL:   c.url,
		Phase:     phase,
	}
}

// trackErrorContext returns the error context of a track of the collection.
func (c *audioCollection) trackErrorContext(track *tidal.Track, phase string) *ErrorContext {
	return &ErrorContext{
		Category:       DownloadCategoryTrack,
		ItemID:         track.Key(),
		ItemTitle:      catalog.FormatTrackTitle(track),
		ItemURL:        track.URL,
		Phase:          phase,
		ParentCategory: c.category,
		ParentID:       c.id,
		ParentTitle:    c.title,
	}
}

// collectionTrack is a track together with its position in the collection.
type collectionTrack struct {
	// track is the catalog record.
	track *tidal.Track
	// position is the one-based number used in file names.
	position int64
}
