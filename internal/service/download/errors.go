package download

import (
	"context"
	"errors"
)

// Common errors for the download service.
var (
	// ErrIncompleteDownload indicates that the downloaded file size doesn't match the remote length.
	ErrIncompleteDownload = errors.New("incomplete download")
	// ErrDASHNotSupported indicates that the track is only streamed through a DASH manifest.
	ErrDASHNotSupported = errors.New("DASH streams are not supported")
	// ErrTrackAlbumNotFound indicates that the track carries no album reference.
	ErrTrackAlbumNotFound = errors.New("track album not found")
)

// ErrorContext describes where a download error happened.
type ErrorContext struct {
	// Category is the type of item that failed (track, album, playlist, artist).
	Category DownloadCategory
	// ItemID is the unique identifier of the item that failed.
	ItemID string
	// ItemTitle is the human-readable title of the item.
	ItemTitle string
	// ItemURL is the URL of the failed item (for albums/playlists/artists).
	ItemURL string
	// Phase indicates when the error occurred (e.g., "fetching metadata", "downloading track").
	Phase string
	// ParentCategory is the type of parent collection (album/playlist) for tracks.
	ParentCategory DownloadCategory
	// ParentID is the ID of the parent collection.
	ParentID string
	// ParentTitle is the title of the parent collection.
	ParentTitle string
}

// recordError records an error in the statistics.
// Context cancellation is not recorded since it is how the user stops a run.
func (s *ServiceImpl) recordError(errCtx *ErrorContext, err error) {
	if errCtx == nil || err == nil {
		return
	}

	if errors.Is(err, context.Canceled) {
		return
	}

	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.Errors = append(s.stats.Errors, DownloadError{
		Category:       errCtx.Category,
		ItemID:         errCtx.ItemID,
		ItemTitle:      errCtx.ItemTitle,
		ItemURL:        errCtx.ItemURL,
		ErrorMessage:   err.Error(),
		Phase:          errCtx.Phase,
		ParentCategory: errCtx.ParentCategory,
		ParentID:       errCtx.ParentID,
		ParentTitle:    errCtx.ParentTitle,
	})
}
