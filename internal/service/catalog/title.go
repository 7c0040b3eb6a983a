package catalog

import (
	"strings"

	"github.com/oshokin/tidal-grabber/internal/client/tidal"
	"github.com/oshokin/tidal-grabber/internal/utils"
)

const featuringMarker = "(feat."

// FormatTitle builds a display title from a raw name, its version and its artists.
//
// With several artists the featured ones (all but the first) are appended as
// " (feat. A & B)" unless the name already mentions them, and the version is
// appended in square brackets. With a single artist the version goes in parentheses.
// A version already contained in the name is not repeated.
func FormatTitle(name, version string, artists []*tidal.ArtistRef) string {
	title := name
	hasVersion := version != "" && !strings.Contains(name, version)

	if len(artists) <= 1 {
		if hasVersion {
			title += " (" + version + ")"
		}

		return title
	}

	title = strings.TrimSpace(title)
	if !strings.Contains(title, featuringMarker) {
		featured := utils.Map(artists[1:], func(a *tidal.ArtistRef) string { return a.Name })
		title += " " + featuringMarker + " " + strings.Join(featured, " & ") + ")"
	}

	if hasVersion {
		title += " [" + version + "]"
	}

	return title
}

// FormatTrackTitle returns the display title of a track.
func FormatTrackTitle(track *tidal.Track) string {
	return FormatTitle(track.Title, track.Version, track.Artists)
}

// FormatAlbumTitle returns the display title of an album.
func FormatAlbumTitle(album *tidal.Album) string {
	return FormatTitle(album.Title, album.Version, album.Artists)
}

// FormatArtists joins artist names with ", ".
func FormatArtists(artists []*tidal.ArtistRef) string {
	return strings.Join(utils.Map(artists, func(a *tidal.ArtistRef) string { return a.Name }), ", ")
}

// MainArtist returns the name of the first artist, or an empty string.
func MainArtist(artists []*tidal.ArtistRef) string {
	if len(artists) == 0 {
		return ""
	}

	return artists[0].Name
}
