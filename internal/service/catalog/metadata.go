package catalog

import (
	"context"
	"fmt"

	"github.com/oshokin/tidal-grabber/internal/client/tidal"
	"github.com/oshokin/tidal-grabber/internal/utils"
)

// TrackMetadata is the tag set of a track, named after the common audio tag fields.
type TrackMetadata struct {
	// Artist is the main artist of the track.
	Artist string `json:"artist"`
	// Artists lists all track artists.
	Artists []string `json:"artists"`
	// Title is the display title, featured artists and version included.
	Title string `json:"title"`
	// AlbumArtist is the main artist of the album.
	AlbumArtist string `json:"albumartist,omitempty"`
	// AlbumArtists lists all album artists.
	AlbumArtists []string `json:"albumartists,omitempty"`
	// Album is the display title of the album.
	Album string `json:"album,omitempty"`
	// Date is the album release date in YYYY-MM-DD format.
	Date string `json:"date,omitempty"`
	// Disc is the volume number of the track.
	Disc int64 `json:"disc"`
	// DiscTotal is the number of volumes of the album.
	DiscTotal int64 `json:"disctotal,omitempty"`
	// Track is the position of the track on its volume.
	Track int64 `json:"track"`
	// TrackTotal is the number of tracks of the album.
	TrackTotal int64 `json:"tracktotal,omitempty"`
	// ReplayGainTrackGain is the track replay gain in dB.
	ReplayGainTrackGain float64 `json:"rg_track_gain"`
	// ReplayGainTrackPeak is the track peak amplitude.
	ReplayGainTrackPeak float64 `json:"rg_track_peak"`
	// URL is the public web URL of the track.
	URL string `json:"url,omitempty"`
	// Copyright is the track copyright, or the album one when the track has none.
	Copyright string `json:"copyright,omitempty"`
	// ISRC is the International Standard Recording Code.
	ISRC string `json:"isrc,omitempty"`
	// Barcode is the UPC of the album.
	Barcode string `json:"barcode,omitempty"`
	// Lyrics is the plain text lyrics.
	Lyrics string `json:"lyrics,omitempty"`
	// Subtitles is the LRC-formatted synchronized lyrics.
	Subtitles string `json:"subtitles,omitempty"`
}

// TrackMetadata builds the tag set of a track from the track, its album and its lyrics.
// The album goes through the session cache, so tracks of one album load it once.
func (s *Session) TrackMetadata(ctx context.Context, track *tidal.Track) (*TrackMetadata, error) {
	metadata := &TrackMetadata{
		Artist:              MainArtist(track.Artists),
		Artists:             artistNames(track.Artists),
		Title:               FormatTrackTitle(track),
		Disc:                track.VolumeNumber,
		Track:               track.TrackNumber,
		ReplayGainTrackGain: track.ReplayGain,
		ReplayGainTrackPeak: track.Peak,
		URL:                 track.URL,
		Copyright:           track.Copyright,
		ISRC:                track.ISRC,
	}

	if track.Album != nil {
		album, err := s.Album(ctx, track.Album.Key())
		if err != nil {
			return nil, fmt.Errorf("failed to load album of track %d: %w", track.ID, err)
		}

		metadata.AlbumArtist = MainArtist(album.Artists)
		metadata.AlbumArtists = artistNames(album.Artists)
		metadata.Album = FormatAlbumTitle(album)
		metadata.Date = album.ReleaseDate
		metadata.DiscTotal = album.NumberOfVolumes
		metadata.TrackTotal = album.NumberOfTracks
		metadata.Barcode = album.UPC

		// TIDAL often leaves the track copyright empty.
		if metadata.Copyright == "" {
			metadata.Copyright = album.Copyright
		}
	}

	lyrics, err := s.Lyrics(ctx, track)
	if err != nil {
		return nil, fmt.Errorf("failed to load lyrics of track %d: %w", track.ID, err)
	}

	if lyrics != nil {
		metadata.Lyrics = lyrics.Lyrics
		metadata.Subtitles = lyrics.Subtitles
	}

	return metadata, nil
}

func artistNames(artists []*tidal.ArtistRef) []string {
	return utils.Map(artists, func(a *tidal.ArtistRef) string { return a.Name })
}
