package tidal

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ArtistType is the role of an artist on a track or an album.
type ArtistType string

// Known artist roles.
const (
	// ArtistTypeMain marks a main artist.
	ArtistTypeMain ArtistType = "MAIN"
	// ArtistTypeFeatured marks a featured artist.
	ArtistTypeFeatured ArtistType = "FEATURED"
	// ArtistTypeContributor marks a contributing artist.
	ArtistTypeContributor ArtistType = "CONTRIBUTOR"
	// ArtistTypeArtist is the generic role used by some catalog entries.
	ArtistTypeArtist ArtistType = "ARTIST"
)

// Known cover image sizes in pixels.
const (
	CoverSize80   = 80
	CoverSize160  = 160
	CoverSize320  = 320
	CoverSize640  = 640
	CoverSize1280 = 1280
)

// Cover is a TIDAL image identifier such as "24f52ab0-e7d6-414d-a650-20a4c686aa57".
type Cover string

// URL returns the address of a square JPEG rendition of the cover.
func (c Cover) URL(size int) string {
	return fmt.Sprintf(coverURLTemplate, strings.ReplaceAll(string(c), "-", "/"), size, size)
}

// ArtistRef is an artist reference embedded in tracks and albums.
type ArtistRef struct {
	// ID is the artist ID.
	ID int64 `json:"id"`
	// Name is the artist name.
	Name string `json:"name"`
	// Type is the artist role.
	Type ArtistType `json:"type"`
	// Picture is the artist picture, empty if the artist has none.
	Picture Cover `json:"picture"`
}

// AlbumRef is an album reference embedded in tracks.
type AlbumRef struct {
	// ID is the album ID.
	ID int64 `json:"id"`
	// Title is the album title.
	Title string `json:"title"`
	// Cover is the album cover, empty if the album has none.
	Cover Cover `json:"cover"`
	// ReleaseDate is the album release date in YYYY-MM-DD format, if present.
	ReleaseDate string `json:"releaseDate"`
}

// Key returns the catalog key of the referenced album.
func (a *AlbumRef) Key() string {
	return strconv.FormatInt(a.ID, 10)
}

// Track represents a track record.
type Track struct {
	// ID is the track ID.
	ID int64 `json:"id"`
	// Title is the raw track title without version and featured artists.
	Title string `json:"title"`
	// Version is the track version such as "Remastered", empty if none.
	Version string `json:"version"`
	// Duration is the track length in seconds.
	Duration int64 `json:"duration"`
	// TrackNumber is the position of the track on its volume.
	TrackNumber int64 `json:"trackNumber"`
	// VolumeNumber is the disc number of the track.
	VolumeNumber int64 `json:"volumeNumber"`
	// ReplayGain is the track replay gain in dB.
	ReplayGain float64 `json:"replayGain"`
	// Peak is the track peak amplitude.
	Peak float64 `json:"peak"`
	// Copyright is the track copyright notice, if any.
	Copyright string `json:"copyright"`
	// ISRC is the International Standard Recording Code.
	ISRC string `json:"isrc"`
	// Explicit indicates explicit content.
	Explicit bool `json:"explicit"`
	// AllowStreaming indicates whether the track can be streamed.
	AllowStreaming bool `json:"allowStreaming"`
	// StreamReady indicates whether the stream is available.
	StreamReady bool `json:"streamReady"`
	// AudioQuality is the highest quality the track is available in.
	AudioQuality AudioQuality `json:"audioQuality"`
	// URL is the public web URL of the track.
	URL string `json:"url"`
	// Artists lists the track artists in display order.
	Artists []*ArtistRef `json:"artists"`
	// Album references the album containing the track.
	Album *AlbumRef `json:"album"`
}

// Key returns the catalog key of the track.
func (t *Track) Key() string {
	return strconv.FormatInt(t.ID, 10)
}

// Album represents an album record.
type Album struct {
	// ID is the album ID.
	ID int64 `json:"id"`
	// Title is the raw album title.
	Title string `json:"title"`
	// Version is the album version, empty if none.
	Version string `json:"version"`
	// Type is the release type: ALBUM, EP or SINGLE.
	Type string `json:"type"`
	// Duration is the total album length in seconds.
	Duration int64 `json:"duration"`
	// NumberOfTracks is the number of tracks on the album.
	NumberOfTracks int64 `json:"numberOfTracks"`
	// NumberOfVolumes is the number of discs.
	NumberOfVolumes int64 `json:"numberOfVolumes"`
	// ReleaseDate is the release date in YYYY-MM-DD format.
	ReleaseDate string `json:"releaseDate"`
	// Copyright is the album copyright notice.
	Copyright string `json:"copyright"`
	// UPC is the Universal Product Code of the album.
	UPC string `json:"upc"`
	// Explicit indicates explicit content.
	Explicit bool `json:"explicit"`
	// AudioQuality is the highest quality the album is available in.
	AudioQuality AudioQuality `json:"audioQuality"`
	// Cover is the album cover, empty if the album has none.
	Cover Cover `json:"cover"`
	// URL is the public web URL of the album.
	URL string `json:"url"`
	// Artists lists the album artists in display order.
	Artists []*ArtistRef `json:"artists"`
}

// Key returns the catalog key of the album.
func (a *Album) Key() string {
	return strconv.FormatInt(a.ID, 10)
}

// ReleaseYear returns the year part of the release date, or an empty string.
func (a *Album) ReleaseYear() string {
	year, _, _ := strings.Cut(a.ReleaseDate, "-")

	return year
}

// PlaylistCreator identifies the owner of a playlist.
type PlaylistCreator struct {
	// ID is the user ID of the creator, zero for editorial playlists.
	ID int64 `json:"id"`
}

// Playlist represents a playlist record.
type Playlist struct {
	// UUID is the playlist identifier.
	UUID string `json:"uuid"`
	// Title is the playlist title.
	Title string `json:"title"`
	// Description is the playlist description.
	Description string `json:"description"`
	// Type is the playlist kind such as USER or EDITORIAL.
	Type string `json:"type"`
	// NumberOfTracks is the number of tracks in the playlist.
	NumberOfTracks int64 `json:"numberOfTracks"`
	// Duration is the total playlist length in seconds.
	Duration int64 `json:"duration"`
	// Creator is the playlist owner.
	Creator *PlaylistCreator `json:"creator"`
	// Image is the rectangular playlist image, empty if none.
	Image Cover `json:"image"`
	// SquareImage is the square playlist image, empty if none.
	SquareImage Cover `json:"squareImage"`
	// URL is the public web URL of the playlist.
	URL string `json:"url"`
}

// Key returns the catalog key of the playlist.
func (p *Playlist) Key() string {
	return p.UUID
}

// Artist represents an artist record.
type Artist struct {
	// ID is the artist ID.
	ID int64 `json:"id"`
	// Name is the artist name.
	Name string `json:"name"`
	// Picture is the artist picture, empty if none.
	Picture Cover `json:"picture"`
	// Popularity is the TIDAL popularity score.
	Popularity int64 `json:"popularity"`
	// URL is the public web URL of the artist.
	URL string `json:"url"`
}

// Key returns the catalog key of the artist.
func (a *Artist) Key() string {
	return strconv.FormatInt(a.ID, 10)
}

// Page is one page of a paged collection.
type Page[T any] struct {
	// Limit is the page size the server used.
	Limit int `json:"limit"`
	// Offset is the index of the first item of the page.
	Offset int `json:"offset"`
	// TotalNumberOfItems is the size of the whole collection.
	TotalNumberOfItems int `json:"totalNumberOfItems"`
	// Items holds the records of the page.
	Items []*T `json:"items"`
}

// NextOffset returns the offset of the following page.
func (p *Page[T]) NextOffset() int {
	return p.Offset + p.Limit
}

// HasMore reports whether another page follows this one.
func (p *Page[T]) HasMore() bool {
	return len(p.Items) > 0 && p.NextOffset() < p.TotalNumberOfItems
}

// PlaybackInfo describes a playable stream of a track.
type PlaybackInfo struct {
	// TrackID is the ID of the track.
	TrackID int64 `json:"trackId"`
	// AudioMode is the channel layout such as STEREO.
	AudioMode string `json:"audioMode"`
	// AudioQuality is the quality actually granted, which may be lower than requested.
	AudioQuality AudioQuality `json:"audioQuality"`
	// ManifestMimeType is the media type of the decoded manifest.
	ManifestMimeType string `json:"manifestMimeType"`
	// Manifest is the base64-encoded stream manifest.
	Manifest string `json:"manifest"`
}

// Manifest is a decoded JSON stream manifest.
type Manifest struct {
	// MimeType is the media type of the stream such as audio/flac.
	MimeType string `json:"mimeType"`
	// Codecs is the codec of the stream such as flac or mp4a.40.2.
	Codecs string `json:"codecs"`
	// EncryptionType is NONE for unencrypted streams.
	EncryptionType string `json:"encryptionType"`
	// URLs lists the stream locations.
	URLs []string `json:"urls"`
}

// DecodeManifest decodes the manifest. It returns a nil manifest when the
// payload is valid base64 but not JSON, which is the case for DASH manifests.
func (p *PlaybackInfo) DecodeManifest() (*Manifest, error) {
	raw, err := base64.StdEncoding.DecodeString(p.Manifest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	var manifest Manifest
	if err = json.Unmarshal(raw, &manifest); err != nil {
		return nil, nil //nolint:nilnil // Non-JSON manifests are DASH documents.
	}

	return &manifest, nil
}

// StreamURL returns the first stream URL of the manifest.
// DASH manifests are returned as a data URL holding the original payload.
func (p *PlaybackInfo) StreamURL() (string, error) {
	manifest, err := p.DecodeManifest()
	if err != nil {
		return "", err
	}

	if manifest == nil {
		return dashManifestURLPrefix + p.Manifest, nil
	}

	if len(manifest.URLs) == 0 || manifest.URLs[0] == "" {
		return "", ErrEmptyManifest
	}

	return manifest.URLs[0], nil
}

// IsDASHURL reports whether streamURL holds an inline DASH manifest.
func IsDASHURL(streamURL string) bool {
	return strings.HasPrefix(streamURL, dashManifestURLPrefix)
}

// Lyrics holds the plain and time-synchronized lyrics of a track.
type Lyrics struct {
	// TrackID is the ID of the track.
	TrackID int64 `json:"trackId"`
	// Provider is the name of the lyrics provider.
	Provider string `json:"lyricsProvider"`
	// Lyrics is the plain text, empty if unavailable.
	Lyrics string `json:"lyrics"`
	// Subtitles is the LRC-formatted synchronized text, empty if unavailable.
	Subtitles string `json:"subtitles"`
	// IsRightToLeft indicates right-to-left text.
	IsRightToLeft bool `json:"isRightToLeft"`
}
