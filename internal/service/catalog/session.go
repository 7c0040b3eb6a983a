package catalog

import (
	"context"
	"fmt"
	"iter"

	"github.com/oshokin/tidal-grabber/internal/client/tidal"
	"github.com/oshokin/tidal-grabber/internal/logger"
	"github.com/oshokin/tidal-grabber/internal/memo"
)

// DefaultPageSize is the number of collection items requested per page.
const DefaultPageSize = 50

// Session memoizes catalog objects loaded through a TIDAL client.
// It is safe for concurrent use.
type Session struct {
	// client fetches objects from the API.
	client tidal.Client
	// pageSize is the number of items requested per collection page.
	pageSize int
	// tracks memoizes tracks by ID.
	tracks *memo.Cache[*tidal.Track]
	// albums memoizes albums by ID.
	albums *memo.Cache[*tidal.Album]
	// playlists memoizes playlists by UUID.
	playlists *memo.Cache[*tidal.Playlist]
	// artists memoizes artists by ID.
	artists *memo.Cache[*tidal.Artist]
}

// Stream is a resolved track stream.
type Stream struct {
	// URL is the stream location, or an inline DASH manifest data URL.
	URL string
	// Quality is the quality granted by the server.
	Quality tidal.AudioQuality
	// MimeType is the media type of the stream, empty for DASH manifests.
	MimeType string
	// Codecs is the codec of the stream, empty for DASH manifests.
	Codecs string
}

// NewSession creates a session. A non-positive page size selects DefaultPageSize.
func NewSession(client tidal.Client, pageSize int) *Session {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Session{
		client:    client,
		pageSize:  pageSize,
		tracks:    memo.New[*tidal.Track](string(KindTrack)),
		albums:    memo.New[*tidal.Album](string(KindAlbum)),
		playlists: memo.New[*tidal.Playlist](string(KindPlaylist)),
		artists:   memo.New[*tidal.Artist](string(KindArtist)),
	}
}

// Track returns the track with the given ID.
func (s *Session) Track(ctx context.Context, id string) (*tidal.Track, error) {
	return s.tracks.GetOrLoad(ctx, key(KindTrack, id), func(ctx context.Context) (*tidal.Track, error) {
		return s.client.GetTrack(ctx, id)
	})
}

// Album returns the album with the given ID.
func (s *Session) Album(ctx context.Context, id string) (*tidal.Album, error) {
	return s.albums.GetOrLoad(ctx, key(KindAlbum, id), func(ctx context.Context) (*tidal.Album, error) {
		return s.client.GetAlbum(ctx, id)
	})
}

// Playlist returns the playlist with the given UUID.
func (s *Session) Playlist(ctx context.Context, uuid string) (*tidal.Playlist, error) {
	return s.playlists.GetOrLoad(ctx, key(KindPlaylist, uuid), func(ctx context.Context) (*tidal.Playlist, error) {
		return s.client.GetPlaylist(ctx, uuid)
	})
}

// Artist returns the artist with the given ID.
func (s *Session) Artist(ctx context.Context, id string) (*tidal.Artist, error) {
	return s.artists.GetOrLoad(ctx, key(KindArtist, id), func(ctx context.Context) (*tidal.Artist, error) {
		return s.client.GetArtist(ctx, id)
	})
}

// Object resolves a reference into *tidal.Track, *tidal.Album, *tidal.Playlist or *tidal.Artist.
func (s *Session) Object(ctx context.Context, ref Ref) (any, error) {
	switch ref.Kind {
	case KindTrack:
		return s.Track(ctx, ref.ID)
	case KindAlbum:
		return s.Album(ctx, ref.ID)
	case KindPlaylist:
		return s.Playlist(ctx, ref.ID)
	case KindArtist:
		return s.Artist(ctx, ref.ID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, ref.Kind)
	}
}

// ObjectFromURL resolves the first TIDAL link in rawURL.
func (s *Session) ObjectFromURL(ctx context.Context, rawURL string) (any, error) {
	ref, err := ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, rawURL)
	}

	return s.Object(ctx, ref)
}

// AlbumTracks iterates over the tracks of an album.
func (s *Session) AlbumTracks(ctx context.Context, albumID string) iter.Seq2[*tidal.Track, error] {
	return paginate(ctx, s.pageSize, s.seedTrack, func(ctx context.Context, offset, limit int) (*tidal.Page[tidal.Track], error) {
		return s.client.GetAlbumTracks(ctx, albumID, offset, limit)
	})
}

// PlaylistTracks iterates over the tracks of a playlist.
func (s *Session) PlaylistTracks(ctx context.Context, uuid string) iter.Seq2[*tidal.Track, error] {
	return paginate(ctx, s.pageSize, s.seedTrack, func(ctx context.Context, offset, limit int) (*tidal.Page[tidal.Track], error) {
		return s.client.GetPlaylistTracks(ctx, uuid, offset, limit)
	})
}

// ArtistAlbums iterates over the albums of an artist.
func (s *Session) ArtistAlbums(ctx context.Context, artistID string) iter.Seq2[*tidal.Album, error] {
	return paginate(ctx, s.pageSize, s.seedAlbum, func(ctx context.Context, offset, limit int) (*tidal.Page[tidal.Album], error) {
		return s.client.GetArtistAlbums(ctx, artistID, offset, limit)
	})
}

// TrackFileURL returns the stream URL of a track.
// See TrackStream for the quality negotiation.
func (s *Session) TrackFileURL(
	ctx context.Context,
	track *tidal.Track,
	required, preferred tidal.AudioQuality,
) (string, error) {
	stream, err := s.TrackStream(ctx, track, required, preferred)
	if err != nil {
		return "", err
	}

	return stream.URL, nil
}

// TrackStream resolves the stream of a track.
// It requests the lower of preferred and the quality the track is advertised in,
// and fails with ErrInsufficientAudioQuality when the advertised or the granted
// quality is below required. Streams are not memoized since their URLs expire.
func (s *Session) TrackStream(
	ctx context.Context,
	track *tidal.Track,
	required, preferred tidal.AudioQuality,
) (*Stream, error) {
	if track.AudioQuality.Rank() >= 0 && track.AudioQuality.Less(required) {
		return nil, fmt.Errorf("%w: track %d is available in %s, %s is required",
			ErrInsufficientAudioQuality, track.ID, track.AudioQuality, required)
	}

	requested := preferred
	if track.AudioQuality.Rank() >= 0 {
		requested = tidal.MinAudioQuality(preferred, track.AudioQuality)
	}

	info, err := s.client.GetPlaybackInfo(ctx, track.Key(), requested)
	if err != nil {
		return nil, err
	}

	if info.AudioQuality.Less(required) {
		return nil, fmt.Errorf("%w: got %s for track %d, %s is required",
			ErrInsufficientAudioQuality, info.AudioQuality, track.ID, required)
	}

	manifest, err := info.DecodeManifest()
	if err != nil {
		return nil, err
	}

	streamURL, err := info.StreamURL()
	if err != nil {
		return nil, err
	}

	stream := &Stream{
		URL:     streamURL,
		Quality: info.AudioQuality,
	}

	if manifest != nil {
		stream.MimeType = manifest.MimeType
		stream.Codecs = manifest.Codecs
	}

	logger.DebugKV(ctx, "Resolved track stream",
		"track_id", track.ID, "requested", requested, "granted", info.AudioQuality, "mime_type", stream.MimeType)

	return stream, nil
}

// Lyrics returns the lyrics of a track, or nil if it has none.
func (s *Session) Lyrics(ctx context.Context, track *tidal.Track) (*tidal.Lyrics, error) {
	return s.client.GetLyrics(ctx, track.Key())
}

// seedTrack stores a track found in a page, returning the record already memoized for its ID if any.
func (s *Session) seedTrack(ctx context.Context, track *tidal.Track) (*tidal.Track, error) {
	return s.tracks.GetOrLoad(ctx, key(KindTrack, track.Key()), func(context.Context) (*tidal.Track, error) {
		return track, nil
	})
}

// seedAlbum stores an album found in a page, returning the record already memoized for its ID if any.
func (s *Session) seedAlbum(ctx context.Context, album *tidal.Album) (*tidal.Album, error) {
	return s.albums.GetOrLoad(ctx, key(KindAlbum, album.Key()), func(context.Context) (*tidal.Album, error) {
		return album, nil
	})
}

func key(kind Kind, id string) memo.Key {
	return memo.Key{Kind: string(kind), ID: id}
}

type pageFetcher[T any] func(ctx context.Context, offset, limit int) (*tidal.Page[T], error)

type seeder[T any] func(ctx context.Context, item *T) (*T, error)

// paginate walks a collection until the server reports no more items or returns an empty page.
// Iteration stops after the first error is yielded.
func paginate[T any](ctx context.Context, pageSize int, seed seeder[T], fetch pageFetcher[T]) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		offset := 0

		for {
			page, err := fetch(ctx, offset, pageSize)
			if err != nil {
				yield(nil, fmt.Errorf("failed to fetch page at offset %d: %w", offset, err))

				return
			}

			for _, item := range page.Items {
				seeded, seedErr := seed(ctx, item)
				if seedErr != nil {
					// A failed earlier lookup of the same ID is memoized, the page record is still usable.
					seeded = item
				}

				if !yield(seeded, nil) {
					return
				}
			}

			if len(page.Items) == 0 {
				return
			}

			next := page.NextOffset()
			if next <= offset {
				next = offset + len(page.Items)
			}

			if next >= page.TotalNumberOfItems {
				return
			}

			offset = next
		}
	}
}
