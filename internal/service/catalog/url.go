package catalog

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/oshokin/tidal-grabber/internal/utils"
)

// Kind is the type of a catalog object.
type Kind string

// Supported object kinds.
const (
	// KindTrack identifies tracks.
	KindTrack Kind = "track"
	// KindAlbum identifies albums.
	KindAlbum Kind = "album"
	// KindPlaylist identifies playlists.
	KindPlaylist Kind = "playlist"
	// KindArtist identifies artists.
	KindArtist Kind = "artist"
)

// Ref points at a catalog object found in a link.
type Ref struct {
	// Kind is the object kind.
	Kind Kind
	// ID is the object identifier, a number or a playlist UUID.
	ID string
	// URL is the link the reference was found in.
	URL string
}

const tidalHost = "tidal.com"

//nolint:gochecknoglobals // Compiled once, read-only.
var linkRegexp = regexp.MustCompile(
	`(?i)https?://(?:www\.|listen\.)?tidal\.com/(?:browse/)?(?P<kind>track|album|playlist|artist)/(?P<id>[0-9a-z-]+)`)

// ParseURLs returns a reference for every TIDAL link in text, in order of appearance.
// Repeated links produce repeated references.
func ParseURLs(text string) []Ref {
	matches := linkRegexp.FindAllStringSubmatchIndex(text, -1)
	refs := make([]Ref, 0, len(matches))

	for _, match := range matches {
		link := text[match[0]:match[1]]

		refs = append(refs, Ref{
			Kind: Kind(strings.ToLower(utils.ExtractNamedGroup(linkRegexp, "kind", link))),
			ID:   strings.ToLower(utils.ExtractNamedGroup(linkRegexp, "id", link)),
			URL:  link,
		})
	}

	return refs
}

// ParseURL returns the reference of the first TIDAL link in text.
func ParseURL(text string) (Ref, error) {
	match := linkRegexp.FindString(text)
	if match == "" {
		return Ref{}, ErrInvalidURL
	}

	return ParseURLs(match)[0], nil
}

// IsTidalURL reports whether rawURL points at tidal.com or one of its subdomains.
// URLs without a scheme are accepted.
func IsTidalURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if parsed.Scheme == "" {
		if parsed, err = url.Parse("//" + rawURL); err != nil {
			return false
		}
	}

	host := strings.ToLower(parsed.Hostname())

	return host == tidalHost || strings.HasSuffix(host, "."+tidalHost)
}
