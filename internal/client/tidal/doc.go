// Package tidal provides a Go client for the TIDAL v1 catalog API.
// It fetches tracks, albums, playlists, artists and their paged collections,
// resolves playback manifests into stream URLs, and fetches lyrics.
// Requests go through a retrying, rate-limited, circuit-broken transport chain
// and are authenticated with OAuth2 tokens that refresh on demand.
// Stream files are opened as seekable remote files without the API credentials.
package tidal
