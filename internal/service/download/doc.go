// Package download turns TIDAL URLs into files on disk: tracks, covers, lyrics and optional ZIP archives.
package download
