package tidal

import (
	"errors"
	"fmt"
	"net/http"
)

// Static error definitions for better error handling.
var (
	// ErrNotFound indicates that the requested entity does not exist or is not available in the region.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates that the API rejected the credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnexpectedStatus indicates an unexpected HTTP status code was received.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	// ErrEmptyManifest indicates that a playback manifest contains no stream URL.
	ErrEmptyManifest = errors.New("playback manifest has no stream URL")
	// ErrInvalidManifest indicates that a playback manifest could not be decoded.
	ErrInvalidManifest = errors.New("invalid playback manifest")
	// ErrCircuitOpen indicates that requests are rejected because the API kept failing.
	ErrCircuitOpen = errors.New("API circuit breaker is open")
	// ErrInvalidAudioQuality indicates an unknown audio quality name.
	ErrInvalidAudioQuality = errors.New("invalid audio quality")
	// ErrMissingAuthCode indicates that the redirect URL carries no authorization code.
	ErrMissingAuthCode = errors.New("redirect URL has no authorization code")
	// ErrNoRefreshToken indicates that an expired access token cannot be renewed.
	ErrNoRefreshToken = errors.New("access token expired and no refresh token is available")
)

// StatusError describes a non-successful API response.
type StatusError struct {
	// StatusCode is the HTTP status code.
	StatusCode int `json:"status"`
	// SubStatus is the TIDAL-specific error code, if any.
	SubStatus int `json:"subStatus"`
	// UserMessage is the human-readable message from the API, if any.
	UserMessage string `json:"userMessage"`
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.UserMessage == "" {
		return fmt.Sprintf("%s: %d", e.Unwrap(), e.StatusCode)
	}

	return fmt.Sprintf("%s: %d (%d): %s", e.Unwrap(), e.StatusCode, e.SubStatus, e.UserMessage)
}

// Unwrap maps the status code to one of the package sentinel errors.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return ErrUnexpectedStatus
	}
}
