package catalog

import "errors"

// Static error definitions for better error handling.
var (
	// ErrInsufficientAudioQuality indicates that a track is not available in the required quality.
	ErrInsufficientAudioQuality = errors.New("insufficient audio quality")
	// ErrInvalidURL indicates that a text does not contain a supported TIDAL link.
	ErrInvalidURL = errors.New("not a supported TIDAL URL")
	// ErrUnknownKind indicates a reference to an unsupported object kind.
	ErrUnknownKind = errors.New("unknown object kind")
)
