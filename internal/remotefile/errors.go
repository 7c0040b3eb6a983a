package remotefile

import "errors"

// Static error definitions for better error handling.
var (
	// ErrProbeFailure indicates that the resource length could not be determined when opening it.
	ErrProbeFailure = errors.New("failed to probe remote file")
	// ErrNotSeekable indicates that the server does not support byte-range requests.
	ErrNotSeekable = errors.New("remote file is not seekable")
	// ErrReadOnly indicates an attempt to write to a remote file.
	ErrReadOnly = errors.New("remote file is read-only")
	// ErrClosed indicates an operation on a closed remote file.
	ErrClosed = errors.New("remote file is closed")
	// ErrInvalidSeek indicates an unknown whence or a resulting position outside [0, length].
	ErrInvalidSeek = errors.New("invalid seek")
	// ErrUnexpectedStatus indicates that a stream request returned an unusable status code.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)
