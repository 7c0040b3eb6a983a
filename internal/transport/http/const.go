package http

import "time"

const (
	// DefaultTimeout is the default timeout duration for API requests.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent mimics the TIDAL Android application.
	DefaultUserAgent = "TIDAL_ANDROID/1039 okhttp/3.14.9"

	// redactedValue replaces secrets in logged requests.
	redactedValue = "[redacted]"
)
