package http

import (
	"net/http"

	"github.com/oshokin/tidal-grabber/internal/utils"
)

// UserAgentInjector is a custom http.RoundTripper that injects a User-Agent header into HTTP requests.
type UserAgentInjector struct {
	// next is the underlying HTTP round tripper.
	next http.RoundTripper
	// userAgentProvider provides the User-Agent string to inject.
	userAgentProvider utils.UserAgentProvider
}

// userAgentHeader is the HTTP header name for User-Agent.
const userAgentHeader = "User-Agent"

// NewUserAgentInjector creates and returns a new instance of UserAgentInjector.
func NewUserAgentInjector(next http.RoundTripper, userAgentProvider utils.UserAgentProvider) http.RoundTripper {
	return &UserAgentInjector{
		next:              next,
		userAgentProvider: userAgentProvider,
	}
}

// RoundTrip injects a User-Agent header if it is missing and forwards the request.
// The caller's request is never modified, a clone is sent instead.
func (t *UserAgentInjector) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(userAgentHeader) != "" {
		return t.next.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set(userAgentHeader, t.userAgentProvider.GetUserAgent())

	return t.next.RoundTrip(clone)
}

// HeaderInjector is a custom http.RoundTripper that adds static headers to requests for a single host.
type HeaderInjector struct {
	// next is the underlying HTTP round tripper.
	next http.RoundTripper
	// host restricts injection to requests with this URL host.
	host string
	// headers are set on matching requests unless already present.
	headers http.Header
}

// NewHeaderInjector creates a HeaderInjector. An empty host matches every request.
func NewHeaderInjector(next http.RoundTripper, host string, headers http.Header) http.RoundTripper {
	return &HeaderInjector{
		next:    next,
		host:    host,
		headers: headers,
	}
}

// RoundTrip adds the configured headers to matching requests and forwards them.
func (t *HeaderInjector) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.host != "" && req.URL.Host != t.host {
		return t.next.RoundTrip(req)
	}

	clone := req.Clone(req.Context())

	for name, values := range t.headers {
		if clone.Header.Get(name) != "" {
			continue
		}

		for _, value := range values {
			clone.Header.Add(name, value)
		}
	}

	return t.next.RoundTrip(clone)
}
