package http

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimiter is a custom http.RoundTripper that delays requests to respect a request rate.
type RateLimiter struct {
	// next is the underlying HTTP round tripper.
	next http.RoundTripper
	// limiter is the token bucket shared by all requests going through this transport.
	limiter *rate.Limiter
}

// NewRateLimiter creates a RateLimiter allowing requestsPerSecond requests with the given burst.
// A non-positive rate disables limiting and returns next unchanged.
func NewRateLimiter(next http.RoundTripper, requestsPerSecond float64, burst int) http.RoundTripper {
	if requestsPerSecond <= 0 {
		return next
	}

	if burst < 1 {
		burst = 1
	}

	return &RateLimiter{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// RoundTrip waits for a token and forwards the request.
// It fails with the context error if the request is canceled while waiting.
func (t *RateLimiter) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	return t.next.RoundTrip(req)
}
