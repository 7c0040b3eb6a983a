// Package http provides http.RoundTripper middlewares for the TIDAL client:
// request/response logging, User-Agent and static header injection, and client-side rate limiting.
package http
