// Package auth provides authentication for NuGet feeds.
package auth

import "net/http"

// Credentials is the interface for feed authentication.
//
// A nil Credentials means anonymous access (the host's default credentials).
type Credentials interface {
	// Authenticate adds the credential to the request preemptively;
	// feeds are not given the chance to answer with a 401 challenge first.
	Authenticate(req *http.Request)

	// CacheKey returns a stable string identifying the credential.
	// It is combined with the feed URL to key per-endpoint protocol state
	// and must not reveal the secret itself.
	CacheKey() string
}

// Key returns the cache key for possibly-nil credentials.
func Key(c Credentials) string {
	if c == nil {
		return ""
	}
	return c.CacheKey()
}

// Apply authenticates the request when credentials are present.
func Apply(req *http.Request, c Credentials) {
	if c != nil {
		c.Authenticate(req)
	}
}
