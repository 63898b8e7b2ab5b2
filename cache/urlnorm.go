// Package cache persists package metadata on disk between runs.
//
// Cache files are keyed by package name, normalized version and a stable
// 64-bit hash of the normalized feed URL, carry a schema version tag, and
// get a sibling ".failed" marker when a fetch fails.
package cache

import (
	"math"
	"net/url"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// NormalizeFeedURL reduces a feed URL to the form used for cache keying:
// the scheme becomes http, the host is lowercased, and a leading "www." is
// dropped. "https://www.Example.com/api" and "http://example.com/api" share
// cached results.
func NormalizeFeedURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(feedURL)
	}

	u.Scheme = "http"
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	u.Host = host

	return u.String()
}

// HashFeedURL returns a stable non-negative 64-bit hash of the normalized
// feed URL. xxHash64 keeps cache locations identical across runs and
// processes.
func HashFeedURL(feedURL string) int64 {
	h := xxhash.Sum64String(NormalizeFeedURL(feedURL))
	return int64(h & math.MaxInt64)
}
