// Package v3 implements the NuGet v3 JSON protocol surface used by the
// acquisition core: service index discovery and search-based version
// listing.
package v3

import "time"

// ServiceIndexCacheTTL bounds how long a fetched service index is reused.
const ServiceIndexCacheTTL = 40 * time.Minute

// ResourceTypeSearchQueryService is the service index resource type for the
// search endpoint.
const ResourceTypeSearchQueryService = "SearchQueryService"

// ServiceIndex is the v3 feed's index.json document.
type ServiceIndex struct {
	Version   string     `json:"version"`
	Resources []Resource `json:"resources"`
}

// Resource is one endpoint advertised by the service index.
type Resource struct {
	ID      string `json:"@id"`
	Type    string `json:"@type"`
	Comment string `json:"comment,omitempty"`
}

// SearchResponse is the search endpoint's result page.
type SearchResponse struct {
	TotalHits int          `json:"totalHits"`
	Data      []SearchItem `json:"data"`
}

// SearchItem is a single package in a search result page.
type SearchItem struct {
	ID       string          `json:"id"`
	Version  string          `json:"version"`
	Versions []SearchVersion `json:"versions"`
}

// SearchVersion is one version of a package in a search result.
type SearchVersion struct {
	Version   string `json:"version"`
	Downloads int64  `json:"downloads"`
}
