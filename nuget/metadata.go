package nuget

import (
	"time"

	"github.com/yever/Paket/frameworks"
	"github.com/yever/Paket/version"
)

// CurrentCacheVersion is the schema version written into metadata cache
// files. Files carrying any other value are discarded and refetched.
const CurrentCacheVersion = "2.0"

// MagicUnlistingDate is the sentinel publish date feeds use to mark a
// package version as unlisted.
var MagicUnlistingDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// DownloadLink locates a package archive. Exactly one field is set: a
// remote URL for feed-hosted packages, or a filesystem path for packages
// found in a local directory source.
type DownloadLink struct {
	RemoteURL string `json:"remoteUrl,omitempty"`
	LocalPath string `json:"localPath,omitempty"`
}

// RemoteLink creates a download link for a feed-hosted archive.
func RemoteLink(url string) DownloadLink {
	return DownloadLink{RemoteURL: url}
}

// LocalLink creates a download link for an archive already on disk.
func LocalLink(path string) DownloadLink {
	return DownloadLink{LocalPath: path}
}

// IsLocal reports whether the archive needs no download.
func (l DownloadLink) IsLocal() bool {
	return l.LocalPath != ""
}

func (l DownloadLink) String() string {
	if l.IsLocal() {
		return l.LocalPath
	}
	return l.RemoteURL
}

// Dependency is a direct dependency declared by a package version.
type Dependency struct {
	Name         PackageName              `json:"name"`
	Requirement  *version.Requirement     `json:"requirement"`
	Restrictions []frameworks.Restriction `json:"restrictions,omitempty"`
}

// PackageMetadata is the authoritative description of one package version
// as reported by a feed. It is the unit persisted in the metadata disk
// cache; serialization is deterministic so racing cache writers produce
// byte-identical files.
type PackageMetadata struct {
	// PackageName carries the feed's authoritative casing, which may
	// differ from the requested name.
	PackageName PackageName `json:"packageName"`

	// SourceURL is the feed the metadata came from.
	SourceURL string `json:"sourceUrl"`

	// DownloadLink locates the archive.
	DownloadLink DownloadLink `json:"downloadLink"`

	// LicenseURL may be empty.
	LicenseURL string `json:"licenseUrl"`

	// Unlisted is true iff the feed's Published date equals the magic
	// unlisting date.
	Unlisted bool `json:"unlisted"`

	// Dependencies are the direct dependencies with version requirements
	// and framework restrictions.
	Dependencies []Dependency `json:"dependencies"`

	// CacheVersion tags the serialization schema.
	CacheVersion string `json:"cacheVersion"`
}
