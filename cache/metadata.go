package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yever/Paket/nuget"
	"github.com/yever/Paket/observability"
	"github.com/yever/Paket/version"
)

// FailedMarkerExtension is appended to a cache file name to form its sticky
// failure marker.
const FailedMarkerExtension = ".failed"

// MetadataCache reads and writes JSON-serialized package metadata in a
// per-user cache directory. Reads are lock-free; writes are last-writer-wins
// (the payload is deterministic for a given name, version and feed, so
// racing writers produce byte-identical files). Failure markers are
// append-only.
type MetadataCache struct {
	dir    string
	logger observability.Logger
}

// DefaultDir returns the per-user metadata cache root, NuGet/Cache under
// the user cache directory.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve user cache directory: %w", err)
	}
	return filepath.Join(base, "NuGet", "Cache"), nil
}

// NewMetadataCache creates a metadata cache rooted at dir, creating the
// directory on first use.
func NewMetadataCache(dir string, logger observability.Logger) (*MetadataCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	if logger == nil {
		logger = observability.NewNullLogger()
	}
	return &MetadataCache{dir: dir, logger: logger}, nil
}

// Dir returns the cache root.
func (c *MetadataCache) Dir() string {
	return c.dir
}

// FilePath returns the metadata cache file for a package version on a feed:
// {name}.{normalizedVersion}.s{urlHash}.json
func (c *MetadataCache) FilePath(name nuget.PackageName, ver *version.SemVer, feedURL string) string {
	fileName := fmt.Sprintf("%s.%s.s%d.json", name, ver.Normalize(), HashFeedURL(feedURL))
	return filepath.Join(c.dir, fileName)
}

// ErrorPath returns the sticky failure marker for the same key.
func (c *MetadataCache) ErrorPath(name nuget.PackageName, ver *version.SemVer, feedURL string) string {
	return c.FilePath(name, ver, feedURL) + FailedMarkerExtension
}

// Read loads cached metadata. It misses when the file is absent, cannot be
// decoded, or carries a schema version other than the current one; cache
// read failures are swallowed and counted, never surfaced.
func (c *MetadataCache) Read(name nuget.PackageName, ver *version.SemVer, feedURL string) (*nuget.PackageMetadata, bool) {
	path := c.FilePath(name, ver, feedURL)

	data, err := os.ReadFile(path)
	if err != nil {
		observability.MetadataCacheMissesTotal.WithLabelValues("absent").Inc()
		return nil, false
	}

	var meta nuget.PackageMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		c.logger.Debug("Discarding undecodable cache file {Path}: {Error}", path, err)
		observability.MetadataCacheMissesTotal.WithLabelValues("absent").Inc()
		return nil, false
	}

	if meta.CacheVersion != nuget.CurrentCacheVersion {
		c.logger.Debug("Cache file {Path} has schema {Found}, want {Want}; refetching",
			path, meta.CacheVersion, nuget.CurrentCacheVersion)
		observability.MetadataCacheMissesTotal.WithLabelValues("stale_schema").Inc()
		return nil, false
	}

	observability.MetadataCacheHitsTotal.Inc()
	return &meta, true
}

// Write persists metadata for a package version. The cache is a best-effort
// accelerator: callers treat write failures as non-fatal.
func (c *MetadataCache) Write(meta *nuget.PackageMetadata, name nuget.PackageName, ver *version.SemVer, feedURL string) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return nuget.NewFeedError(nuget.KindCache, feedURL, fmt.Errorf("serialize metadata: %w", err))
	}
	path := c.FilePath(name, ver, feedURL)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nuget.NewFeedError(nuget.KindCache, feedURL, fmt.Errorf("write cache file: %w", err))
	}
	return nil
}

// Failure returns the recorded diagnostic if a sticky failure marker exists.
func (c *MetadataCache) Failure(name nuget.PackageName, ver *version.SemVer, feedURL string) (string, bool) {
	data, err := os.ReadFile(c.ErrorPath(name, ver, feedURL))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// MarkFailure appends a diagnostic to the sticky failure marker, creating
// it if needed.
func (c *MetadataCache) MarkFailure(name nuget.PackageName, ver *version.SemVer, feedURL, diagnostic string) {
	path := c.ErrorPath(name, ver, feedURL)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		c.logger.Debug("Cannot write failure marker {Path}: {Error}", path, err)
		return
	}
	defer func() { _ = f.Close() }()
	_, _ = fmt.Fprintln(f, diagnostic)
}

// ClearFailure removes the sticky failure marker.
func (c *MetadataCache) ClearFailure(name nuget.PackageName, ver *version.SemVer, feedURL string) {
	_ = os.Remove(c.ErrorPath(name, ver, feedURL))
}
