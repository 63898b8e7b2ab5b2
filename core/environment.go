// Package core composes the feed clients, caches and archive handling into
// the public package acquisition operations: GetVersions, GetPackageDetails
// and DownloadPackage.
package core

import (
	"fmt"
	"path/filepath"

	"github.com/yever/Paket/cache"
	pakethttp "github.com/yever/Paket/http"
	"github.com/yever/Paket/nuget"
	"github.com/yever/Paket/observability"
	v2 "github.com/yever/Paket/protocol/v2"
)

// LayoutFunc decides the per-package install directory. It is an external
// collaborator: hosts with their own directory policy inject one.
type LayoutFunc func(root, group string, name nuget.PackageName, versionText string, includeVersionInPath bool) string

// DefaultLayout installs under {root}/packages[/{group}]/{Name}[.{version}].
func DefaultLayout(root, group string, name nuget.PackageName, versionText string, includeVersionInPath bool) string {
	folder := name.String()
	if includeVersionInPath {
		folder = fmt.Sprintf("%s.%s", name, versionText)
	}
	if group == "" {
		return filepath.Join(root, "packages", folder)
	}
	return filepath.Join(root, "packages", group, folder)
}

// Environment owns the process-wide state of the acquisition core: the
// metadata cache root, the protocol selector, capability flags and the
// injected collaborators. Test doubles replace it wholesale.
type Environment struct {
	// Cache is the metadata disk cache.
	Cache *cache.MetadataCache

	// HTTPClient carries retry, proxy and logging configuration.
	HTTPClient *pakethttp.Client

	// Selector remembers which v2 variant each endpoint answered.
	Selector *v2.Selector

	// Logger receives structured diagnostics.
	Logger observability.Logger

	// RepairZipTimestamps is set on runtimes whose archive handling
	// writes invalid entry timestamps.
	RepairZipTimestamps bool

	// Layout is the install directory policy.
	Layout LayoutFunc
}

// EnvironmentConfig holds the knobs for NewEnvironment; zero values pick
// defaults.
type EnvironmentConfig struct {
	CacheDir            string
	HTTPConfig          *pakethttp.Config
	Logger              observability.Logger
	RepairZipTimestamps bool
	Layout              LayoutFunc
}

// NewEnvironment builds an environment, creating the cache directory on
// first use.
func NewEnvironment(cfg EnvironmentConfig) (*Environment, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNullLogger()
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		dir, err := cache.DefaultDir()
		if err != nil {
			return nil, err
		}
		cacheDir = dir
	}

	metadataCache, err := cache.NewMetadataCache(cacheDir, logger)
	if err != nil {
		return nil, err
	}

	httpConfig := cfg.HTTPConfig
	if httpConfig == nil {
		httpConfig = pakethttp.DefaultConfig()
	}
	if httpConfig.Logger == nil {
		httpConfig.Logger = logger
	}

	layout := cfg.Layout
	if layout == nil {
		layout = DefaultLayout
	}

	return &Environment{
		Cache:               metadataCache,
		HTTPClient:          pakethttp.NewClient(httpConfig),
		Selector:            v2.NewSelector(),
		Logger:              logger,
		RepairZipTimestamps: cfg.RepairZipTimestamps,
		Layout:              layout,
	}, nil
}
