package core

import (
	"github.com/yever/Paket/nuget"
	"github.com/yever/Paket/packaging"
	v2 "github.com/yever/Paket/protocol/v2"
	v3 "github.com/yever/Paket/protocol/v3"
)

// Client is the facade over the acquisition core. One client serves any
// number of concurrent operations.
type Client struct {
	env *Environment
	v2  *v2.Client
	v3  *v3.Client
}

// NewClient creates a client over the given environment.
func NewClient(env *Environment) *Client {
	return &Client{
		env: env,
		v2:  v2.NewClient(env.HTTPClient),
		v3:  v3.NewClient(env.HTTPClient),
	}
}

// PackageDetails is the resolved description of one package version,
// consumed by the dependency resolution collaborator.
type PackageDetails struct {
	// Name carries the feed's authoritative casing.
	Name nuget.PackageName

	// Source is the package source that answered.
	Source nuget.PackageSource

	// DownloadLink locates the archive.
	DownloadLink nuget.DownloadLink

	// Unlisted marks soft-deleted versions.
	Unlisted bool

	// LicenseURL may be empty.
	LicenseURL string

	// DirectDependencies lists the version's direct dependencies.
	DirectDependencies []nuget.Dependency
}

// GetLibFiles returns all files under the package folder's lib directory.
func GetLibFiles(folder string) ([]string, error) {
	return packaging.GetLibFiles(folder)
}

// GetTargetsFiles returns all files under the package folder's build
// directory.
func GetTargetsFiles(folder string) ([]string, error) {
	return packaging.GetTargetsFiles(folder)
}

// GetAnalyzerFiles returns all files under the package folder's analyzers
// directory.
func GetAnalyzerFiles(folder string) ([]string, error) {
	return packaging.GetAnalyzerFiles(folder)
}
