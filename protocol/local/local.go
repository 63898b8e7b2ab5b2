// Package local implements the local-directory feed adapter. A directory of
// .nupkg files acts as a package source; the archives themselves are the
// source of truth, so no metadata cache is involved.
package local

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yever/Paket/nuget"
	"github.com/yever/Paket/packaging"
	"github.com/yever/Paket/version"
)

// ListVersions enumerates the versions of a package available in the
// directory. Archives anywhere below the directory whose file name is
// "{name}.{version}.nupkg" (case-insensitive, version starting with a digit)
// contribute their version string. A missing directory is fatal.
func ListVersions(dir string, name nuget.PackageName) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("local source %s: %w", dir, err)
	}

	pattern, err := regexp.Compile(`(?i)^` + regexp.QuoteMeta(name.String()) + `\.(\d.*)\.nupkg$`)
	if err != nil {
		return nil, fmt.Errorf("build version pattern: %w", err)
	}

	var versions []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if m := pattern.FindStringSubmatch(d.Name()); m != nil {
			versions = append(versions, m[1])
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan local source %s: %w", dir, err)
	}

	return versions, nil
}

// FetchMetadata builds package metadata from a local archive, located by
// three successive strategies: the exact "{name}.{raw}.nupkg" file, the
// exact "{name}.{normalized}.nupkg" file, then a recursive scan for any
// .nupkg whose name contains the package's compare key and either version
// form. The embedded nuspec manifest supplies the dependency list.
func FetchMetadata(dir string, name nuget.PackageName, ver *version.SemVer) (*nuget.PackageMetadata, error) {
	archivePath, err := findArchive(dir, name, ver)
	if err != nil {
		return nil, err
	}

	spec, err := packaging.NuspecFromArchive(archivePath)
	if err != nil {
		return nil, nuget.ProtocolError(dir, err)
	}

	deps, err := spec.PackageDependencies()
	if err != nil {
		return nil, nuget.ProtocolError(dir, err)
	}

	officialName := spec.Metadata.ID
	if officialName == "" {
		officialName = name.String()
	}

	return &nuget.PackageMetadata{
		PackageName:  nuget.NewPackageName(officialName),
		SourceURL:    dir,
		DownloadLink: nuget.LocalLink(archivePath),
		LicenseURL:   spec.Metadata.LicenseURL,
		Unlisted:     false,
		Dependencies: deps,
		CacheVersion: nuget.CurrentCacheVersion,
	}, nil
}

func findArchive(dir string, name nuget.PackageName, ver *version.SemVer) (string, error) {
	exact := []string{
		filepath.Join(dir, fmt.Sprintf("%s.%s.nupkg", name, ver)),
		filepath.Join(dir, fmt.Sprintf("%s.%s.nupkg", name, ver.Normalize())),
	}
	for _, candidate := range exact {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	nameKey := name.CompareKey()
	// Version containment is dot-delimited so that a request for 1.0.0
	// does not pick up 1.0.0-beta archives.
	raw := "." + strings.ToLower(ver.String()) + "."
	normalized := "." + strings.ToLower(ver.Normalize()) + "."

	var found string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || found != "" {
			return nil
		}
		fileName := strings.ToLower(d.Name())
		if !strings.HasSuffix(fileName, ".nupkg") || !strings.Contains(fileName, nameKey) {
			return nil
		}
		if strings.Contains(fileName, raw) || strings.Contains(fileName, normalized) {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan local source %s: %w", dir, err)
	}
	if found == "" {
		return "", nuget.NotFoundError(dir, name, ver.String())
	}
	return found, nil
}
