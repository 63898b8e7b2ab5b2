// Package packaging provides nupkg archive handling: nuspec manifest
// parsing, extraction with post-processing, and install-folder queries.
package packaging

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yever/Paket/frameworks"
	"github.com/yever/Paket/nuget"
	"github.com/yever/Paket/version"
)

// Nuspec represents a parsed .nuspec manifest.
type Nuspec struct {
	XMLName  xml.Name       `xml:"package"`
	Metadata NuspecMetadata `xml:"metadata"`
}

// NuspecMetadata is the metadata section of a manifest.
type NuspecMetadata struct {
	ID           string               `xml:"id"`
	Version      string               `xml:"version"`
	Authors      string               `xml:"authors"`
	LicenseURL   string               `xml:"licenseUrl"`
	Dependencies *DependenciesElement `xml:"dependencies"`
}

// DependenciesElement is the dependencies container. Modern manifests group
// dependencies by target framework; legacy ones list them flat.
type DependenciesElement struct {
	Groups       []DependencyGroup `xml:"group"`
	Dependencies []NuspecDependency `xml:"dependency"`
}

// DependencyGroup holds the dependencies of one target framework.
type DependencyGroup struct {
	TargetFramework string             `xml:"targetFramework,attr"`
	Dependencies    []NuspecDependency `xml:"dependency"`
}

// NuspecDependency is a single dependency declaration.
type NuspecDependency struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
}

// ParseNuspec decodes a .nuspec document.
func ParseNuspec(r io.Reader) (*Nuspec, error) {
	var spec Nuspec
	if err := xml.NewDecoder(r).Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode nuspec: %w", err)
	}
	if spec.Metadata.ID == "" {
		return nil, fmt.Errorf("nuspec has no package id")
	}
	return &spec, nil
}

// ParseNuspecFile parses a .nuspec manifest from disk.
func ParseNuspecFile(path string) (*Nuspec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open nuspec: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseNuspec(f)
}

// PackageDependencies flattens the manifest's dependency declarations into
// canonical dependencies, turning each group's target framework into an
// exact restriction. Unparseable monikers leave the dependency
// unrestricted; portable profiles become portable restrictions.
func (n *Nuspec) PackageDependencies() ([]nuget.Dependency, error) {
	if n.Metadata.Dependencies == nil {
		return nil, nil
	}

	var deps []nuget.Dependency

	appendDep := func(d NuspecDependency, restrictions []frameworks.Restriction) error {
		if d.ID == "" {
			return nil
		}
		requirement, err := version.ParseRequirement(d.Version)
		if err != nil {
			return fmt.Errorf("dependency %s: %w", d.ID, err)
		}
		deps = append(deps, nuget.Dependency{
			Name:         nuget.NewPackageName(d.ID),
			Requirement:  requirement,
			Restrictions: restrictions,
		})
		return nil
	}

	for _, d := range n.Metadata.Dependencies.Dependencies {
		if err := appendDep(d, nil); err != nil {
			return nil, err
		}
	}

	for _, group := range n.Metadata.Dependencies.Groups {
		restrictions := groupRestrictions(group.TargetFramework)
		for _, d := range group.Dependencies {
			if err := appendDep(d, restrictions); err != nil {
				return nil, err
			}
		}
	}

	return nuget.OptimizeDependencies(deps), nil
}

func groupRestrictions(targetFramework string) []frameworks.Restriction {
	tf := strings.TrimSpace(targetFramework)
	if tf == "" {
		return nil
	}
	if strings.HasPrefix(strings.ToLower(tf), "portable") {
		return []frameworks.Restriction{frameworks.Portable(tf)}
	}
	fw, err := frameworks.ParseFramework(tf)
	if err != nil {
		return nil
	}
	return []frameworks.Restriction{frameworks.Exactly(fw)}
}
