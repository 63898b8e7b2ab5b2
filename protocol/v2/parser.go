package v2

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yever/Paket/frameworks"
	"github.com/yever/Paket/nuget"
	"github.com/yever/Paket/version"
)

// downloadContentTypes are the content types an entry's download link may
// carry; anything else means the entry is not a package.
var downloadContentTypes = map[string]bool{
	"application/zip":     true,
	"binary/octet-stream": true,
}

// ParseEntry decodes a single OData entry document into the canonical
// package metadata record. The document is either an Atom <feed> whose first
// <entry> is the package, or a bare <entry> root. Mandatory nodes missing
// from the document produce protocol errors; nothing is inferred.
func ParseEntry(doc []byte, sourceURL string, name nuget.PackageName, ver *version.SemVer) (*nuget.PackageMetadata, error) {
	entry, err := resolveEntry(doc)
	if err != nil {
		if errors.Is(err, errEmptyFeed) {
			return nil, nuget.NotFoundError(sourceURL, name, ver.String())
		}
		return nil, nuget.ProtocolError(sourceURL, err)
	}

	officialName := entry.Properties.ID
	if officialName == "" {
		officialName = entry.Title
	}
	if officialName == "" {
		return nil, nuget.ProtocolError(sourceURL,
			fmt.Errorf("entry for %s %s carries neither properties/Id nor title", name, ver))
	}

	if !downloadContentTypes[entry.Content.Type] || entry.Content.Src == "" {
		return nil, nuget.ProtocolError(sourceURL,
			fmt.Errorf("entry for %s %s has no usable download link (content type %q)",
				name, ver, entry.Content.Type))
	}

	published := parsePublished(entry.Properties.Published)

	deps, err := ParseDependencies(entry.Properties.Dependencies)
	if err != nil {
		return nil, nuget.ProtocolError(sourceURL, err)
	}

	return &nuget.PackageMetadata{
		PackageName:  nuget.NewPackageName(officialName),
		SourceURL:    sourceURL,
		DownloadLink: nuget.RemoteLink(entry.Content.Src),
		LicenseURL:   entry.Properties.LicenseURL,
		Unlisted:     published.Equal(nuget.MagicUnlistingDate),
		Dependencies: nuget.OptimizeDependencies(deps),
		CacheVersion: nuget.CurrentCacheVersion,
	}, nil
}

var errEmptyFeed = errors.New("feed document contains no entry")

// resolveEntry prefers feed/entry and falls back to a root entry element.
func resolveEntry(doc []byte) (*Entry, error) {
	var feed Feed
	if err := xml.Unmarshal(doc, &feed); err == nil {
		if len(feed.Entries) == 0 {
			return nil, errEmptyFeed
		}
		return &feed.Entries[0], nil
	}

	var entry Entry
	if err := xml.Unmarshal(doc, &entry); err != nil {
		return nil, fmt.Errorf("document is neither a feed nor an entry: %w", err)
	}
	return &entry, nil
}

// publishedFormats are the date shapes OData feeds emit.
var publishedFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// parsePublished parses an OData publish date, defaulting to the zero time
// when the value cannot be read.
func parsePublished(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, format := range publishedFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ParseDependencies parses the feed's dependency mini-grammar: a
// |-separated token list where each token is name:versionSpec:frameworkSpec
// and every field after the first colon is optional.
//
//	"A:1.2.3:net45|B::|C:1.0:portable-net45+win8"
//
// An absent or empty versionSpec means the unbounded requirement. An absent
// or empty frameworkSpec means no restriction; a spec starting with
// "portable" becomes a portable restriction; otherwise framework identifier
// extraction is attempted and an unrecognized moniker drops the restriction.
func ParseDependencies(s string) ([]nuget.Dependency, error) {
	var deps []nuget.Dependency

	for _, token := range strings.Split(s, "|") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		parts := strings.SplitN(token, ":", 3)
		name := strings.TrimSpace(parts[0])
		if name == "" {
			continue
		}

		versionSpec := ""
		if len(parts) > 1 {
			versionSpec = strings.TrimSpace(parts[1])
		}
		requirement, err := version.ParseRequirement(versionSpec)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", token, err)
		}

		dep := nuget.Dependency{
			Name:        nuget.NewPackageName(name),
			Requirement: requirement,
		}

		if len(parts) > 2 {
			if r, ok := parseRestriction(strings.TrimSpace(parts[2])); ok {
				dep.Restrictions = []frameworks.Restriction{r}
			}
		}

		deps = append(deps, dep)
	}

	return deps, nil
}

func parseRestriction(spec string) (frameworks.Restriction, bool) {
	if spec == "" {
		return frameworks.Restriction{}, false
	}
	if strings.HasPrefix(strings.ToLower(spec), "portable") {
		return frameworks.Portable(spec), true
	}
	fw, err := frameworks.ParseFramework(spec)
	if err != nil {
		return frameworks.Restriction{}, false
	}
	return frameworks.Exactly(fw), true
}
