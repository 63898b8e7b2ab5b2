// Package version provides semantic version parsing, normalization and
// comparison for NuGet packages.
//
// It supports SemVer 2.0 versions as well as legacy 4-part versions
// (Major.Minor.Build.Revision). The normalized form is the canonical string
// used in cache keys and feed queries.
//
// Example:
//
//	v, err := version.Parse("1.02.3-beta.1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(v.Normalize()) // 1.2.3-beta.1
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// SemVer represents a NuGet package version.
type SemVer struct {
	// Major version number
	Major int

	// Minor version number
	Minor int

	// Patch version number (Build for legacy versions)
	Patch int

	// Revision is only used for legacy 4-part versions
	Revision int

	// IsLegacy indicates a 4-part version rather than SemVer 2.0
	IsLegacy bool

	// ReleaseLabels contains prerelease labels (e.g. ["beta", "1"] for "1.0.0-beta.1")
	ReleaseLabels []string

	// Metadata is the build metadata after '+'. Ignored in comparison and
	// stripped from the normalized form.
	Metadata string

	// original preserves the version string as it appeared on the feed
	original string
}

// String returns the permissive string form of the version. If the version
// was parsed, this is the original text; feeds match on it as a fallback when
// the normalized form finds nothing.
func (v *SemVer) String() string {
	if v.original != "" {
		return v.original
	}
	return v.format(true)
}

// IsPrerelease reports whether the version carries release labels.
func (v *SemVer) IsPrerelease() bool {
	return len(v.ReleaseLabels) > 0
}

func (v *SemVer) format(withMetadata bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.IsLegacy && v.Revision != 0 {
		fmt.Fprintf(&sb, ".%d", v.Revision)
	}
	if len(v.ReleaseLabels) > 0 {
		sb.WriteByte('-')
		sb.WriteString(strings.Join(v.ReleaseLabels, "."))
	}
	if withMetadata && v.Metadata != "" {
		sb.WriteByte('+')
		sb.WriteString(v.Metadata)
	}
	return sb.String()
}

// Parse parses a version string into a SemVer.
//
// Supported formats:
//   - SemVer 2.0: Major.Minor.Patch[-Prerelease][+Metadata]
//   - Legacy: Major.Minor.Build.Revision
//
// Missing minor/patch segments default to zero.
func Parse(s string) (*SemVer, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("version string cannot be empty")
	}

	v := &SemVer{original: s}

	// Split on '+' to extract metadata
	parts := strings.SplitN(s, "+", 2)
	versionPart := parts[0]
	if len(parts) == 2 {
		v.Metadata = parts[1]
	}

	// Split on '-' to extract prerelease labels
	parts = strings.SplitN(versionPart, "-", 2)
	numberPart := parts[0]
	if len(parts) == 2 {
		if parts[1] == "" {
			return nil, fmt.Errorf("invalid version format: %q", s)
		}
		v.ReleaseLabels = strings.Split(parts[1], ".")
	}

	numbers := strings.Split(numberPart, ".")
	if len(numbers) > 4 {
		return nil, fmt.Errorf("invalid version format: %q", s)
	}

	segments := make([]int, len(numbers))
	for i, n := range numbers {
		val, err := strconv.Atoi(n)
		if err != nil || val < 0 {
			return nil, fmt.Errorf("invalid version segment %q in %q", n, s)
		}
		segments[i] = val
	}

	v.Major = segments[0]
	if len(segments) > 1 {
		v.Minor = segments[1]
	}
	if len(segments) > 2 {
		v.Patch = segments[2]
	}
	if len(segments) == 4 {
		v.Revision = segments[3]
		v.IsLegacy = true
	}

	return v, nil
}

// MustParse parses a version string and panics on error.
// Use this only when you know the version string is valid.
func MustParse(s string) *SemVer {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Zero is the lowest possible version, 0.0.0.
func Zero() *SemVer {
	return &SemVer{}
}
