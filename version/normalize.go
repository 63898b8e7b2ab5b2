package version

import "fmt"

// Normalize returns the canonical string form of the version.
//
// The normalized form has exactly three numeric segments (a nonzero legacy
// revision is kept as a fourth), leading zeros removed, prerelease labels
// preserved, and build metadata stripped. It is the stable key used in cache
// file names and feed queries.
//
// Examples:
//   - "1.01.1"    → "1.1.1"
//   - "1.2"       → "1.2.0"
//   - "1.0.0.0"   → "1.0.0"
//   - "1.0.0-Beta+42" → "1.0.0-Beta"
func (v *SemVer) Normalize() string {
	return v.format(false)
}

// NormalizeString parses a version string and returns its normalized form.
func NormalizeString(s string) (string, error) {
	v, err := Parse(s)
	if err != nil {
		return "", fmt.Errorf("cannot normalize invalid version: %w", err)
	}
	return v.Normalize(), nil
}

// NormalizeOrOriginal attempts to normalize a version string.
// If parsing fails, returns the input unchanged.
func NormalizeOrOriginal(s string) string {
	v, err := Parse(s)
	if err != nil {
		return s
	}
	return v.Normalize()
}
