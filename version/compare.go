package version

import "strconv"

// Compare compares two versions per SemVer 2.0 precedence rules.
// Returns -1 if v < other, 0 if equal, 1 if v > other.
// Build metadata is ignored; a prerelease sorts below its release.
func (v *SemVer) Compare(other *SemVer) int {
	if c := compareInt(v.Major, other.Major); c != 0 {
		return c
	}
	if c := compareInt(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := compareInt(v.Patch, other.Patch); c != 0 {
		return c
	}
	if c := compareInt(v.Revision, other.Revision); c != 0 {
		return c
	}
	return compareReleaseLabels(v.ReleaseLabels, other.ReleaseLabels)
}

// Equal reports whether both versions have the same precedence and identity.
// Two versions with the same normalized form are equal.
func (v *SemVer) Equal(other *SemVer) bool {
	return v.Compare(other) == 0
}

// LessThan reports whether v sorts before other.
func (v *SemVer) LessThan(other *SemVer) bool {
	return v.Compare(other) < 0
}

// GreaterThan reports whether v sorts after other.
func (v *SemVer) GreaterThan(other *SemVer) bool {
	return v.Compare(other) > 0
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareReleaseLabels implements SemVer 2.0 prerelease precedence:
// a version without labels is higher than one with labels; labels compare
// segment by segment, numeric segments numerically and below alphanumeric ones.
func compareReleaseLabels(a, b []string) int {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	if len(a) == 0 {
		return 1
	}
	if len(b) == 0 {
		return -1
	}

	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareLabel(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareInt(len(a), len(b))
}

func compareLabel(a, b string) int {
	an, aErr := strconv.Atoi(a)
	bn, bErr := strconv.Atoi(b)

	switch {
	case aErr == nil && bErr == nil:
		return compareInt(an, bn)
	case aErr == nil:
		// Numeric identifiers sort below alphanumeric ones
		return -1
	case bErr == nil:
		return 1
	}

	// Case-insensitive per NuGet ordering rules
	al, bl := lower(a), lower(b)
	switch {
	case al < bl:
		return -1
	case al > bl:
		return 1
	default:
		return 0
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
