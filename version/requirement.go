package version

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Requirement represents a parsed version requirement from a dependency
// declaration.
//
// Accepted forms:
//
//	""  or "0"   - unbounded (any version ≥ 0)
//	"1.2.3"      - pinned to exactly 1.2.3
//	"[1.0, 2.0]" - 1.0 ≤ x ≤ 2.0 (inclusive)
//	"(1.0, 2.0)" - 1.0 < x < 2.0 (exclusive)
//	"[1.0, 2.0)" - mixed bounds
//	"[1.0, )"    - x ≥ 1.0
//	"(, 2.0]"    - x ≤ 2.0
//	"1.2.*"      - wildcard, 1.2.0 ≤ x < 1.3.0
type Requirement struct {
	Min          *SemVer
	Max          *SemVer
	MinInclusive bool
	MaxInclusive bool

	// text preserves the requirement as written, for re-emission
	text string
}

// AnyVersion is the unbounded requirement, accepting every version.
func AnyVersion() *Requirement {
	return &Requirement{
		Min:          Zero(),
		MinInclusive: true,
		text:         "0",
	}
}

// ParseRequirement parses a version requirement string.
// An empty string and "0" both parse to the unbounded requirement.
func ParseRequirement(s string) (*Requirement, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return AnyVersion(), nil
	}

	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "(") {
		return parseBracketRange(s)
	}

	if strings.Contains(s, "*") {
		return parseWildcard(s)
	}

	// A bare version pins the dependency to exactly that version.
	v, err := Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid version requirement: %w", err)
	}
	return &Requirement{
		Min:          v,
		Max:          v,
		MinInclusive: true,
		MaxInclusive: true,
		text:         s,
	}, nil
}

// MustParseRequirement parses a requirement string and panics on error.
func MustParseRequirement(s string) *Requirement {
	r, err := ParseRequirement(s)
	if err != nil {
		panic(err)
	}
	return r
}

func parseBracketRange(s string) (*Requirement, error) {
	if !strings.HasSuffix(s, "]") && !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("range %q must end with ] or )", s)
	}

	r := &Requirement{
		MinInclusive: strings.HasPrefix(s, "["),
		MaxInclusive: strings.HasSuffix(s, "]"),
		text:         s,
	}

	inner := s[1 : len(s)-1]
	parts := strings.Split(inner, ",")

	var minPart, maxPart string
	switch len(parts) {
	case 1:
		// [1.0.0] pins to an exact version
		minPart = strings.TrimSpace(parts[0])
		maxPart = minPart
	case 2:
		minPart = strings.TrimSpace(parts[0])
		maxPart = strings.TrimSpace(parts[1])
	default:
		return nil, fmt.Errorf("range %q must have one or two parts", s)
	}

	var err error
	if minPart != "" {
		if r.Min, err = Parse(minPart); err != nil {
			return nil, fmt.Errorf("invalid range minimum: %w", err)
		}
	}
	if maxPart != "" {
		if r.Max, err = Parse(maxPart); err != nil {
			return nil, fmt.Errorf("invalid range maximum: %w", err)
		}
	}
	if r.Min == nil && r.Max == nil {
		return nil, fmt.Errorf("range %q has no bounds", s)
	}
	return r, nil
}

// parseWildcard turns "1.2.*" into the half-open range [1.2.0, 1.3.0).
// A bare "*" is the unbounded requirement.
func parseWildcard(s string) (*Requirement, error) {
	if s == "*" {
		r := AnyVersion()
		r.text = s
		return r, nil
	}

	prefix, ok := strings.CutSuffix(s, ".*")
	if !ok || strings.Contains(prefix, "*") {
		return nil, fmt.Errorf("invalid wildcard requirement: %q", s)
	}

	low, err := Parse(prefix)
	if err != nil {
		return nil, fmt.Errorf("invalid wildcard requirement: %w", err)
	}

	high := &SemVer{Major: low.Major, Minor: low.Minor + 1}
	if strings.Count(prefix, ".") == 0 {
		high = &SemVer{Major: low.Major + 1}
	}

	return &Requirement{
		Min:          low,
		Max:          high,
		MinInclusive: true,
		text:         s,
	}, nil
}

// Satisfies reports whether the version is inside the requirement's range.
func (r *Requirement) Satisfies(v *SemVer) bool {
	if v == nil {
		return false
	}
	if r.Min != nil {
		c := v.Compare(r.Min)
		if c < 0 || (c == 0 && !r.MinInclusive) {
			return false
		}
	}
	if r.Max != nil {
		c := v.Compare(r.Max)
		if c > 0 || (c == 0 && !r.MaxInclusive) {
			return false
		}
	}
	return true
}

// IsPinned reports whether the requirement accepts exactly one version.
func (r *Requirement) IsPinned() bool {
	return r.Min != nil && r.Max != nil &&
		r.MinInclusive && r.MaxInclusive && r.Min.Equal(r.Max)
}

// IsUnbounded reports whether the requirement accepts every version.
func (r *Requirement) IsUnbounded() bool {
	return r.Max == nil && r.Min != nil && r.MinInclusive &&
		r.Min.Equal(Zero())
}

// String returns the requirement as written.
func (r *Requirement) String() string {
	if r.text != "" {
		return r.text
	}
	minBracket, maxBracket := "(", ")"
	if r.MinInclusive {
		minBracket = "["
	}
	if r.MaxInclusive {
		maxBracket = "]"
	}
	minStr, maxStr := "", ""
	if r.Min != nil {
		minStr = r.Min.String()
	}
	if r.Max != nil {
		maxStr = r.Max.String()
	}
	return fmt.Sprintf("%s%s, %s%s", minBracket, minStr, maxStr, maxBracket)
}

// MarshalJSON serializes the requirement as its source text so cache files
// stay byte-stable across runs.
func (r *Requirement) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON re-parses a requirement from its serialized text.
func (r *Requirement) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRequirement(s)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}
