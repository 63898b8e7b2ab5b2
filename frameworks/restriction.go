package frameworks

import "fmt"

// Restriction gates whether a package dependency applies to a target
// framework. It has two variants: an exact framework, or a portable profile
// string covering several frameworks at once. The resolver consumes
// restrictions opaquely.
type Restriction struct {
	// Framework is set for the exact-framework variant
	Framework *Framework `json:"framework,omitempty"`

	// Portable is set for the portable-profile variant
	// (e.g. "portable-net45+win8")
	Portable string `json:"portable,omitempty"`
}

// Exactly restricts a dependency to a single framework.
func Exactly(fw *Framework) Restriction {
	return Restriction{Framework: fw}
}

// Portable restricts a dependency to a portable profile.
func Portable(profile string) Restriction {
	return Restriction{Portable: profile}
}

// IsPortable reports whether this is the portable-profile variant.
func (r Restriction) IsPortable() bool {
	return r.Portable != ""
}

// Equal reports whether two restrictions denote the same predicate.
func (r Restriction) Equal(other Restriction) bool {
	if r.IsPortable() || other.IsPortable() {
		return r.Portable == other.Portable
	}
	return r.Framework.Equal(other.Framework)
}

func (r Restriction) String() string {
	if r.IsPortable() {
		return fmt.Sprintf("portable(%s)", r.Portable)
	}
	return fmt.Sprintf("== %s", r.Framework)
}
