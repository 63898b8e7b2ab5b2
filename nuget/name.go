// Package nuget defines the canonical records of the package acquisition
// core: package names, metadata, download links and configured sources.
package nuget

import "strings"

// PackageName is a case-preserving package identifier. Feeds are
// case-insensitive, so equality and hashing use a lowercase compare key
// while the original casing is kept for display and file names.
type PackageName struct {
	name string
}

// NewPackageName creates a package name, preserving the given casing.
func NewPackageName(name string) PackageName {
	return PackageName{name: name}
}

// String returns the name in its original casing.
func (n PackageName) String() string {
	return n.name
}

// CompareKey returns the lowercase key used for equality and map lookups.
func (n PackageName) CompareKey() string {
	return strings.ToLower(n.name)
}

// Equal reports whether two names identify the same package.
func (n PackageName) Equal(other PackageName) bool {
	return n.CompareKey() == other.CompareKey()
}

// IsEmpty reports whether the name is blank.
func (n PackageName) IsEmpty() bool {
	return n.name == ""
}

// MarshalText serializes the name with its original casing.
func (n PackageName) MarshalText() ([]byte, error) {
	return []byte(n.name), nil
}

// UnmarshalText restores a name from its serialized form.
func (n *PackageName) UnmarshalText(text []byte) error {
	n.name = string(text)
	return nil
}
