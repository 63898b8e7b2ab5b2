// Package frameworks provides Target Framework Moniker (TFM) parsing and
// the framework restrictions attached to package dependencies.
//
// Example:
//
//	fw, err := frameworks.ParseFramework("net45")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(fw.Identifier, fw.Version) // .NETFramework 4.5
package frameworks

import (
	"fmt"
	"strings"
)

// Framework represents a parsed Target Framework Moniker.
type Framework struct {
	// Moniker is the TFM as written on the feed (e.g. "net45")
	Moniker string `json:"moniker"`

	// Identifier is the canonical framework identifier (e.g. ".NETFramework")
	Identifier string `json:"identifier"`

	// Version is the dotted framework version (e.g. "4.5"), empty if none
	Version string `json:"version,omitempty"`
}

// String returns the moniker as written.
func (fw *Framework) String() string {
	return fw.Moniker
}

// Equal reports whether two frameworks have the same identifier and version.
func (fw *Framework) Equal(other *Framework) bool {
	if fw == nil || other == nil {
		return fw == other
	}
	return fw.Identifier == other.Identifier && fw.Version == other.Version
}

// identifierPrefixes maps moniker prefixes to canonical identifiers.
// Longer prefixes are tried first. Versions follow the prefix either dotted
// ("netcoreapp3.1") or compact ("net472" → 4.7.2).
var identifierPrefixes = []struct {
	prefix     string
	identifier string
}{
	{"netstandard", ".NETStandard"},
	{"netcoreapp", ".NETCoreApp"},
	{"netmicro", ".NETMicroFramework"},
	{"monoandroid", "MonoAndroid"},
	{"monotouch", "MonoTouch"},
	{"monomac", "MonoMac"},
	{"xamarinios", "Xamarin.iOS"},
	{"xamarinmac", "Xamarin.Mac"},
	{"wpa", "WindowsPhoneApp"},
	{"wp", "WindowsPhone"},
	{"sl", "Silverlight"},
	{"win", "Windows"},
	{"uap", "UAP"},
	{"tizen", "Tizen"},
	{"native", "native"},
	{"net", ".NETFramework"},
}

// ParseFramework parses a TFM into a Framework.
//
// "net5.0" and later map to .NETCoreApp the way modern NuGet clients treat
// them; "net472" style compact versions expand digit-wise (4.7.2). Returns an
// error for monikers it cannot identify; callers decide whether that is fatal.
func ParseFramework(tfm string) (*Framework, error) {
	s := strings.ToLower(strings.TrimSpace(tfm))
	if s == "" {
		return nil, fmt.Errorf("framework moniker cannot be empty")
	}
	if strings.HasPrefix(s, "portable-") {
		return nil, fmt.Errorf("portable profile %q is not a single framework", tfm)
	}
	// A platform suffix like net6.0-windows10.0 only matters for asset
	// selection; the dependency restriction keeps the base framework.
	if i := strings.IndexByte(s, '-'); i > 0 && strings.ContainsAny(s[:i], "0123456789") {
		s = s[:i]
	}

	for _, p := range identifierPrefixes {
		if !strings.HasPrefix(s, p.prefix) {
			continue
		}
		rest := s[len(p.prefix):]
		if rest != "" && !isVersionText(rest) {
			continue
		}

		fw := &Framework{Moniker: tfm, Identifier: p.identifier}
		switch {
		case rest == "":
		case strings.Contains(rest, "."):
			fw.Version = rest
			// net5.0+ is the .NETCoreApp lineage under a short name
			if p.identifier == ".NETFramework" {
				fw.Identifier = ".NETCoreApp"
			}
		default:
			fw.Version = expandCompactVersion(rest)
		}
		return fw, nil
	}

	return nil, fmt.Errorf("unknown framework moniker: %q", tfm)
}

// MustParseFramework parses a TFM and panics on error.
func MustParseFramework(tfm string) *Framework {
	fw, err := ParseFramework(tfm)
	if err != nil {
		panic(err)
	}
	return fw
}

func isVersionText(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && c != '.' {
			return false
		}
	}
	return true
}

// expandCompactVersion turns "45" into "4.5" and "472" into "4.7.2".
func expandCompactVersion(s string) string {
	parts := make([]string, 0, len(s))
	for _, c := range s {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ".")
}
