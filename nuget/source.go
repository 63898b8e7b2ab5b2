package nuget

import "github.com/yever/Paket/auth"

// PackageSource is a configured origin of packages: a remote NuGet feed or
// a local directory.
type PackageSource interface {
	// String returns the display form used in diagnostics.
	String() string
}

// RemoteSource is a NuGet feed addressed by URL, optionally authenticated.
type RemoteSource struct {
	URL  string
	Auth auth.Credentials
}

func (s RemoteSource) String() string {
	return s.URL
}

// LocalSource is a directory of .nupkg files.
type LocalSource struct {
	Path string
}

func (s LocalSource) String() string {
	return s.Path
}
