package nuget

import (
	"errors"
	"fmt"
)

// ErrorKind classifies feed failures. Kinds drive caller behavior: racing
// peers convert per-source failures to empty outcomes, while universal
// failures surface as diagnostics enumerating every source attempted.
type ErrorKind int

const (
	// KindNetwork marks transient transport failures.
	KindNetwork ErrorKind = iota
	// KindProtocol marks responses that could not be parsed.
	KindProtocol
	// KindNotFound marks a package or version absent from a source.
	KindNotFound
	// KindCache marks metadata cache read/write failures (swallowed).
	KindCache
	// KindSticky marks a persisted failure blocking refetch until forced.
	KindSticky
	// KindExtraction marks corrupt or fake archives.
	KindExtraction
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindProtocol:
		return "protocol"
	case KindNotFound:
		return "not found"
	case KindCache:
		return "cache"
	case KindSticky:
		return "sticky"
	case KindExtraction:
		return "extraction"
	default:
		return "unknown"
	}
}

// FeedError carries a failure kind together with the source it happened on.
type FeedError struct {
	Kind   ErrorKind
	Source string
	Err    error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("%s error from %s: %v", e.Kind, e.Source, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// NewFeedError wraps err with a kind and source.
func NewFeedError(kind ErrorKind, source string, err error) *FeedError {
	return &FeedError{Kind: kind, Source: source, Err: err}
}

// NetworkError marks a transient transport failure on source.
func NetworkError(source string, err error) *FeedError {
	return NewFeedError(KindNetwork, source, err)
}

// ProtocolError marks an unparseable response from source.
func ProtocolError(source string, err error) *FeedError {
	return NewFeedError(KindProtocol, source, err)
}

// NotFoundError marks name/version as absent from source.
func NotFoundError(source string, name PackageName, versionText string) *FeedError {
	return NewFeedError(KindNotFound, source,
		fmt.Errorf("package %s %s not found", name, versionText))
}

// IsKind reports whether err carries the given feed error kind.
func IsKind(err error, kind ErrorKind) bool {
	var fe *FeedError
	return errors.As(err, &fe) && fe.Kind == kind
}
