package v2

import (
	"context"
	"sync"

	"github.com/yever/Paket/auth"
)

// Variant identifies one of the v2 version-listing protocol shapes.
type Variant string

const (
	// VariantFilter is the OData Packages?$filter=... shape.
	VariantFilter Variant = "odata-filter"
	// VariantFindPackagesById is the OData FindPackagesById() shape.
	VariantFindPackagesById Variant = "odata-find-packages-by-id"
	// VariantJSON is the package-versions JSON shape.
	VariantJSON Variant = "package-versions-json"
)

// Selector memoizes, per (credentials, feed URL) endpoint, which listing
// variant the feed answered last. Once an endpoint is bound to a variant,
// calls through any other variant are skipped without issuing a request.
//
// The map is shared mutable state read and written with compare-and-swap
// semantics; reading a stale binding costs at most one wasted call.
type Selector struct {
	bindings sync.Map // endpoint key → Variant
}

// NewSelector creates an empty selector.
func NewSelector() *Selector {
	return &Selector{}
}

// ListFunc is a version-listing call guarded by the selector.
type ListFunc func(ctx context.Context) ([]string, bool, error)

func endpointKey(creds auth.Credentials, feedURL string) string {
	return auth.Key(creds) + "|" + feedURL
}

// Guard runs list unless the endpoint is bound to a different variant, in
// which case it reports not-served immediately. A successful served outcome
// binds an unbound endpoint to this variant (the first binding wins when
// variants race); failures and not-served outcomes leave the binding
// unchanged.
func (s *Selector) Guard(ctx context.Context, creds auth.Credentials, feedURL string, variant Variant, list ListFunc) ([]string, bool, error) {
	key := endpointKey(creds, feedURL)

	if bound, ok := s.bindings.Load(key); ok && bound.(Variant) != variant {
		return nil, false, nil
	}

	versions, served, err := list(ctx)
	if served && err == nil {
		s.bindings.LoadOrStore(key, variant)
	}
	return versions, served, err
}

// Bound returns the variant the endpoint is bound to, if any.
func (s *Selector) Bound(creds auth.Credentials, feedURL string) (Variant, bool) {
	v, ok := s.bindings.Load(endpointKey(creds, feedURL))
	if !ok {
		return "", false
	}
	return v.(Variant), true
}
