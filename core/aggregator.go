package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yever/Paket/nuget"
	"github.com/yever/Paket/protocol/local"
	v2 "github.com/yever/Paket/protocol/v2"
	v3 "github.com/yever/Paket/protocol/v3"
	"github.com/yever/Paket/version"
)

// GetVersions lists every version of a package available across the
// configured sources. Remote sources race their protocol variants with
// first-successful-non-empty-outcome wins; all sources are queried in
// parallel and the union is de-duplicated by version identity. An empty
// result across every source is an error naming each source attempted.
func (c *Client) GetVersions(ctx context.Context, sources []nuget.PackageSource, name nuget.PackageName) ([]*version.SemVer, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no package sources configured")
	}

	results := make([][]string, len(sources))
	g, gctx := errgroup.WithContext(ctx)

	for i, source := range sources {
		i, source := i, source
		g.Go(func() error {
			versions, err := c.versionsFromSource(gctx, source, name)
			if err != nil {
				return err
			}
			results[i] = versions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	unique := make(map[string]*version.SemVer)
	for _, versions := range results {
		for _, text := range versions {
			v, err := version.Parse(text)
			if err != nil {
				c.env.Logger.Debug("Skipping unparseable version {Version} of {PackageName}", text, name)
				continue
			}
			if _, seen := unique[v.Normalize()]; !seen {
				unique[v.Normalize()] = v
			}
		}
	}

	if len(unique) == 0 {
		return nil, fmt.Errorf("no versions of %s found on any source: %s",
			name, describeSources(sources))
	}

	out := make([]*version.SemVer, 0, len(unique))
	for _, v := range unique {
		out = append(out, v)
	}
	return out, nil
}

// versionsFromSource runs one source's listing. Local sources are a single
// call; remote sources race every applicable variant.
func (c *Client) versionsFromSource(ctx context.Context, source nuget.PackageSource, name nuget.PackageName) ([]string, error) {
	switch s := source.(type) {
	case nuget.LocalSource:
		return local.ListVersions(s.Path, name)
	case nuget.RemoteSource:
		versions, _ := c.raceRemoteVariants(ctx, s, name)
		return versions, nil
	default:
		return nil, fmt.Errorf("unknown package source %T", source)
	}
}

// raceRemoteVariants launches the v2 listing variants (guarded by the
// protocol selector) plus a v3 attempt when the feed advertises a service
// index, and returns the first successful non-empty-outcome winner.
// Cancellation of the losers is best effort: pending requests may complete
// but their results are discarded.
func (c *Client) raceRemoteVariants(ctx context.Context, source nuget.RemoteSource, name nuget.PackageName) ([]string, bool) {
	type attempt func(context.Context) ([]string, bool, error)

	guarded := func(variant v2.Variant, list v2.ListFunc) attempt {
		return func(ctx context.Context) ([]string, bool, error) {
			return c.env.Selector.Guard(ctx, source.Auth, source.URL, variant, list)
		}
	}

	attempts := []attempt{
		guarded(v2.VariantJSON, func(ctx context.Context) ([]string, bool, error) {
			return c.v2.ListVersionsViaJSON(ctx, source.Auth, source.URL, name)
		}),
		guarded(v2.VariantFilter, func(ctx context.Context) ([]string, bool, error) {
			return c.v2.ListVersionsViaFilter(ctx, source.Auth, source.URL, name)
		}),
		guarded(v2.VariantFindPackagesById, func(ctx context.Context) ([]string, bool, error) {
			return c.v2.ListVersionsViaFindPackagesById(ctx, source.Auth, source.URL, name)
		}),
	}
	if v3.IsServiceIndexURL(source.URL) {
		attempts = append(attempts, func(ctx context.Context) ([]string, bool, error) {
			return c.v3.ListVersions(ctx, source.Auth, source.URL, name)
		})
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		versions []string
	}
	won := make(chan outcome, len(attempts))
	var pending sync.WaitGroup

	for _, run := range attempts {
		run := run
		pending.Add(1)
		go func() {
			defer pending.Done()
			versions, served, err := run(raceCtx)
			if err != nil {
				c.env.Logger.DebugContext(raceCtx, "Version listing variant failed on {Source}: {Error}",
					source.URL, err)
				return
			}
			if served {
				won <- outcome{versions: versions}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		pending.Wait()
		close(done)
	}()

	select {
	case first := <-won:
		cancel()
		return first.versions, true
	case <-done:
		// Every variant lost; a late winner may still sit in the buffer.
		select {
		case first := <-won:
			return first.versions, true
		default:
			return nil, false
		}
	case <-ctx.Done():
		return nil, false
	}
}

func describeSources(sources []nuget.PackageSource) string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}
