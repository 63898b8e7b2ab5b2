package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yever/Paket/auth"
	"github.com/yever/Paket/nuget"
	"github.com/yever/Paket/protocol/local"
	"github.com/yever/Paket/version"
)

// GetPackageDetails resolves authoritative metadata for one package version
// by querying every source in parallel and returning the first success.
// On total failure it clears any sticky failure markers (so the next run
// retries from scratch) and reports a diagnostic enumerating every source.
func (c *Client) GetPackageDetails(ctx context.Context, force bool, sources []nuget.PackageSource, name nuget.PackageName, ver *version.SemVer) (*PackageDetails, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no package sources configured")
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type answer struct {
		source nuget.PackageSource
		meta   *nuget.PackageMetadata
	}
	won := make(chan answer, len(sources))
	failures := make([]error, len(sources))
	var pending sync.WaitGroup

	for i, source := range sources {
		i, source := i, source
		pending.Add(1)
		go func() {
			defer pending.Done()
			meta, err := c.detailsFromSource(raceCtx, force, source, name, ver)
			if err != nil {
				failures[i] = err
				return
			}
			won <- answer{source: source, meta: meta}
		}()
	}

	done := make(chan struct{})
	go func() {
		pending.Wait()
		close(done)
	}()

	var winner answer
	select {
	case winner = <-won:
		cancel()
	case <-done:
		select {
		case winner = <-won:
		default:
			for _, source := range sources {
				if remote, ok := source.(nuget.RemoteSource); ok {
					c.env.Cache.ClearFailure(name, ver, remote.URL)
				}
			}
			return nil, detailsDiagnostic(sources, failures, name, ver)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &PackageDetails{
		Name:               winner.meta.PackageName,
		Source:             winner.source,
		DownloadLink:       winner.meta.DownloadLink,
		Unlisted:           winner.meta.Unlisted,
		LicenseURL:         winner.meta.LicenseURL,
		DirectDependencies: winner.meta.Dependencies,
	}, nil
}

func (c *Client) detailsFromSource(ctx context.Context, force bool, source nuget.PackageSource, name nuget.PackageName, ver *version.SemVer) (*nuget.PackageMetadata, error) {
	switch s := source.(type) {
	case nuget.LocalSource:
		// The archive itself is the source of truth; no JSON cache.
		return local.FetchMetadata(s.Path, name, ver)
	case nuget.RemoteSource:
		meta, _, err := c.detailsFromFeed(ctx, force, s.Auth, s.URL, name, ver)
		return meta, err
	default:
		return nil, fmt.Errorf("unknown package source %T", source)
	}
}

// detailsFromFeed loads metadata for one feed through the disk cache.
//
// A sticky failure marker short-circuits the attempt unless force is set.
// A cache file with the current schema answers without any network call;
// anything else refetches via the v2 OData shapes. Fresh results are
// persisted best-effort, and failures are appended to the sticky marker.
func (c *Client) detailsFromFeed(ctx context.Context, force bool, creds auth.Credentials, feedURL string, name nuget.PackageName, ver *version.SemVer) (meta *nuget.PackageMetadata, cached bool, err error) {
	if !force {
		if diagnostic, found := c.env.Cache.Failure(name, ver, feedURL); found {
			return nil, false, nuget.NewFeedError(nuget.KindSticky, feedURL,
				fmt.Errorf("previous attempts failed:\n%s", strings.TrimSpace(diagnostic)))
		}
	}

	meta, cached, err = c.loadFromCacheOrFeed(ctx, force, creds, feedURL, name, ver)
	if err != nil {
		// A cancelled attempt just lost the race to another source; only
		// genuine feed failures become sticky.
		if !errors.Is(err, context.Canceled) {
			c.env.Cache.MarkFailure(name, ver, feedURL, err.Error())
		}
		return nil, false, err
	}

	c.env.Cache.ClearFailure(name, ver, feedURL)
	if !cached {
		if writeErr := c.env.Cache.Write(meta, name, ver, feedURL); writeErr != nil {
			// Best-effort accelerator: a failed write only costs a refetch.
			c.env.Logger.DebugContext(ctx, "Cannot cache metadata for {PackageName} {Version}: {Error}",
				name, ver, writeErr)
		}
	}

	return meta, cached, nil
}

func (c *Client) loadFromCacheOrFeed(ctx context.Context, force bool, creds auth.Credentials, feedURL string, name nuget.PackageName, ver *version.SemVer) (*nuget.PackageMetadata, bool, error) {
	if !force {
		if meta, ok := c.env.Cache.Read(name, ver, feedURL); ok {
			c.env.Logger.VerboseContext(ctx, "Metadata for {PackageName} {Version} served from cache", name, ver)
			return meta, true, nil
		}
	}

	meta, err := c.v2.FetchMetadata(ctx, creds, feedURL, name, ver)
	if err != nil {
		return nil, false, err
	}
	return meta, false, nil
}

func detailsDiagnostic(sources []nuget.PackageSource, failures []error, name nuget.PackageName, ver *version.SemVer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "could not get package details for %s %s from any source:", name, ver)
	for i, source := range sources {
		fmt.Fprintf(&sb, "\n  %s", source)
		if failures[i] != nil {
			fmt.Fprintf(&sb, ": %v", failures[i])
		}
	}
	return fmt.Errorf("%s", sb.String())
}
