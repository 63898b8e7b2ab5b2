package v2

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/yever/Paket/auth"
	"github.com/yever/Paket/nuget"
	"github.com/yever/Paket/version"
)

// FetchMetadata retrieves authoritative metadata for a single package
// version.
//
// It first attempts the fast $filter query against the normalized version,
// retrying with the raw version on failure, and falls back to the canonical
// Packages(Id=...,Version=...) addressing (bare, then under /odata/) when
// the fast form fails entirely.
func (c *Client) FetchMetadata(ctx context.Context, creds auth.Credentials, feedURL string, name nuget.PackageName, ver *version.SemVer) (*nuget.PackageMetadata, error) {
	base := ensureTrailingSlash(feedURL)

	attempts := []string{
		filterURL(base, fmt.Sprintf("Id eq '%s' and NormalizedVersion eq '%s'", name, ver.Normalize())),
		filterURL(base, fmt.Sprintf("Id eq '%s' and Version eq '%s'", name, ver)),
		fmt.Sprintf("%sPackages(Id='%s',Version='%s')", base, url.QueryEscape(name.String()), url.QueryEscape(ver.String())),
		fmt.Sprintf("%sodata/Packages(Id='%s',Version='%s')", base, url.QueryEscape(name.String()), url.QueryEscape(ver.String())),
	}

	var errs []error
	for _, attemptURL := range attempts {
		meta, err := c.fetchEntry(ctx, creds, feedURL, attemptURL, name, ver)
		if err == nil {
			return meta, nil
		}
		errs = append(errs, err)
	}

	return nil, nuget.NewFeedError(nuget.KindNotFound, feedURL,
		fmt.Errorf("no metadata for %s %s: %w", name, ver, errors.Join(errs...)))
}

func filterURL(base, filter string) string {
	query := url.Values{}
	query.Set("$filter", filter)
	return base + "Packages?" + query.Encode()
}

func (c *Client) fetchEntry(ctx context.Context, creds auth.Credentials, feedURL, entryURL string, name nuget.PackageName, ver *version.SemVer) (*nuget.PackageMetadata, error) {
	req, err := http.NewRequest("GET", entryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/atom+xml")
	auth.Apply(req, creds)

	resp, err := c.httpClient.DoWithRetry(ctx, req)
	if err != nil {
		return nil, nuget.NetworkError(feedURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nuget.NotFoundError(feedURL, name, ver.String())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, nuget.ProtocolError(feedURL,
			fmt.Errorf("metadata query returned %d: %s", resp.StatusCode, body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nuget.NetworkError(feedURL, err)
	}

	return ParseEntry(body, feedURL, name, ver)
}
