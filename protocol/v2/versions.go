package v2

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yever/Paket/auth"
	pakethttp "github.com/yever/Paket/http"
	"github.com/yever/Paket/nuget"
)

// Client provides v2 feed access.
type Client struct {
	httpClient *pakethttp.Client
}

// NewClient creates a new v2 feed client.
func NewClient(httpClient *pakethttp.Client) *Client {
	return &Client{httpClient: httpClient}
}

// ListVersionsViaFilter lists package versions through the OData
// Packages?$filter=Id eq '...' endpoint. The served flag is false when the
// feed does not answer this protocol shape.
func (c *Client) ListVersionsViaFilter(ctx context.Context, creds auth.Credentials, feedURL string, name nuget.PackageName) ([]string, bool, error) {
	query := url.Values{}
	query.Set("$filter", fmt.Sprintf("Id eq '%s'", name))
	pageURL := fmt.Sprintf("%sPackages?%s", ensureTrailingSlash(feedURL), query.Encode())

	return c.collectPages(ctx, creds, feedURL, pageURL)
}

// ListVersionsViaFindPackagesById lists package versions through the OData
// FindPackagesById() endpoint. Same pagination contract as the filter form.
func (c *Client) ListVersionsViaFindPackagesById(ctx context.Context, creds auth.Credentials, feedURL string, name nuget.PackageName) ([]string, bool, error) {
	query := url.Values{}
	query.Set("id", fmt.Sprintf("'%s'", name))
	pageURL := fmt.Sprintf("%sFindPackagesById()?%s", ensureTrailingSlash(feedURL), query.Encode())

	return c.collectPages(ctx, creds, feedURL, pageURL)
}

// ListVersionsViaJSON lists package versions through the fast
// package-versions JSON endpoint. Any non-2xx status or undecodable body
// means the endpoint is not served.
func (c *Client) ListVersionsViaJSON(ctx context.Context, creds auth.Credentials, feedURL string, name nuget.PackageName) ([]string, bool, error) {
	versionsURL := fmt.Sprintf("%spackage-versions/%s?includePrerelease=true",
		ensureTrailingSlash(feedURL), url.PathEscape(name.String()))

	req, err := http.NewRequest("GET", versionsURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	auth.Apply(req, creds)

	resp, err := c.httpClient.DoWithRetry(ctx, req)
	if err != nil {
		return nil, false, nuget.NetworkError(feedURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false, nil
	}

	var versions []string
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return nil, false, nil
	}

	return versions, true, nil
}

// collectPages fetches an OData feed page, extracts entry versions, and
// follows every rel="next" link in parallel, concatenating the results.
func (c *Client) collectPages(ctx context.Context, creds auth.Credentials, feedURL, pageURL string) ([]string, bool, error) {
	feed, served, err := c.fetchPage(ctx, creds, feedURL, pageURL)
	if err != nil || !served {
		return nil, false, err
	}

	versions := make([]string, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if v := entry.Properties.Version; v != "" {
			versions = append(versions, v)
		}
	}

	nextLinks := feed.NextLinks()
	if len(nextLinks) == 0 {
		return versions, true, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	pages := make([][]string, len(nextLinks))
	for i, link := range nextLinks {
		i, link := i, link
		g.Go(func() error {
			more, moreServed, err := c.collectPages(ctx, creds, feedURL, link)
			if err != nil {
				return err
			}
			if !moreServed {
				return nuget.ProtocolError(feedURL, fmt.Errorf("next page %s not served", link))
			}
			pages[i] = more
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	for _, page := range pages {
		versions = append(versions, page...)
	}
	return versions, true, nil
}

// fetchPage retrieves and decodes one Atom page. A non-2xx status means the
// protocol shape is not served here; an undecodable 2xx body is a protocol
// error.
func (c *Client) fetchPage(ctx context.Context, creds auth.Credentials, feedURL, pageURL string) (*Feed, bool, error) {
	req, err := http.NewRequest("GET", pageURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/atom+xml")
	auth.Apply(req, creds)

	resp, err := c.httpClient.DoWithRetry(ctx, req)
	if err != nil {
		return nil, false, nuget.NetworkError(feedURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, nuget.NetworkError(feedURL, err)
	}

	var feed Feed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, false, nuget.ProtocolError(feedURL, fmt.Errorf("decode feed page: %w", err))
	}

	return &feed, true, nil
}

func ensureTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
