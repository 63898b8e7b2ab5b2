package v3

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yever/Paket/auth"
	pakethttp "github.com/yever/Paket/http"
	"github.com/yever/Paket/nuget"
)

const (
	// searchPageSize is how many packages one search page returns.
	searchPageSize = 1000

	// maxSearchResults bounds internal pagination.
	maxSearchResults = 100_000
)

// Client lists package versions through the v3 search service.
type Client struct {
	httpClient   *pakethttp.Client
	serviceIndex *ServiceIndexClient
}

// NewClient creates a new v3 client.
func NewClient(httpClient *pakethttp.Client) *Client {
	return &Client{
		httpClient:   httpClient,
		serviceIndex: NewServiceIndexClient(httpClient),
	}
}

// ListVersions lists all versions of a package by querying the feed's
// search service, paging through results until the package is found or the
// result set is exhausted (capped at 100 000 packages). The served flag is
// false on network errors and when the search finds nothing: racing V2
// variants may still answer.
func (c *Client) ListVersions(ctx context.Context, creds auth.Credentials, sourceURL string, name nuget.PackageName) ([]string, bool, error) {
	searchURL, err := c.serviceIndex.GetResourceURL(ctx, creds, sourceURL, ResourceTypeSearchQueryService)
	if err != nil {
		return nil, false, nuget.NetworkError(sourceURL, err)
	}

	key := name.CompareKey()

	for skip := 0; skip < maxSearchResults; skip += searchPageSize {
		page, err := c.searchPage(ctx, creds, searchURL, name, skip)
		if err != nil {
			return nil, false, err
		}
		if len(page.Data) == 0 {
			break
		}

		for _, item := range page.Data {
			if nuget.NewPackageName(item.ID).CompareKey() != key {
				continue
			}
			versions := make([]string, 0, len(item.Versions))
			for _, v := range item.Versions {
				if v.Version != "" {
					versions = append(versions, v.Version)
				}
			}
			if len(versions) == 0 && item.Version != "" {
				versions = append(versions, item.Version)
			}
			if len(versions) == 0 {
				return nil, false, nil
			}
			return versions, true, nil
		}

		if skip+searchPageSize >= page.TotalHits {
			break
		}
	}

	return nil, false, nil
}

func (c *Client) searchPage(ctx context.Context, creds auth.Credentials, searchURL string, name nuget.PackageName, skip int) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("q", name.String())
	params.Set("skip", strconv.Itoa(skip))
	params.Set("take", strconv.Itoa(searchPageSize))
	params.Set("prerelease", "true")
	params.Set("semVerLevel", "2.0.0")

	req, err := http.NewRequest("GET", searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	auth.Apply(req, creds)

	resp, err := c.httpClient.DoWithRetry(ctx, req)
	if err != nil {
		return nil, nuget.NetworkError(searchURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nuget.NetworkError(searchURL,
			fmt.Errorf("search returned %d", resp.StatusCode))
	}

	var page SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, nuget.ProtocolError(searchURL, fmt.Errorf("decode search response: %w", err))
	}

	return &page, nil
}

// IsServiceIndexURL reports whether a source URL follows the v3
// service-index convention and therefore advertises a search endpoint.
func IsServiceIndexURL(sourceURL string) bool {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Path, "index.json")
}
