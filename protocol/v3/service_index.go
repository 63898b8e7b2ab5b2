package v3

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yever/Paket/auth"
	pakethttp "github.com/yever/Paket/http"
)

// ServiceIndexClient provides access to a v3 feed's service index.
type ServiceIndexClient struct {
	httpClient *pakethttp.Client

	mu    sync.RWMutex
	cache map[string]*cachedServiceIndex
}

type cachedServiceIndex struct {
	index     *ServiceIndex
	expiresAt time.Time
}

// NewServiceIndexClient creates a new service index client.
func NewServiceIndexClient(httpClient *pakethttp.Client) *ServiceIndexClient {
	return &ServiceIndexClient{
		httpClient: httpClient,
		cache:      make(map[string]*cachedServiceIndex),
	}
}

// GetServiceIndex retrieves the service index for a source URL, caching the
// result for ServiceIndexCacheTTL.
func (c *ServiceIndexClient) GetServiceIndex(ctx context.Context, creds auth.Credentials, sourceURL string) (*ServiceIndex, error) {
	c.mu.RLock()
	cached, ok := c.cache[sourceURL]
	c.mu.RUnlock()

	if ok && time.Now().Before(cached.expiresAt) {
		return cached.index, nil
	}

	index, err := c.fetchServiceIndex(ctx, creds, sourceURL)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[sourceURL] = &cachedServiceIndex{
		index:     index,
		expiresAt: time.Now().Add(ServiceIndexCacheTTL),
	}
	c.mu.Unlock()

	return index, nil
}

func (c *ServiceIndexClient) fetchServiceIndex(ctx context.Context, creds auth.Credentials, sourceURL string) (*ServiceIndex, error) {
	indexURL := sourceURL
	if !strings.HasSuffix(indexURL, "index.json") {
		if !strings.HasSuffix(indexURL, "/") {
			indexURL += "/"
		}
		indexURL += "index.json"
	}

	req, err := http.NewRequest("GET", indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	auth.Apply(req, creds)

	resp, err := c.httpClient.DoWithRetry(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch service index: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("service index returned %d: %s", resp.StatusCode, body)
	}

	var index ServiceIndex
	if err := json.NewDecoder(resp.Body).Decode(&index); err != nil {
		return nil, fmt.Errorf("decode service index: %w", err)
	}

	return &index, nil
}

// GetResourceURL finds the first resource of the given type, matching
// version-suffixed types (e.g. "SearchQueryService/3.5.0") as well.
func (c *ServiceIndexClient) GetResourceURL(ctx context.Context, creds auth.Credentials, sourceURL, resourceType string) (string, error) {
	index, err := c.GetServiceIndex(ctx, creds, sourceURL)
	if err != nil {
		return "", err
	}

	for _, resource := range index.Resources {
		if matchesResourceType(resource.Type, resourceType) {
			return resource.ID, nil
		}
	}

	return "", fmt.Errorf("resource type %q not found in service index", resourceType)
}

// matchesResourceType matches a resource type ignoring version suffixes.
func matchesResourceType(actual, requested string) bool {
	if actual == requested {
		return true
	}
	return strings.HasPrefix(actual, requested+"/")
}

// ClearCache removes all cached service indexes.
func (c *ServiceIndexClient) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[string]*cachedServiceIndex)
	c.mu.Unlock()
}
