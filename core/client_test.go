package core

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pakethttp "github.com/yever/Paket/http"
	"github.com/yever/Paket/nuget"
	"github.com/yever/Paket/version"
)

func newTestEnvironment(t *testing.T) *Environment {
	t.Helper()
	env, err := NewEnvironment(EnvironmentConfig{
		CacheDir: t.TempDir(),
		HTTPConfig: &pakethttp.Config{
			RetryConfig: &pakethttp.RetryConfig{MaxRetries: 0, InitialBackoff: 1, BackoffFactor: 1},
		},
	})
	require.NoError(t, err)
	return env
}

func entryXML(id, ver, downloadURL, published, dependencies string) string {
	return fmt.Sprintf(`<entry><title>%s</title>
<content type="application/zip" src="%s"/>
<properties><Id>%s</Id><Version>%s</Version><Published>%s</Published><Dependencies>%s</Dependencies></properties>
</entry>`, id, downloadURL, id, ver, published, dependencies)
}

// newODataFeed serves a minimal v2 feed for one package.
func newODataFeed(t *testing.T, id string, versions []string, downloadURL string, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}
		switch r.URL.Path {
		case "/Packages":
			filter := r.URL.Query().Get("$filter")
			if filter == fmt.Sprintf("Id eq '%s'", id) {
				page := `<feed xmlns="http://www.w3.org/2005/Atom"><title>Packages</title>`
				for _, v := range versions {
					page += fmt.Sprintf(`<entry><title>%s</title><properties><Version>%s</Version></properties></entry>`, id, v)
				}
				fmt.Fprint(w, page+`</feed>`)
				return
			}
			// Metadata query for a single version; like real feeds, the Id
			// comparison ignores case.
			for _, v := range versions {
				if strings.EqualFold(filter, fmt.Sprintf("Id eq '%s' and NormalizedVersion eq '%s'", id, v)) {
					fmt.Fprint(w, `<feed xmlns="http://www.w3.org/2005/Atom">`+
						entryXML(id, v, downloadURL, "2018-05-01T00:00:00Z", "Dep.One:1.0:net45")+`</feed>`)
					return
				}
			}
			http.NotFound(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestGetVersionsUnionsSources(t *testing.T) {
	feed := newODataFeed(t, "Foo.Bar", []string{"1.0.0", "1.1.0"}, "unused", nil)
	defer feed.Close()

	localDir := t.TempDir()
	writeLocalNupkg(t, filepath.Join(localDir, "Foo.Bar.1.1.0.nupkg"), "Foo.Bar")
	writeLocalNupkg(t, filepath.Join(localDir, "Foo.Bar.2.0.0.nupkg"), "Foo.Bar")

	client := NewClient(newTestEnvironment(t))
	versions, err := client.GetVersions(context.Background(), []nuget.PackageSource{
		nuget.RemoteSource{URL: feed.URL},
		nuget.LocalSource{Path: localDir},
	}, nuget.NewPackageName("Foo.Bar"))
	require.NoError(t, err)

	var texts []string
	for _, v := range versions {
		texts = append(texts, v.Normalize())
	}
	sort.Strings(texts)
	assert.Equal(t, []string{"1.0.0", "1.1.0", "2.0.0"}, texts, "results are unioned and de-duplicated")
}

func TestGetVersionsEmptyEverywhereFails(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer feed.Close()

	client := NewClient(newTestEnvironment(t))
	_, err := client.GetVersions(context.Background(), []nuget.PackageSource{
		nuget.RemoteSource{URL: feed.URL},
	}, nuget.NewPackageName("Absent"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), feed.URL, "diagnostic enumerates the sources attempted")
}

func TestGetVersionsBindsSelector(t *testing.T) {
	feed := newODataFeed(t, "Foo.Bar", []string{"1.0.0"}, "unused", nil)
	defer feed.Close()

	env := newTestEnvironment(t)
	client := NewClient(env)
	source := nuget.RemoteSource{URL: feed.URL}

	_, err := client.GetVersions(context.Background(), []nuget.PackageSource{source},
		nuget.NewPackageName("Foo.Bar"))
	require.NoError(t, err)

	_, bound := env.Selector.Bound(nil, feed.URL)
	assert.True(t, bound, "winning variant must be memoized for the endpoint")
}

func TestGetPackageDetails(t *testing.T) {
	feed := newODataFeed(t, "Foo.Bar", []string{"1.2.3"}, "https://cdn.example/foo.nupkg", nil)
	defer feed.Close()

	client := NewClient(newTestEnvironment(t))
	details, err := client.GetPackageDetails(context.Background(), false,
		[]nuget.PackageSource{nuget.RemoteSource{URL: feed.URL}},
		nuget.NewPackageName("foo.bar"), version.MustParse("1.2.3"))
	require.NoError(t, err)

	assert.Equal(t, "Foo.Bar", details.Name.String())
	assert.Equal(t, feed.URL, details.Source.String())
	assert.Equal(t, "https://cdn.example/foo.nupkg", details.DownloadLink.RemoteURL)
	assert.False(t, details.Unlisted)
	require.Len(t, details.DirectDependencies, 1)
	assert.Equal(t, "Dep.One", details.DirectDependencies[0].Name.String())
}

func TestGetPackageDetailsServedFromCacheWithoutNetwork(t *testing.T) {
	var requests atomic.Int32
	feed := newODataFeed(t, "Foo.Bar", []string{"1.2.3"}, "https://cdn.example/foo.nupkg", &requests)
	defer feed.Close()

	client := NewClient(newTestEnvironment(t))
	sources := []nuget.PackageSource{nuget.RemoteSource{URL: feed.URL}}
	name := nuget.NewPackageName("Foo.Bar")
	v := version.MustParse("1.2.3")

	first, err := client.GetPackageDetails(context.Background(), false, sources, name, v)
	require.NoError(t, err)
	after := requests.Load()
	require.Greater(t, after, int32(0))

	second, err := client.GetPackageDetails(context.Background(), false, sources, name, v)
	require.NoError(t, err)
	assert.Equal(t, after, requests.Load(), "a fresh cache entry answers without any network call")
	assert.Equal(t, first.DownloadLink, second.DownloadLink)
}

func TestGetPackageDetailsRefetchesStaleSchema(t *testing.T) {
	feed := newODataFeed(t, "Foo.Bar", []string{"1.2.3"}, "https://cdn.example/foo.nupkg", nil)
	defer feed.Close()

	env := newTestEnvironment(t)
	client := NewClient(env)
	name := nuget.NewPackageName("Foo.Bar")
	v := version.MustParse("1.2.3")

	stale := &nuget.PackageMetadata{
		PackageName:  name,
		SourceURL:    feed.URL,
		DownloadLink: nuget.RemoteLink("https://stale.example/old.nupkg"),
		CacheVersion: "1.0",
	}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(env.Cache.FilePath(name, v, feed.URL), data, 0o644))

	details, err := client.GetPackageDetails(context.Background(), false,
		[]nuget.PackageSource{nuget.RemoteSource{URL: feed.URL}}, name, v)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/foo.nupkg", details.DownloadLink.RemoteURL,
		"stale schema must be refetched")

	cached, ok := env.Cache.Read(name, v, feed.URL)
	require.True(t, ok)
	assert.Equal(t, nuget.CurrentCacheVersion, cached.CacheVersion, "refetch writes the new schema back")
}

func TestGetPackageDetailsStickyError(t *testing.T) {
	var healthy atomic.Bool
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `<feed xmlns="http://www.w3.org/2005/Atom">`+
			entryXML("Foo.Bar", "1.2.3", "https://cdn.example/foo.nupkg", "2018-05-01T00:00:00Z", "")+`</feed>`)
	}))
	defer server.Close()

	env := newTestEnvironment(t)
	client := NewClient(env)
	sources := []nuget.PackageSource{nuget.RemoteSource{URL: server.URL}}
	name := nuget.NewPackageName("Foo.Bar")
	v := version.MustParse("1.2.3")

	// First call fails against the broken feed and records the marker.
	_, err := client.GetPackageDetails(context.Background(), false, sources, name, v)
	require.Error(t, err)

	// GetPackageDetails clears markers on total failure so the next run can
	// retry; re-create the sticky state as a surviving marker.
	env.Cache.MarkFailure(name, v, server.URL, "HTTP 500 from feed")
	before := requests.Load()

	// Second call is blocked by the marker without any HTTP traffic.
	_, err = client.GetPackageDetails(context.Background(), false, sources, name, v)
	require.Error(t, err)
	sticky := requests.Load()
	assert.Equal(t, before, sticky, "sticky failure must short-circuit before HTTP")

	// Forcing retries, succeeds, and clears the marker.
	healthy.Store(true)
	details, err := client.GetPackageDetails(context.Background(), true, sources, name, v)
	require.NoError(t, err)
	assert.Equal(t, "Foo.Bar", details.Name.String())
	assert.Greater(t, requests.Load(), sticky)

	_, found := env.Cache.Failure(name, v, server.URL)
	assert.False(t, found, "success must delete the failure marker")
}

func TestGetPackageDetailsLocalSource(t *testing.T) {
	dir := t.TempDir()
	writeLocalNupkg(t, filepath.Join(dir, "Foo.Bar.1.0.0.nupkg"), "Foo.Bar")

	client := NewClient(newTestEnvironment(t))
	details, err := client.GetPackageDetails(context.Background(), false,
		[]nuget.PackageSource{nuget.LocalSource{Path: dir}},
		nuget.NewPackageName("Foo.Bar"), version.MustParse("1.0.0"))
	require.NoError(t, err)

	assert.True(t, details.DownloadLink.IsLocal())
	assert.Equal(t, dir, details.Source.String())
}

func TestDefaultLayout(t *testing.T) {
	name := nuget.NewPackageName("Foo.Bar")

	assert.Equal(t, filepath.Join("/work", "packages", "Foo.Bar"),
		DefaultLayout("/work", "", name, "1.0.0", false))
	assert.Equal(t, filepath.Join("/work", "packages", "Foo.Bar.1.0.0"),
		DefaultLayout("/work", "", name, "1.0.0", true))
	assert.Equal(t, filepath.Join("/work", "packages", "build", "Foo.Bar"),
		DefaultLayout("/work", "build", name, "1.0.0", false))
}

// writeLocalNupkg creates a minimal archive with an embedded nuspec.
func writeLocalNupkg(t *testing.T, path, id string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	w := zip.NewWriter(f)
	entry, err := w.Create(id + ".nuspec")
	require.NoError(t, err)
	_, err = entry.Write([]byte(`<package><metadata><id>` + id + `</id><version>1.0.0</version></metadata></package>`))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}
