package nuget

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yever/Paket/frameworks"
	"github.com/yever/Paket/version"
)

func TestPackageNameEquality(t *testing.T) {
	a := NewPackageName("Newtonsoft.Json")
	b := NewPackageName("newtonsoft.json")

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.CompareKey(), b.CompareKey())
	assert.Equal(t, "Newtonsoft.Json", a.String(), "original casing is preserved")
}

func TestPackageNameJSONKeepsCasing(t *testing.T) {
	data, err := json.Marshal(NewPackageName("FooBar"))
	require.NoError(t, err)
	assert.Equal(t, `"FooBar"`, string(data))

	var back PackageName
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "FooBar", back.String())
}

func TestDownloadLinkVariants(t *testing.T) {
	remote := RemoteLink("https://feed.example/package/Foo/1.0.0")
	assert.False(t, remote.IsLocal())

	local := LocalLink("/feeds/Foo.1.0.0.nupkg")
	assert.True(t, local.IsLocal())
	assert.Equal(t, "/feeds/Foo.1.0.0.nupkg", local.String())
}

func TestMetadataSerializationIsDeterministic(t *testing.T) {
	meta := &PackageMetadata{
		PackageName:  NewPackageName("FooBar"),
		SourceURL:    "https://feed.example/api/v2",
		DownloadLink: RemoteLink("https://feed.example/package/FooBar/1.2.3"),
		LicenseURL:   "https://feed.example/license",
		Dependencies: []Dependency{
			{
				Name:         NewPackageName("Newtonsoft.Json"),
				Requirement:  version.MustParseRequirement("9.0.1"),
				Restrictions: []frameworks.Restriction{frameworks.Exactly(frameworks.MustParseFramework("net45"))},
			},
		},
		CacheVersion: CurrentCacheVersion,
	}

	first, err := json.Marshal(meta)
	require.NoError(t, err)
	second, err := json.Marshal(meta)
	require.NoError(t, err)
	assert.Equal(t, first, second, "serialization must be byte-stable")

	var back PackageMetadata
	require.NoError(t, json.Unmarshal(first, &back))
	assert.Equal(t, "FooBar", back.PackageName.String())
	assert.Equal(t, CurrentCacheVersion, back.CacheVersion)
	require.Len(t, back.Dependencies, 1)
	assert.True(t, back.Dependencies[0].Requirement.IsPinned())
}

func TestMagicUnlistingDate(t *testing.T) {
	assert.Equal(t, 1900, MagicUnlistingDate.Year())
	assert.Equal(t, "1900-01-01T00:00:00Z", MagicUnlistingDate.Format("2006-01-02T15:04:05Z"))
}
