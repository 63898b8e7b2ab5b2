package packaging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNuspec = `<?xml version="1.0"?>
<package xmlns="http://schemas.microsoft.com/packaging/2013/05/nuspec.xsd">
  <metadata>
    <id>Foo.Bar</id>
    <version>1.2.3</version>
    <authors>Somebody</authors>
    <licenseUrl>https://example.com/license</licenseUrl>
    <dependencies>
      <group targetFramework="net45">
        <dependency id="Newtonsoft.Json" version="9.0.1" />
      </group>
      <group targetFramework="portable-net45+win8">
        <dependency id="Portable.Sample" version="1.0" />
      </group>
      <group>
        <dependency id="NuGet.Core" />
      </group>
    </dependencies>
  </metadata>
</package>`

func TestParseNuspec(t *testing.T) {
	spec, err := ParseNuspec(strings.NewReader(sampleNuspec))
	require.NoError(t, err)

	assert.Equal(t, "Foo.Bar", spec.Metadata.ID)
	assert.Equal(t, "1.2.3", spec.Metadata.Version)
	assert.Equal(t, "https://example.com/license", spec.Metadata.LicenseURL)
}

func TestPackageDependencies(t *testing.T) {
	spec, err := ParseNuspec(strings.NewReader(sampleNuspec))
	require.NoError(t, err)

	deps, err := spec.PackageDependencies()
	require.NoError(t, err)
	require.Len(t, deps, 3)

	byName := map[string]int{}
	for i, d := range deps {
		byName[d.Name.String()] = i
	}

	newtonsoft := deps[byName["Newtonsoft.Json"]]
	assert.True(t, newtonsoft.Requirement.IsPinned())
	require.Len(t, newtonsoft.Restrictions, 1)
	assert.Equal(t, ".NETFramework", newtonsoft.Restrictions[0].Framework.Identifier)

	portable := deps[byName["Portable.Sample"]]
	require.Len(t, portable.Restrictions, 1)
	assert.Equal(t, "portable-net45+win8", portable.Restrictions[0].Portable)

	core := deps[byName["NuGet.Core"]]
	assert.True(t, core.Requirement.IsUnbounded())
	assert.Empty(t, core.Restrictions)
}

func TestParseNuspecLegacyFlatDependencies(t *testing.T) {
	doc := `<package><metadata><id>Old</id><version>1.0</version>
  <dependencies><dependency id="A" version="2.0" /></dependencies>
</metadata></package>`

	spec, err := ParseNuspec(strings.NewReader(doc))
	require.NoError(t, err)

	deps, err := spec.PackageDependencies()
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "A", deps[0].Name.String())
	assert.Empty(t, deps[0].Restrictions)
}

func TestParseNuspecRejectsMissingID(t *testing.T) {
	_, err := ParseNuspec(strings.NewReader(`<package><metadata></metadata></package>`))
	require.Error(t, err)
}
