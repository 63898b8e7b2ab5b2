package packaging

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yever/Paket/nuget"
)

// writeArchive builds a nupkg-shaped zip with the given entries.
func writeArchive(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestExtractPackage(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "Foo.1.0.0.nupkg")
	writeArchive(t, archive, map[string]string{
		"Foo.nuspec":        `<package><metadata><id>Foo</id></metadata></package>`,
		"lib/net45/Foo.dll": "assembly bytes",
		"build/Foo.targets": "<Project/>",
	})

	target := filepath.Join(dir, "target")
	err := ExtractPackage(archive, target, nuget.NewPackageName("Foo"), "1.0.0", false)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(target, "lib", "net45", "Foo.dll"))
	require.NoError(t, err)
	assert.Equal(t, "assembly bytes", string(data))
}

func TestExtractPackageIdempotent(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "Foo.1.0.0.nupkg")
	writeArchive(t, archive, map[string]string{"readme.txt": "hello"})

	target := filepath.Join(dir, "target")
	require.NoError(t, ExtractPackage(archive, target, nuget.NewPackageName("Foo"), "1.0.0", false))

	// Mutate the extracted file; a second extraction must not touch it.
	marker := filepath.Join(target, "readme.txt")
	require.NoError(t, os.WriteFile(marker, []byte("edited"), 0o644))

	require.NoError(t, ExtractPackage(archive, target, nuget.NewPackageName("Foo"), "1.0.0", false))

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "edited", string(data), "already-extracted folder must be left alone")
}

func TestExtractPackageDecodesEntryNames(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "Foo.1.0.0.nupkg")
	writeArchive(t, archive, map[string]string{
		"my%20lib/readme.txt":   "content",
		"docs/guide%2Bnotes.md": "notes",
	})

	target := filepath.Join(dir, "target")
	require.NoError(t, ExtractPackage(archive, target, nuget.NewPackageName("Foo"), "1.0.0", false))

	data, err := os.ReadFile(filepath.Join(target, "my lib", "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	_, err = os.Stat(filepath.Join(target, "docs", "guide+notes.md"))
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(target, "my%20lib"))
	assert.True(t, os.IsNotExist(err), "encoded directory name must be gone")
}

func TestExtractPackageHTMLErrorPage(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "Foo.1.0.0.nupkg")
	page := "<html><body>502 Bad Gateway</body></html>"
	require.NoError(t, os.WriteFile(archive, []byte(page), 0o644))

	err := ExtractPackage(archive, filepath.Join(dir, "target"), nuget.NewPackageName("Foo"), "1.0.0", false)
	require.Error(t, err)
	assert.True(t, nuget.IsKind(err, nuget.KindExtraction))
	assert.Contains(t, err.Error(), "502 Bad Gateway", "diagnostic quotes the archive bytes")
}

func TestExtractPackageRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "Foo.1.0.0.nupkg")
	writeArchive(t, archive, map[string]string{"../escape.txt": "nope"})

	err := ExtractPackage(archive, filepath.Join(dir, "target"), nuget.NewPackageName("Foo"), "1.0.0", false)
	require.Error(t, err)
	assert.True(t, nuget.IsKind(err, nuget.KindExtraction))
}

func TestExtractPackageAllowsDotDotPrefixedNames(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "Foo.1.0.0.nupkg")
	writeArchive(t, archive, map[string]string{"..config": "dotfile"})

	target := filepath.Join(dir, "target")
	require.NoError(t, ExtractPackage(archive, target, nuget.NewPackageName("Foo"), "1.0.0", false))

	data, err := os.ReadFile(filepath.Join(target, "..config"))
	require.NoError(t, err)
	assert.Equal(t, "dotfile", string(data))
}

func TestExtractPackageRepairsInvalidTimestamps(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "Foo.1.0.0.nupkg")

	f, err := os.Create(archive)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	header := &zip.FileHeader{Name: "old.txt", Modified: time.Date(1975, 6, 1, 0, 0, 0, 0, time.UTC)}
	entry, err := w.CreateHeader(header)
	require.NoError(t, err)
	_, err = entry.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	target := filepath.Join(dir, "target")
	require.NoError(t, ExtractPackage(archive, target, nuget.NewPackageName("Foo"), "1.0.0", true))

	info, err := os.Stat(filepath.Join(target, "old.txt"))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), info.ModTime(), time.Minute,
		"invalid entry timestamps are rewritten to now")
}

func TestAlreadyExtractedIgnoresArchiveItself(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "Foo.1.0.0.nupkg")
	writeArchive(t, archive, map[string]string{"readme.txt": "hello"})

	// Target containing only the archive counts as not extracted.
	target := filepath.Join(dir, "target")
	require.NoError(t, os.MkdirAll(target, 0o755))
	copied := filepath.Join(target, "Foo.1.0.0.nupkg")
	data, err := os.ReadFile(archive)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(copied, data, 0o644))

	require.NoError(t, ExtractPackage(copied, target, nuget.NewPackageName("Foo"), "1.0.0", false))

	if _, err := os.Stat(filepath.Join(target, "readme.txt")); err != nil {
		t.Fatalf("archive was not extracted next to itself: %v", err)
	}
}

func TestDecodeSkipsWhenDestinationExists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a%20b.txt"), []byte("encoded"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a b.txt"), []byte("decoded"), 0o644))

	require.NoError(t, decodeEntryNames(dir))

	data, err := os.ReadFile(filepath.Join(dir, "a b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "decoded", string(data), "existing destination must not be overwritten")

	if _, err := os.Stat(filepath.Join(dir, "a%20b.txt")); err != nil {
		t.Error("source of skipped rename should remain")
	}
}

func TestExtractPackageUsesEntryTimes(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "Foo.1.0.0.nupkg")

	f, err := os.Create(archive)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	stamp := time.Date(2019, 3, 4, 5, 6, 7, 0, time.UTC)
	entry, err := w.CreateHeader(&zip.FileHeader{Name: "dated.txt", Modified: stamp})
	require.NoError(t, err)
	_, err = entry.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	target := filepath.Join(dir, "target")
	require.NoError(t, ExtractPackage(archive, target, nuget.NewPackageName("Foo"), "1.0.0", true))

	info, err := os.Stat(filepath.Join(target, "dated.txt"))
	require.NoError(t, err)
	assert.WithinDuration(t, stamp, info.ModTime(), 2*time.Second,
		"valid entry timestamps are preserved")
}
