package packaging

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// extractNuspecToTemp copies the archive's .nuspec manifest to a temporary
// file and returns its path. The caller owns the file.
func extractNuspecToTemp(archivePath string) (string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer func() { _ = reader.Close() }()

	var manifest *zip.File
	for _, entry := range reader.File {
		// The manifest sits at the archive root.
		if strings.Contains(entry.Name, "/") {
			continue
		}
		if strings.EqualFold(path.Ext(entry.Name), ".nuspec") {
			manifest = entry
			break
		}
	}
	if manifest == nil {
		return "", fmt.Errorf("archive %s carries no nuspec manifest", archivePath)
	}

	src, err := manifest.Open()
	if err != nil {
		return "", fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = src.Close() }()

	temp, err := os.CreateTemp("", "paket-nuspec-*.nuspec")
	if err != nil {
		return "", fmt.Errorf("create temp manifest: %w", err)
	}

	if _, err := io.Copy(temp, src); err != nil {
		_ = temp.Close()
		_ = os.Remove(temp.Name())
		return "", fmt.Errorf("copy manifest: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(temp.Name())
		return "", fmt.Errorf("close temp manifest: %w", err)
	}

	return temp.Name(), nil
}
