package packaging

import (
	"os"
	"path/filepath"
	"strings"
)

// Package folder names inside an installed package.
const (
	LibFolder       = "lib"
	BuildFolder     = "build"
	AnalyzersFolder = "analyzers"
)

// GetLibFiles returns all files under the package's lib folder.
func GetLibFiles(folder string) ([]string, error) {
	return filesUnderSubfolder(folder, LibFolder)
}

// GetTargetsFiles returns all files under the package's build folder.
func GetTargetsFiles(folder string) ([]string, error) {
	return filesUnderSubfolder(folder, BuildFolder)
}

// GetAnalyzerFiles returns all files under the package's analyzers folder.
func GetAnalyzerFiles(folder string) ([]string, error) {
	return filesUnderSubfolder(folder, AnalyzersFolder)
}

// filesUnderSubfolder lists every file below the immediate subdirectory of
// folder matching name case-insensitively. A missing subdirectory yields an
// empty list.
func filesUnderSubfolder(folder, name string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.EqualFold(entry.Name(), name) {
			continue
		}
		sub := filepath.Join(folder, entry.Name())
		err := filepath.WalkDir(sub, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

// NuspecFromArchive extracts the embedded .nuspec manifest to a temporary
// file and parses it. The temporary file is removed before returning.
func NuspecFromArchive(archivePath string) (*Nuspec, error) {
	tempPath, err := extractNuspecToTemp(archivePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(tempPath) }()

	return ParseNuspecFile(tempPath)
}
