package packaging

import (
	"archive/zip"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yever/Paket/nuget"
)

const (
	// extractionBufferSize for entry copies.
	extractionBufferSize = 4096

	// archiveSnippetLength is how many archive bytes extraction errors
	// quote; a feed answering with an HTML error page shows up here.
	archiveSnippetLength = 512
)

// minValidEntryTime is the earliest timestamp the zip format can represent.
// Entries below it were written by a broken archiver and are repaired when
// the runtime capability flag asks for it.
var minValidEntryTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// ExtractPackage extracts a nupkg archive into targetFolder.
//
// A target folder that already holds files other than the archive itself is
// treated as already extracted and left alone. With repairTimestamps set,
// entries carrying invalid timestamps get the current time instead. After
// extraction, every file and directory whose name URL-decodes to something
// different is renamed to the decoded form.
func ExtractPackage(archivePath, targetFolder string, name nuget.PackageName, versionText string, repairTimestamps bool) error {
	extracted, err := alreadyExtracted(archivePath, targetFolder)
	if err != nil {
		return err
	}
	if extracted {
		return nil
	}

	if err := os.MkdirAll(targetFolder, 0o755); err != nil {
		return fmt.Errorf("create target folder: %w", err)
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return extractionError(archivePath, name, versionText, err)
	}
	defer func() { _ = reader.Close() }()

	for _, entry := range reader.File {
		if err := extractEntry(entry, targetFolder, repairTimestamps); err != nil {
			return extractionError(archivePath, name, versionText, err)
		}
	}

	return decodeEntryNames(targetFolder)
}

// alreadyExtracted reports whether targetFolder holds anything besides the
// archive itself.
func alreadyExtracted(archivePath, targetFolder string) (bool, error) {
	entries, err := os.ReadDir(targetFolder)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspect target folder: %w", err)
	}

	archiveName := filepath.Base(archivePath)
	for _, e := range entries {
		if !strings.EqualFold(e.Name(), archiveName) {
			return true, nil
		}
	}
	return false, nil
}

func extractEntry(entry *zip.File, targetFolder string, repairTimestamps bool) error {
	cleaned := filepath.Clean(filepath.FromSlash(entry.Name))
	// Only true traversals are rejected; a name like "..config" is fine.
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return fmt.Errorf("entry %q escapes the target folder", entry.Name)
	}
	targetPath := filepath.Join(targetFolder, cleaned)

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(targetPath, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("create directory for %q: %w", entry.Name, err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open entry %q: %w", entry.Name, err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %q: %w", targetPath, err)
	}

	_, copyErr := io.CopyBuffer(dst, src, make([]byte, extractionBufferSize))
	closeErr := dst.Close()
	if copyErr != nil {
		return fmt.Errorf("write %q: %w", entry.Name, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %q: %w", targetPath, closeErr)
	}

	modified := entry.Modified
	if repairTimestamps && modified.Before(minValidEntryTime) {
		modified = time.Now()
	}
	if !modified.IsZero() {
		_ = os.Chtimes(targetPath, modified, modified)
	}

	return nil
}

// decodeEntryNames walks targetFolder depth-first and renames every file and
// directory whose name URL-decodes to a different string, skipping renames
// whose destination already exists.
func decodeEntryNames(targetFolder string) error {
	var paths []string
	err := filepath.WalkDir(targetFolder, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != targetFolder {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk target folder: %w", err)
	}

	// Deepest first, so children are renamed before their parents move.
	sort.Slice(paths, func(i, j int) bool {
		return strings.Count(paths[i], string(filepath.Separator)) >
			strings.Count(paths[j], string(filepath.Separator))
	})

	for _, path := range paths {
		base := filepath.Base(path)
		decoded, err := url.PathUnescape(base)
		if err != nil || decoded == base {
			continue
		}
		destination := filepath.Join(filepath.Dir(path), decoded)
		if _, err := os.Stat(destination); err == nil {
			continue
		}
		if err := os.Rename(path, destination); err != nil {
			return fmt.Errorf("rename %q to %q: %w", path, destination, err)
		}
	}

	return nil
}

// extractionError wraps an archive failure with a snippet of the archive
// bytes as text.
func extractionError(archivePath string, name nuget.PackageName, versionText string, err error) error {
	snippet := ""
	if f, openErr := os.Open(archivePath); openErr == nil {
		buf := make([]byte, archiveSnippetLength)
		n, _ := f.Read(buf)
		snippet = string(buf[:n])
		_ = f.Close()
	}

	return nuget.NewFeedError(nuget.KindExtraction, archivePath,
		fmt.Errorf("cannot extract %s %s: %w; archive starts with: %q", name, versionText, err, snippet))
}
