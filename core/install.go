package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yever/Paket/nuget"
	"github.com/yever/Paket/packaging"
	"github.com/yever/Paket/version"
)

// licenseFileName is the license's name inside the install folder.
const licenseFileName = "license.html"

// CopyFromCache installs a cached archive into the per-package target
// folder: copy, extract, license. On any failure the copied archive and the
// whole target folder are removed before the error propagates, so a broken
// install never survives.
func (c *Client) CopyFromCache(ctx context.Context, root, group, cacheFile, licenseCacheFile string, name nuget.PackageName, ver *version.SemVer, includeVersionInPath, force bool) (targetFolder string, err error) {
	targetFolder = c.env.Layout(root, group, name, ver.Normalize(), includeVersionInPath)
	targetArchive := filepath.Join(targetFolder, filepath.Base(cacheFile))

	defer func() {
		if err == nil {
			return
		}
		_ = os.Remove(targetArchive)
		_ = os.RemoveAll(targetFolder)
	}()

	if force || !fileHasContent(targetArchive) {
		if err = os.RemoveAll(targetFolder); err != nil {
			return targetFolder, fmt.Errorf("clean target folder: %w", err)
		}
		if err = os.MkdirAll(targetFolder, 0o755); err != nil {
			return targetFolder, fmt.Errorf("create target folder: %w", err)
		}
		if err = copyFile(cacheFile, targetArchive); err != nil {
			return targetFolder, err
		}
	}

	if err = packaging.ExtractPackage(targetArchive, targetFolder, name, ver.Normalize(), c.env.RepairZipTimestamps); err != nil {
		return targetFolder, err
	}

	if err = installLicense(licenseCacheFile, targetFolder); err != nil {
		return targetFolder, err
	}

	c.env.Logger.InfoContext(ctx, "Installed {PackageName} {Version} to {Folder}", name, ver, targetFolder)
	return targetFolder, nil
}

func installLicense(licenseCacheFile, targetFolder string) error {
	if !fileHasContent(licenseCacheFile) {
		return nil
	}
	target := filepath.Join(targetFolder, licenseFileName)
	if fileHasContent(target) {
		return nil
	}
	return copyFile(licenseCacheFile, target)
}
