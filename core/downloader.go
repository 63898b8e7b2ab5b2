package core

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/yever/Paket/auth"
	"github.com/yever/Paket/nuget"
	"github.com/yever/Paket/observability"
	"github.com/yever/Paket/version"
)

const (
	// downloadChunkSize for streaming the archive to disk.
	downloadChunkSize = 4096

	// licenseBudget is the wall-clock budget for the whole license
	// subtask: task start, HTTP round trip and file write.
	licenseBudget = 5 * time.Second
)

// DownloadPackage downloads a package archive (and its license, as a
// detached side task) into the process-wide cache, then installs it into
// the per-package target folder under root. Returns the install folder.
//
// Callers must serialize concurrent downloads of the same package identity;
// the core keeps exactly one archive write per (name, version).
func (c *Client) DownloadPackage(ctx context.Context, root string, creds auth.Credentials, feedURL, group string, name nuget.PackageName, ver *version.SemVer, includeVersionInPath, force bool) (string, error) {
	archivePath := filepath.Join(c.env.Cache.Dir(), fmt.Sprintf("%s.%s.nupkg", name, ver.Normalize()))
	licensePath := filepath.Join(c.env.Cache.Dir(), fmt.Sprintf("%s.%s.license.html", name, ver.Normalize()))

	if !force && fileHasContent(archivePath) {
		c.env.Logger.VerboseContext(ctx, "{PackageName} {Version} already in cache", name, ver)
		observability.PackageDownloadsTotal.WithLabelValues("cached").Inc()
		return c.CopyFromCache(ctx, root, group, archivePath, licensePath, name, ver, includeVersionInPath, force)
	}

	// Always resolve fresh metadata: download URLs go stale.
	meta, _, err := c.detailsFromFeed(ctx, force, creds, feedURL, name, ver)
	if err != nil {
		observability.PackageDownloadsTotal.WithLabelValues("failure").Inc()
		return "", err
	}

	licenseDone := c.startLicenseDownload(ctx, meta.LicenseURL, licensePath, creds, force)

	if err := c.fetchArchive(ctx, creds, meta.DownloadLink, archivePath, name, ver); err != nil {
		observability.PackageDownloadsTotal.WithLabelValues("failure").Inc()
		return "", err
	}

	if licenseErr := <-licenseDone; licenseErr != nil {
		// License failures never block the archive.
		c.env.Logger.WarnContext(ctx, "License download for {PackageName} {Version} failed: {Error}",
			name, ver, licenseErr)
	}

	observability.PackageDownloadsTotal.WithLabelValues("success").Inc()
	return c.CopyFromCache(ctx, root, group, archivePath, licensePath, name, ver, includeVersionInPath, force)
}

// fetchArchive streams the archive into the cache. Local links copy the
// file instead of downloading.
func (c *Client) fetchArchive(ctx context.Context, creds auth.Credentials, link nuget.DownloadLink, archivePath string, name nuget.PackageName, ver *version.SemVer) error {
	if link.IsLocal() {
		return copyFile(link.LocalPath, archivePath)
	}

	req, err := http.NewRequest("GET", link.RemoteURL, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	applyDownloadAuth(req, creds)

	c.env.Logger.InfoContext(ctx, "Downloading {PackageName} {Version} from {URL}", name, ver, link.RemoteURL)

	resp, err := c.env.HTTPClient.Do(ctx, req)
	if err != nil {
		return nuget.NetworkError(link.RemoteURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nuget.NetworkError(link.RemoteURL,
			fmt.Errorf("download returned %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nuget.NetworkError(link.RemoteURL, err)
	}

	return streamToFile(body, archivePath)
}

// applyDownloadAuth sets preemptive basic credentials on the archive
// request. Token and anonymous access use the host's default credentials.
func applyDownloadAuth(req *http.Request, creds auth.Credentials) {
	if basic, ok := creds.(*auth.BasicCredentials); ok {
		basic.Authenticate(req)
	}
}

// decodeBody unwraps the negotiated content encoding. Setting an explicit
// Accept-Encoding header disables the transport's transparent
// decompression, so it happens here. HTTP "deflate" is zlib-wrapped
// (RFC 1950); some servers send raw DEFLATE streams, so that is the
// fallback.
func decodeBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "deflate":
		buffered := bufio.NewReader(resp.Body)
		if header, err := buffered.Peek(2); err == nil && isZlibHeader(header) {
			return zlib.NewReader(buffered)
		}
		return flate.NewReader(buffered), nil
	default:
		return resp.Body, nil
	}
}

// isZlibHeader reports whether the first two bytes form a valid zlib
// header: CM 8 with a passing FCHECK (RFC 1950).
func isZlibHeader(header []byte) bool {
	return len(header) == 2 &&
		header[0]&0x0f == 8 &&
		(uint16(header[0])<<8|uint16(header[1]))%31 == 0
}

// streamToFile writes the body to a uniquely-named temp file in 4 KiB
// chunks, then moves it into place.
func streamToFile(body io.Reader, path string) error {
	tempPath := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())

	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}

	_, copyErr := io.CopyBuffer(f, body, make([]byte, downloadChunkSize))
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("stream download: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("finalize download: %w", closeErr)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("move download into cache: %w", err)
	}
	return nil
}

// startLicenseDownload launches the license fetch as a detached task with
// its own failure domain and a single wall-clock budget. The returned
// channel yields the task's outcome once.
func (c *Client) startLicenseDownload(ctx context.Context, licenseURL, licensePath string, creds auth.Credentials, force bool) <-chan error {
	done := make(chan error, 1)

	if licenseURL == "" || (!force && fileHasContent(licensePath)) {
		done <- nil
		return done
	}

	go func() {
		licenseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), licenseBudget)
		defer cancel()

		req, err := http.NewRequest("GET", licenseURL, nil)
		if err != nil {
			done <- fmt.Errorf("create license request: %w", err)
			return
		}
		auth.Apply(req, creds)

		resp, err := c.env.HTTPClient.Do(licenseCtx, req)
		if err != nil {
			done <- err
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			done <- fmt.Errorf("license download returned %d", resp.StatusCode)
			return
		}

		done <- streamToFile(resp.Body, licensePath)
	}()

	return done
}

func fileHasContent(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	_, copyErr := io.CopyBuffer(out, in, make([]byte, downloadChunkSize))
	closeErr := out.Close()
	if copyErr != nil {
		return fmt.Errorf("copy to %s: %w", dst, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("finalize %s: %w", dst, closeErr)
	}
	return nil
}
