// Package utils downloads the static map assets and keeps them in an
// on-disk cache between runs.
package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("file not found on server")

// DefaultCacheDir is used when a cache is enabled without a directory.
var DefaultCacheDir = filepath.Join("data", "cache")

// AssetName is the key an asset is cached under. Two assets with the same
// name share a cache file.
type AssetName string

// Asset is a remote file, or a local path, that the dashboard reads.
type Asset struct {
	Name AssetName
	URL  string
}

// Local reports whether the asset points at a file on disk.
func (a Asset) Local() bool {
	return !strings.HasPrefix(a.URL, "http://") && !strings.HasPrefix(a.URL, "https://")
}

// FileName is the cache file name: the asset name plus the extension of
// the remote file.
func (a Asset) FileName() string {
	p := a.URL
	if u, err := url.Parse(a.URL); err == nil {
		p = u.Path
	}
	name := strings.ReplaceAll(strings.TrimSpace(string(a.Name)), " ", "_")
	if name == "" {
		name = path.Base(p)
		if name == "." || name == "/" {
			name = "asset"
		}
		return name
	}
	return name + path.Ext(p)
}

type progressWriter struct {
	io.Writer
	total  uint64
	last   uint64
	asset  AssetName
	logger *zap.Logger
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.total += uint64(n)
	if pw.total-pw.last > 5*1024*1024 {
		pw.logger.Info("download progress", zap.String("asset", string(pw.asset)), zap.Uint64("mb", pw.total/1024/1024))
		pw.last = pw.total
	}
	return n, err
}

// Cache opens assets, downloading remote ones into dir on first use. A
// cache with an empty dir streams every request.
type Cache struct {
	dir    string
	client *http.Client
	logger *zap.Logger
}

// NewCache returns a cache rooted at dir.
func NewCache(dir string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{dir: dir, client: http.DefaultClient, logger: logger}
}

// Dir returns the cache directory, empty when caching is off.
func (c *Cache) Dir() string { return c.dir }

// Path returns where a is stored, or "" when caching is off.
func (c *Cache) Path(a Asset) string {
	if c.dir == "" {
		return ""
	}
	return filepath.Join(c.dir, a.FileName())
}

// Open returns a reader for a. Local paths are opened directly.
func (c *Cache) Open(ctx context.Context, a Asset) (io.ReadCloser, error) {
	logger := c.logger.With(zap.String("asset", string(a.Name)))

	if a.Local() {
		f, err := os.Open(a.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", a.URL, err)
		}
		return f, nil
	}

	localPath := c.Path(a)
	if localPath == "" {
		logger.Info("streaming", zap.String("url", a.URL))
		return c.get(ctx, a.URL)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	if _, err := os.Stat(localPath); os.IsNotExist(err) {
		logger.Info("downloading", zap.String("url", a.URL))
		if err := c.download(ctx, a, localPath, logger); err != nil {
			return nil, err
		}
	} else {
		logger.Debug("using cached file", zap.String("path", localPath))
	}
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return f, nil
}

func (c *Cache) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("error closing response body", zap.Error(err))
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}
	return resp.Body, nil
}

// download writes a to dst through a temp file in the same directory, so
// a failed transfer never leaves a partial cache entry.
func (c *Cache) download(ctx context.Context, a Asset, dst string, logger *zap.Logger) error {
	body, err := c.get(ctx, a.URL)
	if err != nil {
		return err
	}
	defer func() {
		if err := body.Close(); err != nil {
			logger.Warn("error closing response body", zap.Error(err))
		}
	}()

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	defer func() {
		if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
			logger.Warn("error removing temp file", zap.String("path", tmpName), zap.Error(err))
		}
	}()

	pw := &progressWriter{Writer: tmpFile, asset: a.Name, logger: logger}
	if _, err := io.Copy(pw, body); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}
