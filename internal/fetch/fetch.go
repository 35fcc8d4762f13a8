// Package fetch implements URL retrieval with a content-addressed disk
// cache (spec §4.1/§6): fetched bytes are keyed by SHA-256(url) so repeat
// fetches of the same URL never hit the network twice, and a 403 response
// whose body names an expired or access-denied link is surfaced as a
// distinguished error rather than a generic I/O failure.
package fetch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/danishbarkat/mrfcompare/internal/mrferrors"
)

var httpClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	},
	Timeout: 3 * time.Hour,
}

// Cache is a content-addressed on-disk store of fetched URL bodies, rooted
// at dir. The zero value is not usable; construct with NewCache.
type Cache struct {
	dir string
}

// NewCache returns a Cache rooted at dir, creating it if necessary.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, mrferrors.IO(dir, err)
	}
	return &Cache{dir: dir}, nil
}

// keyFor returns the cache file path for url: the hex SHA-256 digest of the
// exact URL string, so the same URL always resolves to the same path across
// repeated requests. URLs that differ only in query-parameter order hash to
// different paths.
func (c *Cache) keyFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:]))
}

// Path returns the cache path url would occupy and whether it is already
// present, without performing a fetch.
func (c *Cache) Path(url string) (path string, cached bool) {
	path = c.keyFor(url)
	_, err := os.Stat(path)
	return path, err == nil
}

// Fetch returns the local file path holding url's body, downloading it
// first if not already cached. A 403 response whose body names an expired
// or access-denied link returns mrferrors.ExpiredLink instead of a generic
// I/O error, so callers can distinguish a stale index reference from a
// transient network failure.
func (c *Cache) Fetch(ctx context.Context, url string) (string, error) {
	return c.FetchWithProgress(ctx, url, nil)
}

// FetchWithProgress is Fetch, additionally calling onProgress as the body is
// downloaded: onProgress(downloaded, total), where total is the response's
// Content-Length or 0 if the server didn't send one. onProgress may be nil.
func (c *Cache) FetchWithProgress(ctx context.Context, url string, onProgress func(downloaded, total int64)) (string, error) {
	path, cached := c.Path(url)
	if cached {
		return path, nil
	}

	body, err := download(ctx, url, onProgress)
	if err != nil {
		return "", err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return "", mrferrors.IO(path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", mrferrors.IO(path, err)
	}
	return path, nil
}

// progressReader wraps a response body, reporting cumulative bytes read to
// callback as the caller drains it.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	callback func(read, total int64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	p.read += int64(n)
	if n > 0 {
		p.callback(p.read, p.total)
	}
	return n, err
}

// download performs an HTTP GET with exponential-backoff retries on
// transient failures, grounded on the same retry/backoff shape used
// elsewhere in this codebase's HTTP client.
func download(ctx context.Context, url string, onProgress func(downloaded, total int64)) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, mrferrors.IO(url, err)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		var body []byte
		var readErr error
		if onProgress != nil {
			total := resp.ContentLength
			if total < 0 {
				total = 0
			}
			body, readErr = io.ReadAll(&progressReader{r: resp.Body, total: total, callback: onProgress})
		} else {
			body, readErr = io.ReadAll(resp.Body)
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusForbidden && looksExpired(body) {
			return nil, mrferrors.ExpiredLink(url)
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, mrferrors.IO(url, lastErr)
			}
			continue
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}
		return body, nil
	}

	return nil, mrferrors.IO(url, fmt.Errorf("fetch failed after retries: %w", lastErr))
}

// looksExpired reports whether a 403 response body names an expired or
// access-denied link, the shape CDNs hosting MRF files commonly return once
// a signed URL's TTL has passed.
func looksExpired(body []byte) bool {
	return bytes.Contains(body, []byte("AccessDenied")) || bytes.Contains(body, []byte("Expired"))
}
