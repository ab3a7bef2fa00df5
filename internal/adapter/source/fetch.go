package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/rainfall-heatmap-service/internal/domain"
)

// maxBodyBytes caps a fetched dataset.
const maxBodyBytes = 256 << 20

// Fetcher retrieves raw dataset text.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	// Source names the dataset for logs and cache keys.
	Source() string
}

// NewFetcher picks a fetcher for identifier: http(s) URLs are fetched over
// HTTP, file:// URLs and plain paths are read from disk.
func NewFetcher(identifier string, timeout time.Duration, logger *slog.Logger) Fetcher {
	if u, err := url.Parse(identifier); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return NewHTTPFetcher(identifier, timeout, logger)
		case "file":
			return &FileFetcher{path: filePath(u)}
		}
	}
	return &FileFetcher{path: identifier}
}

// filePath maps a file:// URL to a local path. A host other than localhost
// is the first segment of a relative path, as in file://data/x.csv.
func filePath(u *url.URL) string {
	if u.Host == "" || strings.EqualFold(u.Host, "localhost") {
		return filepath.FromSlash(u.Path)
	}
	return filepath.FromSlash(u.Host + u.Path)
}

// FileFetcher reads the dataset from local disk.
type FileFetcher struct {
	path string
}

// NewFileFetcher creates a fetcher for a local path.
func NewFileFetcher(path string) *FileFetcher {
	return &FileFetcher{path: path}
}

func (f *FileFetcher) Source() string { return f.path }

func (f *FileFetcher) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}
	return data, nil
}

// HTTPFetcher downloads the dataset with a GET request.
type HTTPFetcher struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPFetcher creates a fetcher for an http(s) URL.
func NewHTTPFetcher(rawURL string, timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		url: rawURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (f *HTTPFetcher) Source() string { return f.url }

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrFetch, err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request: %w", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrFetch, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrFetch, err)
	}
	if len(data) > maxBodyBytes {
		return nil, fmt.Errorf("%w: dataset larger than %d bytes", domain.ErrFetch, maxBodyBytes)
	}

	f.logger.Debug("dataset downloaded", "url", f.url, "bytes", len(data))
	return data, nil
}
