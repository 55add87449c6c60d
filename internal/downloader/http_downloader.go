package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/tokgrabba/internal/config"
	"github.com/iconidentify/tokgrabba/internal/domain"
)

// maxPageBytes caps how much of an HTML page is read into memory.
const maxPageBytes = 16 << 20

// HTTPDownloader implements Fetcher with a single attempt per request.
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewHTTPDownloader creates a new HTTP fetcher.
func NewHTTPDownloader(cfg config.DownloadConfig) *HTTPDownloader {
	return &HTTPDownloader{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent: cfg.UserAgent,
		logger:    slog.Default(),
	}
}

// SetLogger sets the logger for fetch reporting.
func (d *HTTPDownloader) SetLogger(logger *slog.Logger) {
	d.logger = logger
}

// FetchText performs one GET and returns the body as a string. Only
// transport failures are errors: a 404 or 500 page is returned like any other
// page, since its content still decides how the link is handled.
func (d *HTTPDownloader) FetchText(ctx context.Context, url string) (string, error) {
	resp, err := d.get(ctx, url, "text/html,application/xhtml+xml,*/*;q=0.8")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if serr := checkStatus(resp.StatusCode); serr != nil {
		d.logger.Warn("page fetched with error status", "url", url, "status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", domain.ErrFetchFailed, err)
	}
	return string(body), nil
}

// FetchToFile performs one GET and writes the body to path. Non-2xx
// responses are errors and leave no file behind.
func (d *HTTPDownloader) FetchToFile(ctx context.Context, url, path string) (int64, error) {
	resp, err := d.get(ctx, url, "image/*,*/*;q=0.8")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", path, err)
	}

	d.logger.Debug("fetched file", "path", path, "size", humanize.Bytes(uint64(n)))
	return n, nil
}

func (d *HTTPDownloader) get(ctx context.Context, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrFetchFailed, err)
	}

	// Set headers to mimic browser request
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", domain.ErrFetchFailed, err)
	}
	return resp, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return fmt.Errorf("%w: status code %d", domain.ErrNotFound, code)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status code %d", domain.ErrRateLimited, code)
	case code < 200 || code > 299:
		return fmt.Errorf("%w: unexpected status code: %d", domain.ErrFetchFailed, code)
	}
	return nil
}
