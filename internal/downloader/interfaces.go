package downloader

import (
	"context"
)

// Fetcher retrieves pages and media over HTTP.
type Fetcher interface {
	// FetchText returns the body of url as text, whatever the HTTP status.
	FetchText(ctx context.Context, url string) (string, error)

	// FetchToFile streams the body of url into path and returns the bytes written.
	FetchToFile(ctx context.Context, url, path string) (int64, error)
}
