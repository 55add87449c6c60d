package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/iconidentify/tokgrabba/internal/domain"
	"github.com/iconidentify/tokgrabba/internal/downloader"
)

// Classifier decides whether a link is a slideshow or a video.
type Classifier struct {
	fetcher downloader.Fetcher
	marker  string
}

// NewClassifier creates a classifier that looks for marker in the page.
func NewClassifier(fetcher downloader.Fetcher, marker string) *Classifier {
	return &Classifier{fetcher: fetcher, marker: marker}
}

// Classify fetches the page once. It is a slideshow if the page text
// contains the marker and a video otherwise. Fetch errors are returned as is.
func (c *Classifier) Classify(ctx context.Context, url string) (domain.Kind, error) {
	page, err := c.fetcher.FetchText(ctx, url)
	if err != nil {
		return domain.KindUnknown, fmt.Errorf("classify: %w", err)
	}
	if strings.Contains(page, c.marker) {
		return domain.KindSlideshow, nil
	}
	return domain.KindVideo, nil
}
