package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iconidentify/tokgrabba/internal/chat"
	"github.com/iconidentify/tokgrabba/internal/config"
	"github.com/iconidentify/tokgrabba/internal/domain"
	"github.com/iconidentify/tokgrabba/internal/downloader"
	"github.com/iconidentify/tokgrabba/internal/workspace"
)

// SlideshowService posts the photos of a slideshow link into a thread.
type SlideshowService struct {
	fetcher  downloader.Fetcher
	platform chat.Platform
	marker   string
	pacing   time.Duration
	timeouts config.TimeoutConfig
	logger   *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewSlideshowService creates a new slideshow service.
func NewSlideshowService(
	fetcher downloader.Fetcher,
	platform chat.Platform,
	media config.MediaConfig,
	timeouts config.TimeoutConfig,
	logger *slog.Logger,
) *SlideshowService {
	return &SlideshowService{
		fetcher:  fetcher,
		platform: platform,
		marker:   media.SlideshowMarker,
		pacing:   media.UploadPacing,
		timeouts: timeouts,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Deliver downloads every photo of the slideshow into dir, posts a message
// naming the author and link, opens a thread on it, uploads the photos there
// in page order and finally deletes the triggering message. It returns the
// number of photos uploaded. Errors are not recovered here.
func (s *SlideshowService) Deliver(ctx context.Context, link domain.Link, dir workspace.Dir) (int, error) {
	logger := s.logger.With("message_id", link.MessageID)

	page, err := s.fetcher.FetchText(ctx, link.URL)
	if err != nil {
		return 0, fmt.Errorf("fetch slideshow page: %w", err)
	}

	set := ExtractPhotos(page, s.marker)
	if set.Len() == 0 {
		return 0, domain.ErrNoPhotos
	}

	photos := set.Photos()
	for i := range photos {
		photos[i].Path = dir.Join(photos[i].FileName())
		if _, err := s.fetcher.FetchToFile(ctx, photos[i].URL, photos[i].Path); err != nil {
			return 0, fmt.Errorf("download photo %s: %w", photos[i].Key, err)
		}
	}
	logger.Info("slideshow photos downloaded", "count", len(photos))

	cctx, cancel := withTimeout(ctx, s.timeouts.Chat)
	defer cancel()

	header, err := s.platform.Send(cctx, link.ChannelID, slideshowHeader(link))
	if err != nil {
		return 0, fmt.Errorf("send slideshow header: %w", err)
	}

	thread, err := s.platform.StartThread(cctx, link.ChannelID, header.ID, "Slideshow Thread "+link.Slug())
	if err != nil {
		return 0, fmt.Errorf("start slideshow thread: %w", err)
	}

	for i, photo := range photos {
		if i > 0 {
			// The platform does not order concurrent uploads, so space them out.
			if err := s.sleep(ctx, s.pacing); err != nil {
				return i, err
			}
		}
		if err := s.upload(ctx, thread, photo.Path); err != nil {
			return i, fmt.Errorf("upload photo %d/%d: %w", i+1, len(photos), err)
		}
	}

	dctx, dcancel := withTimeout(ctx, s.timeouts.Chat)
	defer dcancel()
	if err := s.platform.Delete(dctx, link.ChannelID, link.MessageID); err != nil {
		return len(photos), fmt.Errorf("delete original message: %w", err)
	}

	logger.Info("slideshow delivered", "photos", len(photos), "thread_id", thread)
	return len(photos), nil
}

func (s *SlideshowService) upload(ctx context.Context, thread domain.ChannelID, path string) error {
	ctx, cancel := withTimeout(ctx, s.timeouts.Chat)
	defer cancel()
	_, err := s.platform.SendFile(ctx, thread, "", path)
	return err
}

func slideshowHeader(link domain.Link) string {
	return fmt.Sprintf("*%s*:\n<%s>\n", link.Author, link.WithoutQuery())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
