package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/tokgrabba/internal/chat"
	"github.com/iconidentify/tokgrabba/internal/config"
	"github.com/iconidentify/tokgrabba/internal/domain"
	"github.com/iconidentify/tokgrabba/internal/workspace"
	"github.com/iconidentify/tokgrabba/pkg/ffmpeg"
	"github.com/iconidentify/tokgrabba/pkg/ytdlp"
)

// VideoService downloads, converts and re-posts a single video.
type VideoService struct {
	source     VideoSource
	transcoder Transcoder
	platform   chat.Platform
	cfg        config.MediaConfig
	timeouts   config.TimeoutConfig
	logger     *slog.Logger
}

// NewVideoService creates a new video service.
func NewVideoService(
	source VideoSource,
	transcoder Transcoder,
	platform chat.Platform,
	cfg config.MediaConfig,
	timeouts config.TimeoutConfig,
	logger *slog.Logger,
) *VideoService {
	return &VideoService{
		source:     source,
		transcoder: transcoder,
		platform:   platform,
		cfg:        cfg,
		timeouts:   timeouts,
		logger:     logger,
	}
}

// Deliver runs the video path for link inside dir. Every failure is turned
// into an Outcome; nothing is returned as an error.
func (s *VideoService) Deliver(ctx context.Context, link domain.Link, dir workspace.Dir) (domain.VideoAsset, domain.Outcome) {
	logger := s.logger.With("message_id", link.MessageID)
	asset := s.paths(link, dir)

	if err := s.fetch(ctx, link, &asset); err != nil {
		return asset, s.failed(logger, err)
	}

	if err := s.transcode(ctx, &asset); err != nil {
		return asset, s.failed(logger, err)
	}

	gate, gated := asset.RawSize, "raw"
	if s.cfg.GateOnOutput {
		gate, gated = asset.OutputSize, "transcoded"
	}
	if gate > s.cfg.MaxUploadBytes {
		logger.Warn("video too large, not uploading",
			"checked", gated,
			"size", humanize.Bytes(uint64(gate)),
			"limit", humanize.Bytes(uint64(s.cfg.MaxUploadBytes)),
		)
		return asset, domain.TooLarge()
	}

	cctx, cancel := withTimeout(ctx, s.timeouts.Chat)
	defer cancel()

	if _, err := s.platform.SendFile(cctx, link.ChannelID, videoCaption(link.Author, asset.Title), asset.OutputPath); err != nil {
		return asset, s.failed(logger, fmt.Errorf("%w: %w", domain.ErrUploadFailed, err))
	}
	if err := s.platform.Delete(cctx, link.ChannelID, link.MessageID); err != nil {
		return asset, s.failed(logger, fmt.Errorf("delete original message: %w", err))
	}

	logger.Info("video delivered",
		"raw_size", humanize.Bytes(uint64(asset.RawSize)),
		"output_size", humanize.Bytes(uint64(asset.OutputSize)),
		"duration", asset.Duration,
		"codec", asset.VideoCodec,
	)
	return asset, domain.Delivered()
}

// paths picks the raw and output file names. They must differ because
// ffmpeg cannot convert a file onto itself.
func (s *VideoService) paths(link domain.Link, dir workspace.Dir) domain.VideoAsset {
	ext := "." + s.cfg.Extension
	raw := dir.Join("raw" + ext)
	out := dir.Join(link.MessageID.String() + ext)
	if out == raw {
		out = dir.Join(link.MessageID.String() + "-out" + ext)
	}
	return domain.VideoAsset{RawPath: raw, OutputPath: out}
}

func (s *VideoService) fetch(ctx context.Context, link domain.Link, asset *domain.VideoAsset) error {
	pctx, cancel := withTimeout(ctx, s.timeouts.Probe)
	info, err := s.source.Probe(pctx, link.URL)
	cancel()
	if err != nil {
		return sourceError(domain.ErrProbeFailed, err)
	}
	asset.Title = strings.TrimSpace(domain.ShortTitle(info.Title))

	dctx, cancel := withTimeout(ctx, s.timeouts.Download)
	err = s.source.Download(dctx, link.URL, asset.RawPath)
	cancel()
	if err != nil {
		return sourceError(domain.ErrDownloadFailed, err)
	}

	stat, err := os.Stat(asset.RawPath)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDownloadFailed, err)
	}
	asset.RawSize = stat.Size()
	return nil
}

func (s *VideoService) transcode(ctx context.Context, asset *domain.VideoAsset) error {
	tctx, cancel := withTimeout(ctx, s.timeouts.Transcode)
	defer cancel()

	err := s.transcoder.Transcode(tctx, asset.RawPath, asset.OutputPath, ffmpeg.TranscodeConfig{
		VideoCodec: s.cfg.VideoCodec,
		Preset:     s.cfg.Preset,
		CRF:        s.cfg.Compression,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrTranscodeFailed, err)
	}

	// ffmpeg can exit cleanly and still write a file without a video stream
	info, err := s.transcoder.GetVideoInfo(tctx, asset.OutputPath)
	if err != nil {
		return fmt.Errorf("%w: inspect output: %w", domain.ErrTranscodeFailed, err)
	}
	if info.VideoCodec == "" {
		return fmt.Errorf("%w: output has no video stream", domain.ErrTranscodeFailed)
	}
	asset.OutputSize = info.FileSize
	asset.Duration = info.Duration
	asset.VideoCodec = info.VideoCodec
	return nil
}

func (s *VideoService) failed(logger *slog.Logger, err error) domain.Outcome {
	outcome := domain.Failed(err)
	if outcome.Reason == domain.ReasonNotFound {
		logger.Warn("video source not found, likely deleted", "error", err)
	} else {
		logger.Error("video pipeline failed", "error", err)
	}
	return outcome
}

// sourceError wraps a yt-dlp failure in sentinel and tags missing sources
// with domain.ErrNotFound.
func sourceError(sentinel, err error) error {
	if errors.Is(err, ytdlp.ErrNotFound) {
		return fmt.Errorf("%w: %w: %w", sentinel, domain.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func videoCaption(author, title string) string {
	caption := fmt.Sprintf("*%s*:", author)
	if title != "" {
		caption += fmt.Sprintf("\n> ||%s||", title)
	}
	return caption
}
