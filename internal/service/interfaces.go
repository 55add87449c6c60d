package service

import (
	"context"

	"github.com/iconidentify/tokgrabba/internal/domain"
	"github.com/iconidentify/tokgrabba/pkg/ffmpeg"
	"github.com/iconidentify/tokgrabba/pkg/ytdlp"
)

// VideoSource probes and downloads remote videos. *ytdlp.Client implements it.
type VideoSource interface {
	Probe(ctx context.Context, url string) (*ytdlp.Info, error)
	Download(ctx context.Context, url, outputPath string) error
}

// Transcoder converts a downloaded video and inspects the result.
// *ffmpeg.VideoProcessor implements it.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string, cfg ffmpeg.TranscodeConfig) error
	GetVideoInfo(ctx context.Context, videoPath string) (*ffmpeg.VideoInfo, error)
}

// LinkHandler runs the full pipeline for one link.
type LinkHandler interface {
	HandleLink(ctx context.Context, link domain.Link) error
}

// Spawner starts a named background task.
type Spawner interface {
	Go(name string, task func(ctx context.Context) error) error
}
