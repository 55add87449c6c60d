package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/iconidentify/tokgrabba/internal/config"
	"github.com/iconidentify/tokgrabba/internal/domain"
	"github.com/iconidentify/tokgrabba/internal/repository"
	"github.com/iconidentify/tokgrabba/internal/workspace"
)

// Pipeline runs one link from the pending marker to delivery.
type Pipeline struct {
	root       *workspace.Root
	classifier *Classifier
	slideshow  *SlideshowService
	video      *VideoService
	signaler   *Signaler
	runs       repository.RunRepository
	timeouts   config.TimeoutConfig
	clearOnErr bool
	logger     *slog.Logger

	newID func() domain.RunID
}

// NewPipeline creates a new pipeline.
func NewPipeline(
	root *workspace.Root,
	classifier *Classifier,
	slideshow *SlideshowService,
	video *VideoService,
	signaler *Signaler,
	runs repository.RunRepository,
	media config.MediaConfig,
	timeouts config.TimeoutConfig,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		root:       root,
		classifier: classifier,
		slideshow:  slideshow,
		video:      video,
		signaler:   signaler,
		runs:       runs,
		timeouts:   timeouts,
		clearOnErr: media.ClearOnSlideErr,
		logger:     logger,
		newID:      func() domain.RunID { return domain.RunID(uuid.New().String()) },
	}
}

// HandleLink marks the message pending, creates its working directory,
// classifies the link and runs the matching path. The working directory is
// always removed before returning.
//
// Video failures and slideshows without photos end in a terminal marker and
// a nil error. Errors from the other steps are returned as *domain.RunError
// and leave the pending marker in place unless
// media.clear_marker_on_slideshow_failure is set.
func (p *Pipeline) HandleLink(ctx context.Context, link domain.Link) (err error) {
	run := domain.NewRun(p.newID(), link)
	logger := p.logger.With("run_id", run.ID, "message_id", link.MessageID)

	if cerr := p.runs.Create(ctx, run); cerr != nil {
		logger.Warn("failed to record run", "error", cerr)
	}
	defer func() {
		if err != nil {
			run.Abort(err)
			logger.Error("run aborted", "error", err, "duration", run.Duration())
		} else {
			logger.Info("run finished", "status", run.Status, "reason", run.Reason, "duration", run.Duration())
		}
		if uerr := p.runs.Update(context.WithoutCancel(ctx), run); uerr != nil {
			logger.Warn("failed to update run", "error", uerr)
		}
	}()

	logger.Info("handling link", "url", link.URL)

	cctx, cancel := withTimeout(ctx, p.timeouts.Chat)
	progress, err := p.signaler.Begin(cctx, link)
	cancel()
	if err != nil {
		return domain.NewRunError(link.MessageID, "mark pending", err)
	}

	dir, err := p.root.Create(link.MessageID)
	if err != nil {
		return domain.NewRunError(link.MessageID, "create working directory", err)
	}
	defer func() {
		if rerr := p.root.Remove(dir); rerr != nil {
			logger.Error("failed to remove working directory", "error", rerr)
		}
	}()

	kind, err := p.classifier.Classify(ctx, link.URL)
	if err != nil {
		return p.abort(ctx, progress, link, "classify", err)
	}
	run.Kind = kind
	logger.Info("link classified", "kind", kind)

	switch kind {
	case domain.KindSlideshow:
		n, err := p.slideshow.Deliver(ctx, link, dir)
		run.Photos = n
		if errors.Is(err, domain.ErrNoPhotos) {
			// Nothing was posted, so the link is as unusable as a failed video
			logger.Warn("slideshow page has no photos", "error", err)
			run.Finish(domain.Failed(err))
			if ferr := p.finish(ctx, progress, domain.MarkerError); ferr != nil {
				logger.Error("failed to set terminal marker", "marker", domain.MarkerError, "error", ferr)
			}
			return nil
		}
		if err != nil {
			return p.abort(ctx, progress, link, "slideshow", err)
		}
		run.Finish(domain.Delivered())

	case domain.KindVideo:
		asset, outcome := p.video.Deliver(ctx, link, dir)
		run.RawSize = asset.RawSize
		run.OutputSize = asset.OutputSize
		run.Seconds = asset.Duration
		run.VideoCodec = asset.VideoCodec
		run.Finish(outcome)

		if m := outcome.Marker(); m != domain.MarkerNone {
			if ferr := p.finish(ctx, progress, m); ferr != nil {
				logger.Error("failed to set terminal marker", "marker", m, "error", ferr)
			}
		}

	default:
		return domain.NewRunError(link.MessageID, "classify", fmt.Errorf("unknown kind %q", kind))
	}

	return nil
}

func (p *Pipeline) abort(ctx context.Context, progress *Progress, link domain.Link, op string, err error) error {
	if p.clearOnErr {
		if ferr := p.finish(ctx, progress, domain.MarkerError); ferr != nil {
			p.logger.Warn("failed to set error marker", "message_id", link.MessageID, "error", ferr)
		}
	}
	return domain.NewRunError(link.MessageID, op, err)
}

// finish uses a context detached from ctx so a marker can still be set while
// shutting down.
func (p *Pipeline) finish(ctx context.Context, progress *Progress, m domain.Marker) error {
	cctx, cancel := withTimeout(context.WithoutCancel(ctx), p.timeouts.Chat)
	defer cancel()
	return progress.Finish(cctx, m)
}
