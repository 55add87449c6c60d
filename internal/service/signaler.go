package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iconidentify/tokgrabba/internal/chat"
	"github.com/iconidentify/tokgrabba/internal/config"
	"github.com/iconidentify/tokgrabba/internal/domain"
)

// Signaler shows run progress as reactions on the triggering message.
type Signaler struct {
	platform chat.Platform
	emoji    config.MarkerConfig
	logger   *slog.Logger
}

// NewSignaler creates a new signaler.
func NewSignaler(platform chat.Platform, emoji config.MarkerConfig, logger *slog.Logger) *Signaler {
	return &Signaler{platform: platform, emoji: emoji, logger: logger}
}

// Progress tracks the marker on one message. It is owned by a single run.
type Progress struct {
	s       *Signaler
	link    domain.Link
	current domain.Marker
}

// Begin attaches the pending marker to the link's message.
func (s *Signaler) Begin(ctx context.Context, link domain.Link) (*Progress, error) {
	p := &Progress{s: s, link: link, current: domain.MarkerNone}
	if err := p.move(ctx, domain.MarkerPending); err != nil {
		return nil, err
	}
	return p, nil
}

// Current returns the marker currently attached.
func (p *Progress) Current() domain.Marker {
	return p.current
}

// Finish replaces the pending marker with a terminal one. MarkerNone leaves
// the message untouched, which is the delivered case where the message has
// already been deleted.
func (p *Progress) Finish(ctx context.Context, terminal domain.Marker) error {
	if terminal == domain.MarkerNone {
		return nil
	}
	return p.move(ctx, terminal)
}

func (p *Progress) move(ctx context.Context, next domain.Marker) error {
	if !p.current.CanTransition(next) {
		return fmt.Errorf("marker transition %q -> %q not allowed", p.current, next)
	}

	ch, msg := p.link.ChannelID, p.link.MessageID
	if p.current != domain.MarkerNone {
		if err := p.s.platform.Unreact(ctx, ch, msg, p.s.emojiFor(p.current)); err != nil {
			return fmt.Errorf("remove %s marker: %w", p.current, err)
		}
	}
	if err := p.s.platform.React(ctx, ch, msg, p.s.emojiFor(next)); err != nil {
		return fmt.Errorf("add %s marker: %w", next, err)
	}

	p.s.logger.Debug("marker changed", "message_id", msg, "from", p.current, "to", next)
	p.current = next
	return nil
}

func (s *Signaler) emojiFor(m domain.Marker) string {
	switch m {
	case domain.MarkerPending:
		return s.emoji.Pending
	case domain.MarkerTooLarge:
		return s.emoji.TooLarge
	case domain.MarkerError:
		return s.emoji.Error
	}
	return ""
}
