package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/iconidentify/tokgrabba/internal/chat"
	"github.com/iconidentify/tokgrabba/internal/config"
	"github.com/iconidentify/tokgrabba/internal/domain"
)

// Intent is what the dispatcher decided to do with a message.
type Intent int

const (
	IntentIgnore Intent = iota
	IntentNoScan
	IntentRescan
	IntentLink
)

func (i Intent) String() string {
	switch i {
	case IntentNoScan:
		return "no_scan"
	case IntentRescan:
		return "rescan"
	case IntentLink:
		return "link"
	default:
		return "ignore"
	}
}

// Dispatcher routes inbound chat messages.
type Dispatcher struct {
	cfg      config.BotConfig
	platform chat.Platform
	links    LinkHandler
	spawner  Spawner
	timeouts config.TimeoutConfig
	selfID   func() string
	logger   *slog.Logger
}

// NewDispatcher creates a new dispatcher. selfID returns the bot's own user
// ID and may return "" before the session is ready.
func NewDispatcher(
	cfg config.BotConfig,
	platform chat.Platform,
	links LinkHandler,
	spawner Spawner,
	timeouts config.TimeoutConfig,
	selfID func() string,
	logger *slog.Logger,
) *Dispatcher {
	if selfID == nil {
		selfID = func() string { return "" }
	}
	return &Dispatcher{
		cfg:      cfg,
		platform: platform,
		links:    links,
		spawner:  spawner,
		timeouts: timeouts,
		selfID:   selfID,
		logger:   logger,
	}
}

// Classify decides the intent of msg. Checks run in priority order, so a
// no-scan token wins over a rescan token or a link in the same message.
func (d *Dispatcher) Classify(msg chat.Message) Intent {
	switch {
	case d.fromBot(msg):
		return IntentIgnore
	case strings.Contains(msg.Content, d.cfg.NoScanToken()):
		return IntentNoScan
	case strings.Contains(msg.Content, d.cfg.RescanToken()):
		return IntentRescan
	case strings.Contains(msg.Content, d.cfg.DomainMarker):
		return IntentLink
	default:
		return IntentIgnore
	}
}

// Handle classifies msg and starts the matching work in the background.
func (d *Dispatcher) Handle(msg chat.Message) {
	intent := d.Classify(msg)
	logger := d.logger.With("message_id", msg.ID, "channel_id", msg.ChannelID, "intent", intent)

	var err error
	switch intent {
	case IntentNoScan:
		logger.Info("skipping message with no-scan token")
		return
	case IntentRescan:
		logger.Info("handling rescan")
		err = d.spawner.Go("rescan "+msg.ID.String(), func(ctx context.Context) error {
			return d.Rescan(ctx, msg)
		})
	case IntentLink:
		link := d.linkFrom(msg)
		err = d.spawner.Go("link "+msg.ID.String(), func(ctx context.Context) error {
			return d.links.HandleLink(ctx, link)
		})
	default:
		return
	}

	if err != nil {
		logger.Error("failed to start task", "error", err)
	}
}

// Rescan replays the link pipeline over recent channel history and then
// deletes the triggering message. Links are handled one at a time. The first
// error stops the rescan and leaves the trigger in place.
func (d *Dispatcher) Rescan(ctx context.Context, trigger chat.Message) error {
	count, ok := ParseRescanCount(trigger.Content, d.cfg.RescanToken(), d.cfg.DefaultRescanCount, d.cfg.MaxRescanCount)
	if !ok {
		d.logger.Warn("invalid rescan count, using default",
			"message_id", trigger.ID,
			"default", d.cfg.DefaultRescanCount,
		)
	}
	// The trigger itself is the newest message in the window.
	limit := count + 1

	hctx, cancel := withTimeout(ctx, d.timeouts.Chat)
	history, err := d.platform.History(hctx, trigger.ChannelID, limit)
	cancel()
	if err != nil {
		return domain.NewRunError(trigger.ID, "rescan history", err)
	}

	if d.cfg.RescanOldestFirst {
		slices.Reverse(history)
	}

	handled := 0
	for _, msg := range history {
		if msg.ID == trigger.ID || !d.rescannable(msg) {
			continue
		}
		if err := d.links.HandleLink(ctx, d.linkFrom(msg)); err != nil {
			return fmt.Errorf("rescan stopped after %d links: %w", handled, err)
		}
		handled++
	}

	dctx, cancel := withTimeout(ctx, d.timeouts.Chat)
	defer cancel()
	if err := d.platform.Delete(dctx, trigger.ChannelID, trigger.ID); err != nil {
		return domain.NewRunError(trigger.ID, "delete rescan trigger", err)
	}

	d.logger.Info("rescan complete", "message_id", trigger.ID, "scanned", len(history), "handled", handled)
	return nil
}

func (d *Dispatcher) rescannable(msg chat.Message) bool {
	return !d.fromBot(msg) &&
		!strings.Contains(msg.Content, d.cfg.NoScanToken()) &&
		strings.Contains(msg.Content, d.cfg.DomainMarker)
}

func (d *Dispatcher) fromBot(msg chat.Message) bool {
	if msg.Author.Bot {
		return true
	}
	self := d.selfID()
	return self != "" && msg.Author.ID == self
}

func (d *Dispatcher) linkFrom(msg chat.Message) domain.Link {
	return domain.Link{
		URL:       domain.FindLinkURL(msg.Content, d.cfg.DomainMarker),
		MessageID: msg.ID,
		ChannelID: msg.ChannelID,
		Author:    msg.Author.Name,
	}
}

// ParseRescanCount reads the number following token in content. It returns
// def when there is no argument, and def with ok=false when the argument is
// not a non-negative integer. Counts above ceiling are capped.
func ParseRescanCount(content, token string, def, ceiling int) (count int, ok bool) {
	fields := strings.Fields(content)
	idx := slices.IndexFunc(fields, func(f string) bool { return strings.Contains(f, token) })

	count, ok = def, true
	if idx != -1 && idx+1 < len(fields) {
		n, err := strconv.Atoi(fields[idx+1])
		if err != nil || n < 0 {
			return def, false
		}
		count = n
	}
	if ceiling > 0 && count > ceiling {
		count = ceiling
	}
	return count, ok
}
