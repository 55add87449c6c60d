// Package discord implements chat.Platform on top of discordgo.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"
	"github.com/gabriel-vasile/mimetype"

	"github.com/iconidentify/tokgrabba/internal/chat"
	"github.com/iconidentify/tokgrabba/internal/domain"
)

// maxHistoryPage is the largest page Discord returns for channel history.
const maxHistoryPage = 100

// threadArchiveMinutes is how long an idle slideshow thread stays open.
const threadArchiveMinutes = 1440

// Intents the bot needs to read message text and manage reactions.
const Intents = discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsMessageContent

// Client is a Discord session implementing chat.Platform.
type Client struct {
	session *discordgo.Session
	logger  *slog.Logger
}

// New creates a client for a bot token. The session is not opened.
func New(token string, logger *slog.Logger) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = Intents

	return &Client{
		session: session,
		logger:  logger,
	}, nil
}

// OnMessage registers fn for every message created in a visible channel.
// discordgo runs each handler call in its own goroutine.
func (c *Client) OnMessage(fn func(chat.Message)) {
	c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Message == nil {
			return
		}
		fn(toMessage(m.Message))
	})
}

// Open connects to the gateway.
func (c *Client) Open() error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	if c.session.State != nil && c.session.State.User != nil {
		c.logger.Info("logged in", "user", c.session.State.User.Username)
	}
	return nil
}

// Close disconnects from the gateway.
func (c *Client) Close() error {
	return c.session.Close()
}

// SelfID returns the bot user's ID once the session is open.
func (c *Client) SelfID() string {
	if c.session.State == nil || c.session.State.User == nil {
		return ""
	}
	return c.session.State.User.ID
}

// Send posts a text message.
func (c *Client) Send(ctx context.Context, channelID domain.ChannelID, content string) (*chat.Message, error) {
	msg, err := c.session.ChannelMessageSend(channelID.String(), content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	out := toMessage(msg)
	return &out, nil
}

// SendFile posts a message with a file attachment.
func (c *Client) SendFile(ctx context.Context, channelID domain.ChannelID, content, path string) (*chat.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(path); err == nil {
		contentType = mt.String()
	}

	msg, err := c.session.ChannelMessageSendComplex(channelID.String(), &discordgo.MessageSend{
		Content: content,
		Files: []*discordgo.File{{
			Name:        filepath.Base(path),
			ContentType: contentType,
			Reader:      f,
		}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	out := toMessage(msg)
	return &out, nil
}

// Delete removes a message.
func (c *Client) Delete(ctx context.Context, channelID domain.ChannelID, messageID domain.MessageID) error {
	if err := c.session.ChannelMessageDelete(channelID.String(), messageID.String(), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// React adds a reaction as the bot user.
func (c *Client) React(ctx context.Context, channelID domain.ChannelID, messageID domain.MessageID, emoji string) error {
	if err := c.session.MessageReactionAdd(channelID.String(), messageID.String(), emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("add reaction: %w", err)
	}
	return nil
}

// Unreact removes the bot user's reaction.
func (c *Client) Unreact(ctx context.Context, channelID domain.ChannelID, messageID domain.MessageID, emoji string) error {
	if err := c.session.MessageReactionRemove(channelID.String(), messageID.String(), emoji, "@me", discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("remove reaction: %w", err)
	}
	return nil
}

// StartThread creates a public thread from a message.
func (c *Client) StartThread(ctx context.Context, channelID domain.ChannelID, messageID domain.MessageID, name string) (domain.ChannelID, error) {
	ch, err := c.session.MessageThreadStart(channelID.String(), messageID.String(), name, threadArchiveMinutes, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("start thread: %w", err)
	}
	return domain.ChannelID(ch.ID), nil
}

// History pages backwards through the channel until limit messages are read.
func (c *Client) History(ctx context.Context, channelID domain.ChannelID, limit int) ([]chat.Message, error) {
	var (
		out    []chat.Message
		before string
	)
	for len(out) < limit {
		page := limit - len(out)
		if page > maxHistoryPage {
			page = maxHistoryPage
		}

		msgs, err := c.session.ChannelMessages(channelID.String(), page, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("read channel history: %w", err)
		}
		for _, m := range msgs {
			out = append(out, toMessage(m))
		}
		if len(msgs) < page {
			break
		}
		before = msgs[len(msgs)-1].ID
	}
	return out, nil
}

func toMessage(m *discordgo.Message) chat.Message {
	msg := chat.Message{
		ID:        domain.MessageID(m.ID),
		ChannelID: domain.ChannelID(m.ChannelID),
		Content:   m.Content,
	}
	if m.Author != nil {
		msg.Author = chat.Author{
			ID:   m.Author.ID,
			Name: m.Author.Username,
			Bot:  m.Author.Bot,
		}
	}
	return msg
}

var _ chat.Platform = (*Client)(nil)
