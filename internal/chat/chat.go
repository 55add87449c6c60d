// Package chat defines the chat-platform boundary used by the pipeline.
package chat

import (
	"context"

	"github.com/iconidentify/tokgrabba/internal/domain"
)

// Author identifies who wrote a message.
type Author struct {
	ID   string
	Name string
	Bot  bool
}

// Message is an inbound or sent chat message.
type Message struct {
	ID        domain.MessageID
	ChannelID domain.ChannelID
	Content   string
	Author    Author
}

// Platform is the set of chat operations the pipeline needs.
// Implementations must be safe for concurrent use.
type Platform interface {
	// Send posts a text message to a channel or thread.
	Send(ctx context.Context, channelID domain.ChannelID, content string) (*Message, error)

	// SendFile posts a message with one attached file.
	SendFile(ctx context.Context, channelID domain.ChannelID, content, path string) (*Message, error)

	// Delete removes a message.
	Delete(ctx context.Context, channelID domain.ChannelID, messageID domain.MessageID) error

	// React adds the bot's reaction to a message.
	React(ctx context.Context, channelID domain.ChannelID, messageID domain.MessageID, emoji string) error

	// Unreact removes the bot's own reaction from a message.
	Unreact(ctx context.Context, channelID domain.ChannelID, messageID domain.MessageID, emoji string) error

	// StartThread creates a thread anchored to a message and returns its channel ID.
	StartThread(ctx context.Context, channelID domain.ChannelID, messageID domain.MessageID, name string) (domain.ChannelID, error)

	// History returns up to limit of the most recent channel messages, newest first.
	History(ctx context.Context, channelID domain.ChannelID, limit int) ([]Message, error)
}
