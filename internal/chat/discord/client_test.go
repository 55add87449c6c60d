package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestToMessage(t *testing.T) {
	m := &discordgo.Message{
		ID:        "111",
		ChannelID: "222",
		Content:   "https://www.tiktok.com/t/abc/",
		Author: &discordgo.User{
			ID:       "333",
			Username: "someone",
			Bot:      false,
		},
	}

	got := toMessage(m)

	if got.ID != "111" || got.ChannelID != "222" {
		t.Errorf("ids = %q/%q, want 111/222", got.ID, got.ChannelID)
	}
	if got.Content != m.Content {
		t.Errorf("Content = %q, want %q", got.Content, m.Content)
	}
	if got.Author.Name != "someone" || got.Author.ID != "333" || got.Author.Bot {
		t.Errorf("unexpected author: %+v", got.Author)
	}
}

func TestToMessage_NoAuthor(t *testing.T) {
	got := toMessage(&discordgo.Message{ID: "1"})
	if got.Author.Name != "" || got.Author.Bot {
		t.Errorf("author should be zero, got %+v", got.Author)
	}
}

func TestNew_SetsIntents(t *testing.T) {
	c, err := New("token", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.session.Identify.Intents != Intents {
		t.Errorf("Intents = %v, want %v", c.session.Identify.Intents, Intents)
	}
	if c.SelfID() != "" {
		t.Error("SelfID should be empty before the session opens")
	}
}
