package domain

import (
	"net/url"
	"strings"
)

// MessageID identifies a chat message.
type MessageID string

// String returns the string representation of the MessageID.
func (id MessageID) String() string {
	return string(id)
}

// ChannelID identifies a chat channel or thread.
type ChannelID string

// String returns the string representation of the ChannelID.
func (id ChannelID) String() string {
	return string(id)
}

// Link is a platform URL found in a chat message. It only lives for one run.
type Link struct {
	URL       string
	MessageID MessageID
	ChannelID ChannelID
	Author    string
}

// FindLinkURL returns the first whitespace-separated token of content that
// contains marker. If no token matches, the trimmed content is returned.
func FindLinkURL(content, marker string) string {
	for _, field := range strings.Fields(content) {
		if strings.Contains(field, marker) {
			return strings.Trim(field, "<>")
		}
	}
	return strings.TrimSpace(content)
}

// WithoutQuery returns the link with any query string and fragment removed.
func (l Link) WithoutQuery() string {
	s := l.URL
	if i := strings.IndexAny(s, "?#"); i != -1 {
		s = s[:i]
	}
	return s
}

// Slug returns the last path segment of the link, e.g. the numeric post ID
// of ".../video/7221939078197955846/" or the short code of ".../t/ZTR3us331/".
func (l Link) Slug() string {
	raw := l.WithoutQuery()
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	}
	raw = strings.TrimSuffix(raw, "/")
	if i := strings.LastIndex(raw, "/"); i != -1 {
		return raw[i+1:]
	}
	return raw
}
