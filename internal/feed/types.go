package feed

import (
	"strings"
	"time"
)

// Insight is one upstream content record. It is immutable from our side;
// the feed re-sends the most recent items on every fetch and we decide
// locally which ones are new.
type Insight struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"publishedAt"`

	// Background is either an image URL or a "#rrggbb" color token.
	Background string `json:"background,omitempty"`

	// Visual is an optional pre-rendered visualization image URL.
	Visual string `json:"visual,omitempty"`

	// ReadTime is an upstream-estimated reading time, e.g. "2 min".
	ReadTime string `json:"readTime,omitempty"`
}

// BackgroundIsColor reports whether Background is a color token rather
// than an image URL.
func (in Insight) BackgroundIsColor() bool {
	return strings.HasPrefix(in.Background, "#")
}

// PhotoURL returns the image URL usable for a direct photo message, or ""
// when the item carries none.
func (in Insight) PhotoURL() string {
	if in.Visual != "" {
		return in.Visual
	}
	if in.Background != "" && !in.BackgroundIsColor() {
		return in.Background
	}
	return ""
}
