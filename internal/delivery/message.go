package delivery

import (
	"html"
	"strings"
	"unicode/utf8"

	"insightbot/internal/feed"
)

// insightLink builds the public URL for one insight.
func insightLink(base, id string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/insights/" + id
}

// messageText is the full text-message body: the insight, the estimated
// read time, and a link. HTML parse mode is assumed; the upstream text is
// escaped, our own markup is not.
func messageText(in feed.Insight, linkBase string) string {
	var b strings.Builder
	b.WriteString(html.EscapeString(in.Text))

	if in.ReadTime != "" {
		b.WriteString("\n\n")
		b.WriteString("⏱ ")
		b.WriteString(html.EscapeString(in.ReadTime))
	}
	if link := insightLink(linkBase, in.ID); link != "" {
		b.WriteString("\n\n")
		b.WriteString(`<a href="` + link + `">Read the full insight</a>`)
	}
	return b.String()
}

// photoCaption is the shorter body attached to photo representations,
// where the image already carries the insight text or visualization.
func photoCaption(in feed.Insight, linkBase string) string {
	var b strings.Builder
	if in.ReadTime != "" {
		b.WriteString("⏱ ")
		b.WriteString(html.EscapeString(in.ReadTime))
	}
	if link := insightLink(linkBase, in.ID); link != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(`<a href="` + link + `">Read the full insight</a>`)
	}
	if b.Len() == 0 {
		return truncate(html.EscapeString(in.Text), 1024)
	}
	return b.String()
}

// truncate caps s at max characters. Telegram counts caption length in
// characters, not bytes, so multibyte text gets the full budget.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-1]) + "…"
}
