package chat

import (
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/tOgg1/reperage/internal/models"
)

// Placeholder is shown when a report has no messages.
type Placeholder struct {
	Title string
	Hint  string
}

// Entry is one rendered message.
type Entry struct {
	MessageID   int64
	AuthorClass models.AuthorType
	// AuthorName is plain text with any markup stripped.
	AuthorName string
	// AuthorHTML is AuthorName escaped for HTML contexts.
	AuthorHTML string
	Time       string
	// Lines holds the content split on newlines, verbatim.
	Lines []string
	// BodyHTML is the escaped content with newlines as <br>.
	BodyHTML string
}

// Display is the rendered form of a message list.
type Display struct {
	Entries     []Entry
	Placeholder *Placeholder
}

// Empty reports whether the display holds the placeholder.
func (d Display) Empty() bool {
	return d.Placeholder != nil
}

// Renderer turns message lists into displays. It is pure and safe for
// concurrent use.
type Renderer struct {
	loc    *time.Location
	lang   Language
	policy *bluemonday.Policy
}

// NewRenderer builds a renderer that formats times in loc.
func NewRenderer(loc *time.Location, lang Language) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{loc: loc, lang: lang, policy: bluemonday.StrictPolicy()}
}

// Render maps msgs in order. An empty list yields only the placeholder.
func (r *Renderer) Render(msgs []models.Message) Display {
	if len(msgs) == 0 {
		c := r.lang.strings()
		return Display{Placeholder: &Placeholder{Title: c.emptyTitle, Hint: c.emptyHint}}
	}
	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		entries = append(entries, r.entry(msg))
	}
	return Display{Entries: entries}
}

func (r *Renderer) entry(msg models.Message) Entry {
	safeName := r.policy.Sanitize(msg.AuthorName)
	content := normalizeNewlines(msg.Content)
	return Entry{
		MessageID:   msg.ID,
		AuthorClass: msg.AuthorType,
		AuthorName:  html.UnescapeString(safeName),
		AuthorHTML:  safeName,
		Time:        FormatTime(msg.CreatedAt, r.loc),
		Lines:       strings.Split(content, "\n"),
		BodyHTML:    EscapeBody(content),
	}
}

// EscapeBody escapes content for HTML and turns each newline into <br>.
func EscapeBody(content string) string {
	escaped := html.EscapeString(normalizeNewlines(content))
	return strings.ReplaceAll(escaped, "\n", "<br>")
}

// FormatTime renders t as 24-hour HH:MM in loc. The zero time renders empty.
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("15:04")
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
