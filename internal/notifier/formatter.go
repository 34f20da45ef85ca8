package notifier

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"NewsletterDigest/internal/digest"
	"NewsletterDigest/internal/model"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

const (
	SummarySubject = "Market Newsletter Summary"

	NoSummary = "No summary available"
	NoTiming  = "No timing information available"
	NoEvents  = "No upcoming events available"
)

// Telegram rejects messages longer than this many characters.
const telegramLimit = 4096

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

// FormatMarkdown renders the digest as markdown: summary, timing, upcoming
// events and, when present, a table of the key levels.
func FormatMarkdown(d *model.Digest) string {
	var b strings.Builder
	b.WriteString("## Summary\n\n")
	b.WriteString(orDefault(d.Summary, NoSummary))
	b.WriteString("\n\n## Timing\n\n")
	b.WriteString(orDefault(d.TimingDetail, NoTiming))
	b.WriteString("\n\n## Upcoming Events\n\n")
	b.WriteString(orDefault(d.UpcomingEvents, NoEvents))
	b.WriteString("\n")

	if len(d.KeyLevels) > 0 {
		b.WriteString("\n## Key Levels\n\n")
		b.WriteString("| Level | Type | Severity | Note | Marker |\n")
		b.WriteString("| --- | --- | --- | --- | --- |\n")
		for _, lvl := range d.KeyLevels {
			marker := ""
			if lvl.NearestMarker != nil {
				marker = fmt.Sprintf("%s at %s", lvl.NearestMarker.MarkerType, digest.FormatPrice(lvl.NearestMarker.Price))
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				cell(lvl.PriceDisplay), lvl.Category, lvl.Severity, cell(lvl.Note), cell(marker))
		}
	}
	return b.String()
}

func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}

// FormatText renders the plain-text alternative of the summary email.
func FormatText(d *model.Digest) string {
	var b strings.Builder
	b.WriteString(SummarySubject)
	b.WriteString("\n\nSummary\n\n")
	b.WriteString(orDefault(d.Summary, NoSummary))
	b.WriteString("\n\nTiming\n\n")
	b.WriteString(orDefault(d.TimingDetail, NoTiming))
	b.WriteString("\n\nUpcoming Events\n\n")
	b.WriteString(orDefault(d.UpcomingEvents, NoEvents))
	b.WriteString("\n")
	return b.String()
}

// RenderHTML converts markdown to an HTML fragment.
func RenderHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// FormatPage renders the digest as a standalone HTML page.
func FormatPage(d *model.Digest) (string, error) {
	body, err := RenderHTML(FormatMarkdown(d))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s %s</title>\n", SummarySubject, html.EscapeString(d.NewsletterID))
	b.WriteString("<style>body{font-family:sans-serif;max-width:48rem;margin:2rem auto;line-height:1.5}" +
		"table{border-collapse:collapse}th,td{border:1px solid #ccc;padding:.25rem .5rem;text-align:left}</style>\n")
	b.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n", SummarySubject)
	if d.Subject != "" {
		fmt.Fprintf(&b, "<p><em>%s</em></p>\n", html.EscapeString(d.Subject))
	}
	b.WriteString(body)
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

// FormatTelegram renders the digest for the Telegram HTML parse mode, cutting
// the summary so the message stays under the API limit.
func FormatTelegram(d *model.Digest) string {
	var tail strings.Builder
	tail.WriteString("\n\n<b>Timing</b>\n")
	tail.WriteString(html.EscapeString(orDefault(d.TimingDetail, NoTiming)))
	tail.WriteString("\n\n<b>Upcoming Events</b>\n")
	tail.WriteString(html.EscapeString(orDefault(d.UpcomingEvents, NoEvents)))

	head := fmt.Sprintf("📰 <b>%s</b> | %s\n\n", SummarySubject, html.EscapeString(d.NewsletterID))
	budget := telegramLimit - utf8.RuneCountInString(head) - utf8.RuneCountInString(tail.String())
	return head + escapeWithin(orDefault(d.Summary, NoSummary), budget) + tail.String()
}

// escapeWithin HTML-escapes s, dropping trailing runes until the escaped
// form fits in max runes.
func escapeWithin(s string, max int) string {
	if max <= 0 {
		return ""
	}
	escaped := html.EscapeString(s)
	if utf8.RuneCountInString(escaped) <= max {
		return escaped
	}
	runes := []rune(s)
	for len(runes) > 0 {
		escaped = html.EscapeString(string(runes)) + "…"
		over := utf8.RuneCountInString(escaped) - max
		if over <= 0 {
			return escaped
		}
		// An escaped rune is at most five runes long.
		cut := (over + 4) / 5
		if cut > len(runes) {
			cut = len(runes)
		}
		runes = runes[:len(runes)-cut]
	}
	return ""
}
