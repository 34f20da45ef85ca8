package parser

import (
	"regexp"
	"strings"
	"unicode"
)

// Section names emitted as markers by Normalize.
const (
	MarketSummarySection    = "Market Summary"
	MarketCommentarySection = "Market Commentary"
	KeyLevelsSection        = "Key Levels"
	TradePlanSection        = "Trade Plan"
	PlanSummarySection      = "Plan Summary"
	ClosingSection          = "Closing"
)

// header maps the phrases a newsletter uses for a section onto its marker name.
type header struct {
	Name    string
	Phrases []string
}

// headers is checked in order; the weekday trade-plan form is handled before it.
var headers = []header{
	{Name: MarketCommentarySection, Phrases: []string{"Market Commentary"}},
	{Name: KeyLevelsSection, Phrases: []string{"Key Levels", "Key Signals"}},
	{Name: TradePlanSection, Phrases: []string{"Trade Plan", "Trading Plan"}},
	{Name: PlanSummarySection, Phrases: []string{"Plan Summary"}},
}

// footerMarkers end the useful part of the message.
var footerMarkers = []string{
	"unsubscribe",
	"manage your subscription",
	"update your email preferences",
	"you are receiving this email because",
	"you're receiving this email because",
}

var (
	viewerLineRe   = regexp.MustCompile(`(?im)^.*view[ \t]+this[ \t]+(?:email|post)[ \t]+(?:in|on)\b.*(?:\n|$)`)
	footerRe       = buildFooterRe(footerMarkers)
	spaceRunRe     = regexp.MustCompile(`[ \t\x{00a0}]+`)
	tradePlanDayRe = regexp.MustCompile(`(?i)^trade plan (monday|tuesday|wednesday|thursday|friday)\b`)
)

const headerDecoration = "*#_=-~ \t"

func buildFooterRe(markers []string) *regexp.Regexp {
	quoted := make([]string, len(markers))
	for i, m := range markers {
		quoted[i] = regexp.QuoteMeta(m)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}

func startMarker(name string) string { return "[[" + name + "]]" }
func endMarker(name string) string   { return "[[/" + name + "]]" }

// block is one section of the document while it is being scanned.
type block struct {
	name   string
	header string
	lines  []string
}

// Normalize cleans a newsletter body and delimits its sections with markers.
//
// The result starts with a synthetic Market Summary marker, ends with a
// synthetic Closing marker, and wraps every recognised section header as
// [[Name]]Header[[/Name]] on its own line. Normalizing an already normalized
// document returns it unchanged.
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	if loc := viewerLineRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]] + text[loc[1]:]
	}
	if loc := footerRe.FindStringIndex(text); loc != nil {
		text = text[:lineStart(text, loc[0])]
	}

	return render(scanBlocks(text))
}

// scanBlocks walks the text once, line by line, opening a new block at each
// first occurrence of a section header.
func scanBlocks(text string) []*block {
	blocks := []*block{{name: MarketSummarySection}}
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(spaceRunRe.ReplaceAllString(line, " "))
		if isSeparator(line) {
			continue
		}
		if name, _, ok := parseMarkerLine(line); ok && (name == MarketSummarySection || name == ClosingSection) {
			continue
		}

		if m, ok := matchHeader(line); ok && !seen[m.family] {
			seen[m.family] = true
			b := &block{name: m.name, header: m.header}
			if m.rest != "" {
				b.lines = append(b.lines, m.rest)
			}
			blocks = append(blocks, b)
			continue
		}

		cur := blocks[len(blocks)-1]
		cur.lines = append(cur.lines, line)
	}
	return blocks
}

func render(blocks []*block) string {
	var b strings.Builder
	for i, blk := range blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(startMarker(blk.name))
		b.WriteString(blk.header)
		b.WriteString(endMarker(blk.name))
		if body := joinCollapsed(blk.lines); body != "" {
			b.WriteString("\n\n")
			b.WriteString(body)
		}
	}
	b.WriteString("\n\n")
	b.WriteString(startMarker(ClosingSection))
	b.WriteString(endMarker(ClosingSection))
	b.WriteString("\n")
	return b.String()
}

// joinCollapsed joins lines, dropping leading and trailing blank lines and
// keeping at most one blank line between paragraphs.
func joinCollapsed(lines []string) string {
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		if l == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

type headerMatch struct {
	family string // section family used to emit each section once
	name   string // marker name
	header string // header text as written
	rest   string // content following "Header:" on the same line
}

func matchHeader(line string) (headerMatch, bool) {
	if name, head, ok := parseMarkerLine(line); ok {
		return headerMatch{family: familyOf(name), name: name, header: head}, true
	}

	body := strings.TrimLeft(line, headerDecoration)
	if body == "" {
		return headerMatch{}, false
	}

	if loc := tradePlanDayRe.FindStringSubmatchIndex(body); loc != nil {
		day := titleWord(body[loc[2]:loc[3]])
		if rest, ok := headerRest(body[loc[1]:]); ok {
			return headerMatch{
				family: TradePlanSection,
				name:   TradePlanSection + " " + day,
				header: body[:loc[1]],
				rest:   rest,
			}, true
		}
	}

	for _, h := range headers {
		for _, phrase := range h.Phrases {
			if len(body) < len(phrase) || !strings.EqualFold(body[:len(phrase)], phrase) {
				continue
			}
			if rest, ok := headerRest(body[len(phrase):]); ok {
				return headerMatch{family: h.Name, name: h.Name, header: body[:len(phrase)], rest: rest}, true
			}
		}
	}
	return headerMatch{}, false
}

// headerRest decides whether what follows a header phrase still makes the
// line a header: nothing but decoration, or a colon followed by content.
func headerRest(after string) (string, bool) {
	after = strings.TrimLeft(after, headerDecoration)
	if after == "" {
		return "", true
	}
	if after[0] != ':' {
		return "", false
	}
	return strings.TrimSpace(strings.TrimLeft(after[1:], headerDecoration)), true
}

// parseMarkerLine recognises a line that is already a rendered section header.
func parseMarkerLine(line string) (name, head string, ok bool) {
	if !strings.HasPrefix(line, "[[") || strings.HasPrefix(line, "[[/") {
		return "", "", false
	}
	closeIdx := strings.Index(line, "]]")
	if closeIdx < 0 {
		return "", "", false
	}
	name = line[2:closeIdx]
	end := endMarker(name)
	if name == "" || !strings.HasSuffix(line, end) || len(line) < closeIdx+2+len(end) {
		return "", "", false
	}
	return name, line[closeIdx+2 : len(line)-len(end)], true
}

func familyOf(name string) string {
	if strings.HasPrefix(name, TradePlanSection+" ") {
		return TradePlanSection
	}
	return name
}

// isSeparator reports whether a line is only a decorative run of symbols.
func isSeparator(line string) bool {
	count := 0
	for _, r := range line {
		if r == ' ' {
			continue
		}
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
		count++
	}
	return count >= 3
}

func lineStart(text string, idx int) int {
	return strings.LastIndex(text[:idx], "\n") + 1
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}
