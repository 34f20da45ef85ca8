package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrSectionNotFound is returned when the document has no marker for a section.
	ErrSectionNotFound = errors.New("section not found")
	// ErrMalformedSection is returned when a section's markers are unbalanced or repeated.
	ErrMalformedSection = errors.New("malformed section markers")
)

var (
	markerLineRe      = regexp.MustCompile(`(?m)^\[\[([^\[\]/][^\[\]]*)\]\](.*)$`)
	weekdayPlanNameRe = regexp.MustCompile(`^Trade Plan (Monday|Tuesday|Wednesday|Thursday|Friday)$`)
)

// Span locates one marked section inside a normalized document. Start and
// End delimit the section content, after the header's end marker and up to
// the next start marker.
type Span struct {
	Name      string
	Header    string
	Start     int
	End       int
	Malformed bool
}

// Sections lists the marked sections of a normalized document in order.
// A marker only counts when it opens a line; "[[x]]" inside content is text.
// An unterminated marker line is reported as malformed when it names a known
// section and is treated as content otherwise.
func Sections(doc string) []Span {
	var spans []Span
	var starts []int
	for _, loc := range markerLineRe.FindAllStringSubmatchIndex(doc, -1) {
		name := doc[loc[2]:loc[3]]
		rest := doc[loc[4]:loc[5]]
		end := endMarker(name)

		span := Span{Name: name, Start: loc[5]}
		if strings.HasSuffix(rest, end) {
			span.Header = rest[:len(rest)-len(end)]
		} else if knownSection(name) {
			span.Start = loc[3] + 2
			span.Malformed = true
		} else {
			continue
		}
		spans = append(spans, span)
		starts = append(starts, loc[0])
	}

	for i := range spans {
		spans[i].End = len(doc)
		if i+1 < len(spans) {
			spans[i].End = starts[i+1]
		}
	}
	return spans
}

func knownSection(name string) bool {
	switch name {
	case MarketSummarySection, ClosingSection:
		return true
	}
	for _, h := range headers {
		if h.Name == name {
			return true
		}
	}
	return weekdayPlanNameRe.MatchString(name)
}

// Lookup returns the trimmed content of the named section. The canonical
// trade-plan name also resolves to a weekday form such as "Trade Plan Monday".
func Lookup(doc, name string) (string, error) {
	spans := Sections(doc)

	matches := findSpans(spans, func(s Span) bool { return strings.EqualFold(s.Name, name) })
	if len(matches) == 0 && strings.EqualFold(name, TradePlanSection) {
		matches = findSpans(spans, func(s Span) bool { return weekdayPlanNameRe.MatchString(s.Name) })
	}

	switch {
	case len(matches) == 0:
		return "", fmt.Errorf("%w: %s", ErrSectionNotFound, name)
	case len(matches) > 1:
		return "", fmt.Errorf("%w: %s appears %d times", ErrMalformedSection, name, len(matches))
	case matches[0].Malformed:
		return "", fmt.Errorf("%w: %s has no end marker", ErrMalformedSection, name)
	}
	return strings.TrimSpace(doc[matches[0].Start:matches[0].End]), nil
}

// ExtractSection is Lookup that degrades to an empty string.
func ExtractSection(doc, name string) string {
	text, err := Lookup(doc, name)
	if err != nil {
		return ""
	}
	return text
}

func findSpans(spans []Span, match func(Span) bool) []Span {
	var out []Span
	for _, s := range spans {
		if match(s) {
			out = append(out, s)
		}
	}
	return out
}
