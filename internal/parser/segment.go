package parser

import (
	"regexp"
	"strings"
)

// Segmenter splits prose into sentences. A language-aware splitter can be
// supplied to the digest engine; RegexSegmenter is the default.
type Segmenter interface {
	Sentences(text string) []string
}

// RegexSegmenter ends a sentence at '.', '!' or '?' followed by whitespace.
type RegexSegmenter struct{}

var sentenceEndRe = regexp.MustCompile(`[.!?]\s+`)

func (RegexSegmenter) Sentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var out []string
	prev := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		if s := oneLine(text[prev : loc[0]+1]); s != "" {
			out = append(out, s)
		}
		prev = loc[1]
	}
	if s := oneLine(text[prev:]); s != "" {
		out = append(out, s)
	}
	return out
}

// PlanSummary returns the document's Plan Summary section on one line, or
// else the first sentence of the trading plan.
func PlanSummary(doc, tradingPlan string, seg Segmenter) string {
	if s := ExtractSection(doc, PlanSummarySection); s != "" {
		return oneLine(s)
	}
	if seg == nil {
		seg = RegexSegmenter{}
	}
	sentences := seg.Sentences(tradingPlan)
	if len(sentences) == 0 {
		return ""
	}
	return sentences[0]
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
