package parser

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"NewsletterDigest/internal/model"
)

var (
	detailLineRe    = regexp.MustCompile(`^(\d+(?:\.\d+)?):\s*(.*)$`)
	supportsRunRe   = regexp.MustCompile(`(?is)supports are:?(.*?)(?:resistances are:|$)`)
	resistanceRunRe = regexp.MustCompile(`(?is)resistances are:?(.*?)(?:in terms of|$)`)
	majorRe         = regexp.MustCompile(`(?i)\(\s*major\s*\)`)
	numberRe        = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	leadingNumberRe = regexp.MustCompile(`^\d+(?:\.\d+)?`)
	leadingDigitsRe = regexp.MustCompile(`^\d+`)
)

var (
	errNoPrice       = errors.New("no leading price")
	errRangeStart    = errors.New("range start is not a number")
	errRangeEnd      = errors.New("range end has no digits")
	errRangeEndWidth = errors.New("range end is wider than its start")
	errRangeEndShort = errors.New("range end is short for a fractional start")
)

// SkippedItem is a support/resistance item that could not be parsed.
type SkippedItem struct {
	Text   string
	Reason string
}

// ParseDetailLevels reads "<price>: <note>" lines from the key-levels section.
// Other lines are ignored.
func ParseDetailLevels(section string) []model.PriceLevel {
	levels := []model.PriceLevel{}
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		m := detailLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		price, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		levels = append(levels, model.PriceLevel{
			Price:        price,
			PriceDisplay: m[1],
			Category:     model.CategoryDetail,
			Severity:     model.SeverityNone,
			Note:         strings.TrimSpace(m[2]),
		})
	}
	return levels
}

// ParseSupportResistance reads the "Supports are:" and "Resistances are:"
// lists out of the trading-plan text. Items that cannot be parsed are dropped
// and reported back; an empty text yields empty lists.
func ParseSupportResistance(text string) (model.TradingPlanSections, []SkippedItem) {
	sections := model.TradingPlanSections{
		Supports:    []model.PriceLevel{},
		Resistances: []model.PriceLevel{},
	}
	var skipped []SkippedItem

	if run, ok := captureRun(supportsRunRe, text); ok {
		levels, bad := parseItems(run, model.CategorySupport)
		sections.Supports = append(sections.Supports, levels...)
		skipped = append(skipped, bad...)
	}
	if run, ok := captureRun(resistanceRunRe, text); ok {
		levels, bad := parseItems(run, model.CategoryResistance)
		sections.Resistances = append(sections.Resistances, levels...)
		skipped = append(skipped, bad...)
	}
	return sections, skipped
}

// captureRun returns the text following a list label, cut at the first blank line.
func captureRun(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	run := strings.ReplaceAll(m[1], "\r\n", "\n")
	if idx := strings.Index(run, "\n\n"); idx >= 0 {
		run = run[:idx]
	}
	return run, true
}

func parseItems(run string, category model.Category) ([]model.PriceLevel, []SkippedItem) {
	var levels []model.PriceLevel
	var skipped []SkippedItem
	for _, raw := range strings.Split(run, ",") {
		item := strings.TrimSpace(raw)
		if item == "" {
			continue
		}
		lvl, err := parseItem(item, category)
		if err != nil {
			skipped = append(skipped, SkippedItem{Text: item, Reason: err.Error()})
			continue
		}
		levels = append(levels, lvl)
	}
	return levels, skipped
}

func parseItem(item string, category model.Category) (model.PriceLevel, error) {
	lvl := model.PriceLevel{Category: category, Severity: model.SeverityNone}
	if majorRe.MatchString(item) {
		lvl.Severity = model.SeverityMajor
		item = majorRe.ReplaceAllString(item, "")
	}

	item = strings.TrimSpace(item)
	if len(item) > 4 && strings.EqualFold(item[:4], "and ") {
		item = strings.TrimSpace(item[4:])
	}
	item = strings.TrimRight(item, ".;: ")

	if strings.Contains(item, "-") {
		return parseRange(item, lvl)
	}

	tok := leadingNumberRe.FindString(item)
	if tok == "" {
		return lvl, errNoPrice
	}
	price, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return lvl, err
	}
	lvl.Price = price
	lvl.PriceDisplay = tok
	return lvl, nil
}

// parseRange handles "5700-05" style items. The displayed range keeps the
// shortened end; Price is the start value.
func parseRange(item string, lvl model.PriceLevel) (model.PriceLevel, error) {
	left, right, _ := strings.Cut(item, "-")
	left = strings.TrimSpace(left)
	right = strings.TrimSpace(right)

	if !numberRe.MatchString(left) {
		return lvl, errRangeStart
	}
	endDigits := leadingDigitsRe.FindString(right)
	if endDigits == "" {
		return lvl, errRangeEnd
	}

	start, err := strconv.ParseFloat(left, 64)
	if err != nil {
		return lvl, errRangeStart
	}
	end, err := expandRangeEnd(left, endDigits)
	if err != nil {
		return lvl, err
	}

	lvl.Price = start
	lvl.RangeEnd = end
	lvl.PriceDisplay = left + "-" + endDigits
	return lvl, nil
}

// expandRangeEnd borrows the leading digits of start when the end is written
// short ("5700", "05" -> 5705). A borrowed end below the start rolls over to
// the next block ("5798", "02" -> 5802). A short end after a fractional start
// ("5700.5-75") is ambiguous and rejected.
func expandRangeEnd(start, end string) (float64, error) {
	intPart, frac, _ := strings.Cut(start, ".")
	if len(end) > len(intPart) {
		return 0, errRangeEndWidth
	}
	if frac != "" && len(end) < len(intPart) {
		return 0, errRangeEndShort
	}

	full := intPart[:len(intPart)-len(end)] + end
	v, err := strconv.ParseFloat(full, 64)
	if err != nil {
		return 0, err
	}
	s, err := strconv.ParseFloat(start, 64)
	if err != nil {
		return 0, err
	}
	if len(end) < len(intPart) && v < s {
		v += math.Pow10(len(end))
	}
	return v, nil
}
