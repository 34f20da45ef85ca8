package digest

import (
	"fmt"
	"strconv"
	"strings"

	"NewsletterDigest/internal/model"
)

// Block headers of the composed summary, in output order.
const (
	KeyLevelsHeader        = "Key Levels:"
	DetailedLevelsHeader   = "Detailed Key Levels:"
	MarketCommentaryHeader = "Market Commentary:"
	TradingPlanHeader      = "Trading Plan:"
	PlanSummaryHeader      = "Plan Summary:"
)

// Compose renders the parsed newsletter as labelled text blocks. Every block
// is written, with an empty body when there is nothing to show. The detailed
// block lists DetailLevels, not the merged KeyLevels.
func Compose(p *model.ParsedNewsletter) string {
	if p == nil {
		p = &model.ParsedNewsletter{}
	}

	var prices, details []string
	for _, lvl := range p.KeyLevels {
		prices = append(prices, FormatLevel(lvl))
	}
	// Detail lines keep the price they were written with, even when the
	// level merged into a nearby support or resistance.
	for _, lvl := range p.DetailLevels {
		if lvl.Note == "" {
			details = append(details, lvl.PriceDisplay+":")
			continue
		}
		details = append(details, fmt.Sprintf("%s: %s", lvl.PriceDisplay, lvl.Note))
	}

	blocks := []struct{ header, body string }{
		{KeyLevelsHeader, strings.Join(prices, "\n")},
		{DetailedLevelsHeader, strings.Join(details, "\n")},
		{MarketCommentaryHeader, p.MarketSummary},
		{TradingPlanHeader, p.TradingPlanText},
		{PlanSummaryHeader, p.PlanSummary},
	}

	var b strings.Builder
	for i, blk := range blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(blk.header)
		b.WriteString("\n")
		b.WriteString(blk.body)
	}
	return b.String()
}

// FormatLevel renders a level's price, annotated with its marker when it has one.
func FormatLevel(lvl model.PriceLevel) string {
	if lvl.NearestMarker == nil {
		return lvl.PriceDisplay
	}
	return fmt.Sprintf("%s [%s at %s]", lvl.PriceDisplay, lvl.NearestMarker.MarkerType, FormatPrice(lvl.NearestMarker.Price))
}

// FormatPrice prints a price without trailing zeros.
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
