package levels

import (
	"math"
	"sort"

	"NewsletterDigest/internal/model"
)

// DefaultMergeTolerance is the price distance at which a detail level is
// treated as the same level as a support or resistance.
const DefaultMergeTolerance = 3.0

// Merger unifies support/resistance levels with the detail table.
type Merger struct {
	Matcher   *Matcher
	Tolerance float64
}

// NewMerger returns a Merger using matcher for marker enrichment.
func NewMerger(matcher *Matcher) *Merger {
	if matcher == nil {
		matcher = NewMatcher()
	}
	return &Merger{Matcher: matcher, Tolerance: DefaultMergeTolerance}
}

// Merge builds the final key-level list.
//
// Supports then resistances are taken as the base list. Each detail level is
// matched first-fit against the list by price proximity; a match receives the
// detail note (the last matching detail wins), otherwise the detail level is
// appended. The result is sorted by price, highest first, keeping the insertion
// order of equal prices.
func (g *Merger) Merge(plan model.TradingPlanSections, details []model.PriceLevel, markers []model.MarkerRef) []model.PriceLevel {
	merged := make([]model.PriceLevel, 0, len(plan.Supports)+len(plan.Resistances)+len(details))

	for _, group := range [][]model.PriceLevel{plan.Supports, plan.Resistances} {
		for _, lvl := range group {
			lvl.Note = ""
			lvl.NearestMarker = g.Matcher.Find(lvl.Price, markers)
			merged = append(merged, lvl)
		}
	}

	for _, d := range details {
		if idx := g.firstWithin(merged, d.Price); idx >= 0 {
			merged[idx].Note = d.Note
			continue
		}
		d.Category = model.CategoryDetail
		d.Severity = model.SeverityNone
		d.NearestMarker = g.Matcher.Find(d.Price, markers)
		merged = append(merged, d)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Price > merged[j].Price
	})
	return merged
}

// Merge is Merger.Merge with default tolerances.
func Merge(plan model.TradingPlanSections, details []model.PriceLevel, markers []model.MarkerRef) []model.PriceLevel {
	return NewMerger(nil).Merge(plan, details, markers)
}

func (g *Merger) firstWithin(list []model.PriceLevel, price float64) int {
	for i := range list {
		if math.Abs(list[i].Price-price) <= g.Tolerance {
			return i
		}
	}
	return -1
}
