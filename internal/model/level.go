package model

// Category identifies which part of the newsletter a price level came from.
type Category string

const (
	CategorySupport    Category = "support"
	CategoryResistance Category = "resistance"
	CategoryDetail     Category = "detail"
)

// Severity flags a level the author called out as "(major)".
type Severity string

const (
	SeverityNone  Severity = "none"
	SeverityMajor Severity = "major"
)

// MarkerRef is a reference price marker maintained outside the pipeline.
type MarkerRef struct {
	Price      float64 `json:"vdline"`
	MarkerType string  `json:"vdline_type"`
}

// PriceLevel is a single extracted price level.
type PriceLevel struct {
	Price         float64    `json:"price"`
	PriceDisplay  string     `json:"price_with_range"`
	RangeEnd      float64    `json:"range_end,omitempty"` // expanded end of a range, 0 when not a range
	Category      Category   `json:"type"`
	Severity      Severity   `json:"severity"`
	Note          string     `json:"note"`
	NearestMarker *MarkerRef `json:"nearest_marker,omitempty"`
}

// IsRange reports whether the level was written as a price range.
func (l PriceLevel) IsRange() bool {
	return l.RangeEnd != 0
}

// TradingPlanSections groups the levels parsed from the trading-plan narrative.
type TradingPlanSections struct {
	Supports    []PriceLevel
	Resistances []PriceLevel
}
