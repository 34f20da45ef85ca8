package digest

import (
	"errors"
	"time"

	"NewsletterDigest/internal/levels"
	"NewsletterDigest/internal/model"
	"NewsletterDigest/internal/parser"

	"github.com/ternarybob/arbor"
)

// Options tunes the extraction engine.
type Options struct {
	MarkerTolerance   float64
	MergeTolerance    float64
	DemotedMarkerType string
	Location          *time.Location
	Segmenter         parser.Segmenter
}

// Report lists what the engine recovered from while parsing.
type Report struct {
	MissingSections   []string
	MalformedSections []string
	Skipped           []parser.SkippedItem
}

// Engine turns a newsletter body into a ParsedNewsletter.
type Engine struct {
	merger    *levels.Merger
	segmenter parser.Segmenter
	location  *time.Location
	logger    arbor.ILogger
}

// NewEngine creates an Engine. Zero option values fall back to the defaults.
func NewEngine(opts Options, logger arbor.ILogger) *Engine {
	matcher := levels.NewMatcher()
	if opts.MarkerTolerance > 0 {
		matcher.Tolerance = opts.MarkerTolerance
	}
	if opts.DemotedMarkerType != "" {
		matcher.DemotedType = opts.DemotedMarkerType
	}
	merger := levels.NewMerger(matcher)
	if opts.MergeTolerance > 0 {
		merger.Tolerance = opts.MergeTolerance
	}
	if opts.Segmenter == nil {
		opts.Segmenter = parser.RegexSegmenter{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Engine{
		merger:    merger,
		segmenter: opts.Segmenter,
		location:  opts.Location,
		logger:    logger,
	}
}

// Parse runs normalization, section extraction, level parsing, marker
// matching, merging and composition over one newsletter body. Malformed
// sections and items never fail the run; they are listed in the Report.
func (e *Engine) Parse(body string, markers []model.MarkerRef, now time.Time) (*model.ParsedNewsletter, *Report) {
	report := &Report{}
	doc := parser.Normalize(body)

	commentary := e.section(doc, parser.MarketCommentarySection, report)
	keyLevelsRaw := e.section(doc, parser.KeyLevelsSection, report)
	tradingPlan := e.section(doc, parser.TradePlanSection, report)

	marketSummary := commentary
	if marketSummary == "" {
		marketSummary = parser.ExtractSection(doc, parser.MarketSummarySection)
	}

	details := parser.ParseDetailLevels(keyLevelsRaw)

	srSource := tradingPlan
	if srSource == "" {
		srSource = doc
	}
	plan, skipped := parser.ParseSupportResistance(srSource)
	report.Skipped = skipped
	for _, s := range skipped {
		e.logger.Warn().Str("item", s.Text).Str("reason", s.Reason).Msg("Skipped unparseable level")
	}

	parsed := &model.ParsedNewsletter{
		MarketSummary:   marketSummary,
		KeyLevels:       e.merger.Merge(plan, details, markers),
		KeyLevelsRaw:    keyLevelsRaw,
		DetailLevels:    details,
		TradingPlanText: tradingPlan,
		PlanSummary:     parser.PlanSummary(doc, tradingPlan, e.segmenter),
		TimingDetail:    TimingDetail(now, e.location),
		CleanedBody:     doc,
	}
	parsed.ComposedSummary = Compose(parsed)

	e.logger.Debug().
		Int("supports", len(plan.Supports)).
		Int("resistances", len(plan.Resistances)).
		Int("details", len(details)).
		Int("key_levels", len(parsed.KeyLevels)).
		Int("skipped", len(skipped)).
		Msg("Newsletter parsed")

	return parsed, report
}

func (e *Engine) section(doc, name string, report *Report) string {
	text, err := parser.Lookup(doc, name)
	switch {
	case errors.Is(err, parser.ErrSectionNotFound):
		report.MissingSections = append(report.MissingSections, name)
		e.logger.Debug().Str("section", name).Msg("Section not present")
	case err != nil:
		report.MalformedSections = append(report.MalformedSections, name)
		e.logger.Warn().Err(err).Str("section", name).Msg("Section markers malformed")
	}
	return text
}
