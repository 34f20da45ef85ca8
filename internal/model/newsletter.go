package model

import "time"

// NewsletterIDLayout formats the received date into the newsletter identity.
const NewsletterIDLayout = "20060102"

// RawMessage is one newsletter email as delivered by the mail source.
type RawMessage struct {
	ReceivedAt time.Time
	Subject    string
	Body       string
}

// ParsedNewsletter is the structured result of one pipeline run.
type ParsedNewsletter struct {
	MarketSummary   string
	KeyLevels       []PriceLevel // merged, descending by price
	KeyLevelsRaw    string       // raw text of the key-levels section
	DetailLevels    []PriceLevel // key-levels table as written, before merging
	PlanSummary     string
	TradingPlanText string
	ComposedSummary string
	TimingDetail    string
	CleanedBody     string
}

// NewsletterRecord is everything persisted for one processed newsletter.
type NewsletterRecord struct {
	NewsletterID   string
	Message        *RawMessage
	Parsed         *ParsedNewsletter
	UpcomingEvents string
}

// Digest is the subset of a stored newsletter used for summary delivery and display.
type Digest struct {
	NewsletterID   string
	Subject        string
	Summary        string
	TimingDetail   string
	UpcomingEvents string
	KeyLevels      []PriceLevel
}
