// Package pipeline runs the process-one-newsletter job and the operations
// built on its stored output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"NewsletterDigest/internal/calendar"
	"NewsletterDigest/internal/collector"
	"NewsletterDigest/internal/digest"
	"NewsletterDigest/internal/model"
	"NewsletterDigest/internal/notifier"
	"NewsletterDigest/internal/recorder"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
)

// ErrAlreadyProcessed is returned when the latest newsletter is already stored.
var ErrAlreadyProcessed = errors.New("newsletter already processed")

const defaultRetries = 3

// Result describes one successful processing run.
type Result struct {
	RunID        string
	NewsletterID string
	Subject      string
	Parsed       *model.ParsedNewsletter
	Report       *digest.Report
}

// Processor wires the mail collector, extraction engine, store and
// delivery channels together.
type Processor struct {
	collector *collector.Collector
	engine    *digest.Engine
	store     recorder.Store
	notifiers []notifier.Notifier
	location  *time.Location
	logger    arbor.ILogger

	Retries int
	now     func() time.Time
}

// NewProcessor creates a Processor. loc decides the calendar date that
// identifies a newsletter.
func NewProcessor(col *collector.Collector, engine *digest.Engine, store recorder.Store, loc *time.Location, logger arbor.ILogger, notifiers ...notifier.Notifier) *Processor {
	if loc == nil {
		loc = time.UTC
	}
	return &Processor{
		collector: col,
		engine:    engine,
		store:     store,
		notifiers: notifiers,
		location:  loc,
		logger:    logger,
		Retries:   defaultRetries,
		now:       time.Now,
	}
}

// NewsletterID derives the newsletter identity from its received date.
func NewsletterID(receivedAt time.Time, loc *time.Location) string {
	return receivedAt.In(loc).Format(model.NewsletterIDLayout)
}

// ProcessLatest fetches the newest newsletter, extracts it and stores the
// result. A newsletter whose id is already stored is not processed again.
// Nothing is written unless every step succeeds.
func (p *Processor) ProcessLatest(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	p.logger.Info().Str("run_id", runID).Msg("Processing latest newsletter")

	msg, err := p.collector.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect newsletter: %w", err)
	}

	id := NewsletterID(msg.ReceivedAt, p.location)
	exists, err := p.store.NewsletterExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if exists {
		p.logger.Info().Str("run_id", runID).Str("newsletter_id", id).Msg("Newsletter already processed, skipping")
		return nil, fmt.Errorf("%s: %w", id, ErrAlreadyProcessed)
	}

	markers, err := p.store.Markers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load markers: %w", err)
	}
	if len(markers) == 0 {
		p.logger.Warn().Str("run_id", runID).Msg("No reference markers loaded, levels will not be annotated")
	}

	parsed, report := p.engine.Parse(msg.Body, markers, p.now())

	events, err := calendar.Upcoming(ctx, p.store, msg.ReceivedAt.In(p.location))
	if err != nil {
		p.logger.Warn().Err(err).Str("run_id", runID).Msg("Upcoming events unavailable")
		events = ""
	}

	rec := &model.NewsletterRecord{
		NewsletterID:   id,
		Message:        msg,
		Parsed:         parsed,
		UpcomingEvents: events,
	}
	if err := p.store.SaveNewsletter(ctx, rec); err != nil {
		return nil, fmt.Errorf("save newsletter %s: %w", id, err)
	}

	p.logger.Info().
		Str("run_id", runID).
		Str("newsletter_id", id).
		Str("subject", msg.Subject).
		Int("key_levels", len(parsed.KeyLevels)).
		Int("skipped_items", len(report.Skipped)).
		Strs("missing_sections", report.MissingSections).
		Msg("Newsletter processed")

	return &Result{
		RunID:        runID,
		NewsletterID: id,
		Subject:      msg.Subject,
		Parsed:       parsed,
		Report:       report,
	}, nil
}

// DeleteLatest removes the most recently received newsletter and everything
// derived from it.
func (p *Processor) DeleteLatest(ctx context.Context) (string, error) {
	id, err := p.store.DeleteMostRecent(ctx)
	if err != nil {
		return "", fmt.Errorf("delete most recent newsletter: %w", err)
	}
	return id, nil
}

// LatestDigest returns the stored digest of the most recent newsletter.
func (p *Processor) LatestDigest(ctx context.Context) (*model.Digest, error) {
	d, err := p.store.LatestDigest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest digest: %w", err)
	}
	return d, nil
}

// SendSummary delivers the latest digest over every configured channel. A
// failing channel does not stop the others; all failures are returned.
func (p *Processor) SendSummary(ctx context.Context) error {
	if len(p.notifiers) == 0 {
		return errors.New("no delivery channel configured")
	}
	d, err := p.LatestDigest(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, n := range p.notifiers {
		if err := notifier.SendWithRetry(ctx, n, d, p.Retries, p.logger); err != nil {
			p.logger.Error().Err(err).Str("channel", n.Name()).Msg("Summary delivery failed")
			errs = append(errs, err)
			continue
		}
		p.logger.Info().Str("channel", n.Name()).Str("newsletter_id", d.NewsletterID).Msg("Summary delivered")
	}
	return errors.Join(errs...)
}

// ExportHTML writes the latest digest as a standalone HTML page.
func (p *Processor) ExportHTML(ctx context.Context, w io.Writer) error {
	d, err := p.LatestDigest(ctx)
	if err != nil {
		return err
	}
	page, err := notifier.FormatPage(d)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, page); err != nil {
		return fmt.Errorf("write page: %w", err)
	}
	return nil
}
