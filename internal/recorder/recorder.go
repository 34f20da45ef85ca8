package recorder

import (
	"context"
	"errors"
	"time"

	"NewsletterDigest/internal/model"
)

// ErrNotFound is returned when a lookup matches no stored newsletter.
var ErrNotFound = errors.New("not found")

// Store persists processed newsletters and the reference data the pipeline reads.
type Store interface {
	NewsletterExists(ctx context.Context, newsletterID string) (bool, error)
	// SaveNewsletter writes the newsletter, its parsed sections and its key
	// levels atomically.
	SaveNewsletter(ctx context.Context, rec *model.NewsletterRecord) error
	// DeleteMostRecent removes the newest newsletter and everything derived
	// from it, returning its id.
	DeleteMostRecent(ctx context.Context) (string, error)
	LatestDigest(ctx context.Context) (*model.Digest, error)

	Markers(ctx context.Context) ([]model.MarkerRef, error)
	ReplaceMarkers(ctx context.Context, markers []model.MarkerRef) error

	// EventsBetween returns calendar events dated from..to inclusive, ordered by date.
	EventsBetween(ctx context.Context, from, to time.Time) ([]model.CalendarEvent, error)
	AddEvents(ctx context.Context, events []model.CalendarEvent) error

	Close() error
}
