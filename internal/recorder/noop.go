package recorder

import (
	"context"
	"time"

	"NewsletterDigest/internal/model"
)

// NoopStore keeps nothing. Used for dry runs when SQLite is not configured.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) NewsletterExists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (n *NoopStore) SaveNewsletter(_ context.Context, _ *model.NewsletterRecord) error {
	return nil
}

func (n *NoopStore) DeleteMostRecent(_ context.Context) (string, error) {
	return "", ErrNotFound
}

func (n *NoopStore) LatestDigest(_ context.Context) (*model.Digest, error) {
	return nil, ErrNotFound
}

func (n *NoopStore) Markers(_ context.Context) ([]model.MarkerRef, error) {
	return nil, nil
}

func (n *NoopStore) ReplaceMarkers(_ context.Context, _ []model.MarkerRef) error {
	return nil
}

func (n *NoopStore) EventsBetween(_ context.Context, _, _ time.Time) ([]model.CalendarEvent, error) {
	return nil, nil
}

func (n *NoopStore) AddEvents(_ context.Context, _ []model.CalendarEvent) error {
	return nil
}

func (n *NoopStore) Close() error { return nil }
