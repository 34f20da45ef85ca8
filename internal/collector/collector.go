package collector

import (
	"context"
	"fmt"
	"strings"

	"NewsletterDigest/internal/model"

	"github.com/ternarybob/arbor"
)

// StaticSource returns a fixed message. Used for development and testing.
type StaticSource struct {
	Message *model.RawMessage
	Err     error
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) FetchLatest(_ context.Context) (*model.RawMessage, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Message == nil {
		return nil, ErrNoMessage
	}
	msg := *s.Message
	return &msg, nil
}

// Collector fetches the latest newsletter and checks it is usable.
type Collector struct {
	Source Source
	logger arbor.ILogger
}

// NewCollector creates a new Collector.
func NewCollector(source Source, logger arbor.ILogger) *Collector {
	return &Collector{Source: source, logger: logger}
}

// Collect returns the latest message from the source. A message without a
// received date cannot be identified and is rejected.
func (c *Collector) Collect(ctx context.Context) (*model.RawMessage, error) {
	msg, err := c.Source.FetchLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch from %s: %w", c.Source.Name(), err)
	}
	if msg.ReceivedAt.IsZero() {
		return nil, fmt.Errorf("message %q from %s has no received date", msg.Subject, c.Source.Name())
	}
	if strings.TrimSpace(msg.Body) == "" {
		c.logger.Warn().Str("subject", msg.Subject).Msg("Newsletter body is empty")
	}

	c.logger.Info().
		Str("source", c.Source.Name()).
		Str("subject", msg.Subject).
		Str("received_at", msg.ReceivedAt.Format("2006-01-02T15:04:05Z07:00")).
		Int("body_length", len(msg.Body)).
		Msg("Newsletter retrieved")
	return msg, nil
}
