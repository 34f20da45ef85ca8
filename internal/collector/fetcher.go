package collector

import (
	"context"
	"errors"

	"NewsletterDigest/internal/model"
)

// ErrNoMessage is returned when the mailbox holds no newsletter to process.
var ErrNoMessage = errors.New("no newsletter message found")

// Source retrieves the most recent newsletter message.
type Source interface {
	FetchLatest(ctx context.Context) (*model.RawMessage, error)
	Name() string
}
