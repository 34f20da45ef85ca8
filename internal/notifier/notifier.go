package notifier

import (
	"context"
	"fmt"
	"time"

	"NewsletterDigest/internal/model"

	"github.com/ternarybob/arbor"
)

// Notifier delivers a digest over one channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, d *model.Digest) error
}

// retryBase is the first backoff delay; each retry doubles it.
var retryBase = time.Second

// SendWithRetry sends d with exponential backoff retry.
func SendWithRetry(ctx context.Context, n Notifier, d *model.Digest, maxRetries int, logger arbor.ILogger) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := n.Send(ctx, d)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := retryBase << uint(i)
		logger.Warn().
			Err(err).
			Str("channel", n.Name()).
			Int("attempt", i+1).
			Int("max_attempts", maxRetries+1).
			Str("backoff", backoff.String()).
			Msg("Send failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("%s: all %d attempts failed: %w", n.Name(), maxRetries+1, lastErr)
}
