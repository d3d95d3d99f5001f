package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/mailer"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/ratelimit"
)

const rateKey = "smtp"

// Dispatcher drives the delivery collaborator. Transient transport errors
// are retried with exponential backoff; auth and recipient errors are
// surfaced immediately.
type Dispatcher struct {
	mailer     mailer.Mailer
	limiter    *ratelimit.Limiter
	maxRetries int
	baseDelay  time.Duration
}

func New(m mailer.Mailer, limiter *ratelimit.Limiter, maxRetries int, baseDelay time.Duration) *Dispatcher {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	return &Dispatcher{
		mailer:     m,
		limiter:    limiter,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Send delivers one composed message and returns the delivery receipt
// along with the number of delivery attempts made.
func (d *Dispatcher) Send(ctx context.Context, msg *models.ComposedEmail) (*models.DeliveryResult, int, error) {
	var lastErr error

	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		if err := d.limiter.Acquire(ctx, rateKey); err != nil {
			if ctx.Err() != nil {
				return nil, attempt, ctx.Err()
			}
			lastErr = err
		} else {
			result, err := d.mailer.Deliver(ctx, msg)
			if err == nil {
				log.Printf("📧 Sent %q to %s", msg.Subject, msg.Recipient)
				return result, attempt, nil
			}
			lastErr = err

			if !Transient(err) {
				return nil, attempt, err
			}
		}

		log.Printf("  🔁 delivery attempt %d/%d failed: %v", attempt, d.maxRetries, lastErr)
		if attempt < d.maxRetries {
			delay := d.baseDelay * (1 << (attempt - 1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, attempt, ctx.Err()
			}
		}
	}
	return nil, d.maxRetries, fmt.Errorf("delivery retries exhausted: %w", lastErr)
}

// Transient reports whether a delivery error is worth retrying.
func Transient(err error) bool {
	if errors.Is(err, mailer.ErrAuth) || errors.Is(err, mailer.ErrInvalidRecipient) {
		return false
	}
	return true
}
