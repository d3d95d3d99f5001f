package composer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/ai"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/ratelimit"
)

const rateKey = "llm"

// Composer produces a personalized email for one posting. Transient
// generation failures are retried with exponential backoff; on exhaustion
// (or a non-transient rejection) it falls back to the deterministic
// template so the pipeline never stalls on generation alone.
type Composer struct {
	client     ai.Client
	limiter    *ratelimit.Limiter
	maxRetries int
	baseDelay  time.Duration
}

func New(client ai.Client, limiter *ratelimit.Limiter, maxRetries int, baseDelay time.Duration) *Composer {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	return &Composer{
		client:     client,
		limiter:    limiter,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Compose generates the email and reports how many generation attempts it
// took. The returned message has Degraded set when the template fallback
// was used; the error is non-nil only for caller cancellation.
func (c *Composer) Compose(ctx context.Context, posting models.JobPosting, profile models.UserProfile, emailType models.EmailType) (*models.ComposedEmail, int, error) {
	content, attempts, genErr := c.generateWithRetry(ctx, posting, profile, emailType)
	if genErr != nil {
		if ctx.Err() != nil {
			return nil, attempts, ctx.Err()
		}
		log.Printf("⚠️ Generation failed for %q at %s, using template fallback: %v", posting.Title, posting.Company, genErr)
		msg := fallbackEmail(posting, profile, emailType)
		msg.DegradedReason = genErr.Error()
		return msg, attempts, nil
	}

	return &models.ComposedEmail{
		Subject:   subjectFor(posting, profile, emailType),
		Content:   content,
		Recipient: posting.RecipientEmail(),
	}, attempts, nil
}

func (c *Composer) generateWithRetry(ctx context.Context, posting models.JobPosting, profile models.UserProfile, emailType models.EmailType) (string, int, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Acquire(ctx, rateKey); err != nil {
			if ctx.Err() != nil {
				return "", attempt, ctx.Err()
			}
			// rate-limit wait exceeded counts as a transient attempt
			lastErr = err
		} else {
			content, err := c.client.Generate(ctx, posting, profile, emailType)
			if err == nil {
				return content, attempt, nil
			}
			lastErr = err

			// a rejected generation will not improve on retry
			if errors.Is(err, ai.ErrGenerationRejected) {
				return "", attempt, err
			}
		}

		log.Printf("  🔁 generation attempt %d/%d failed: %v", attempt, c.maxRetries, lastErr)
		if attempt < c.maxRetries {
			delay := c.baseDelay * (1 << (attempt - 1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", attempt, ctx.Err()
			}
		}
	}
	return "", c.maxRetries, fmt.Errorf("generation retries exhausted: %w", lastErr)
}

func subjectFor(posting models.JobPosting, profile models.UserProfile, emailType models.EmailType) string {
	switch emailType {
	case models.EmailFollowUp:
		return fmt.Sprintf("Follow-up: %s Application", posting.Title)
	case models.EmailNetworking:
		return fmt.Sprintf("Connecting regarding %s at %s", posting.Title, posting.Company)
	default:
		return fmt.Sprintf("Application for %s - %s", posting.Title, profile.Name)
	}
}
