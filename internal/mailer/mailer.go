package mailer

import (
	"context"
	"errors"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
)

var (
	// ErrAuth marks an authentication failure. Non-transient: retrying
	// with the same credentials cannot succeed.
	ErrAuth = errors.New("mailer: authentication failed")

	// ErrInvalidRecipient marks a recipient address the server (or our own
	// validation) rejected. Non-transient.
	ErrInvalidRecipient = errors.New("mailer: invalid recipient")

	// ErrTransport marks a transient transport failure (connection refused,
	// timeout, 4xx greylisting). Retried with backoff by the dispatcher.
	ErrTransport = errors.New("mailer: transport error")
)

// Mailer is the delivery collaborator consumed by the dispatcher.
type Mailer interface {
	Deliver(ctx context.Context, msg *models.ComposedEmail) (*models.DeliveryResult, error)
}
