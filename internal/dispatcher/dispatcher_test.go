package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/mailer"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/ratelimit"
)

type fakeMailer struct {
	mu        sync.Mutex
	failTimes int
	err       error
	calls     int
}

func (f *fakeMailer) Deliver(ctx context.Context, msg *models.ComposedEmail) (*models.DeliveryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failTimes > 0 {
		f.failTimes--
		return nil, f.err
	}
	return &models.DeliveryResult{
		MessageID: "msg-1",
		Recipient: msg.Recipient,
		SentAt:    time.Now(),
	}, nil
}

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(nil, 6000, time.Second)
}

func testMsg() *models.ComposedEmail {
	return &models.ComposedEmail{
		Subject:   "Application for Go Developer",
		Content:   "body",
		Recipient: "hiring@acme.com",
	}
}

func TestSend_Success(t *testing.T) {
	fm := &fakeMailer{}
	d := New(fm, testLimiter(), 3, time.Millisecond)

	result, attempts, err := d.Send(context.Background(), testMsg())
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, "hiring@acme.com", result.Recipient)
	assert.False(t, result.SentAt.IsZero())
}

func TestSend_RetriesTransient(t *testing.T) {
	fm := &fakeMailer{failTimes: 2, err: mailer.ErrTransport}
	base := 10 * time.Millisecond
	d := New(fm, testLimiter(), 3, base)

	start := time.Now()
	_, attempts, err := d.Send(context.Background(), testMsg())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 3, fm.calls)
	assert.Equal(t, 3, attempts)
	assert.GreaterOrEqual(t, elapsed, 3*base)
}

func TestSend_TransientExhaustion(t *testing.T) {
	fm := &fakeMailer{failTimes: 100, err: mailer.ErrTransport}
	d := New(fm, testLimiter(), 3, time.Millisecond)

	_, attempts, err := d.Send(context.Background(), testMsg())
	assert.ErrorIs(t, err, mailer.ErrTransport)
	assert.Equal(t, 3, fm.calls)
	assert.Equal(t, 3, attempts)
}

func TestSend_AuthErrorNotRetried(t *testing.T) {
	fm := &fakeMailer{failTimes: 100, err: mailer.ErrAuth}
	d := New(fm, testLimiter(), 3, time.Millisecond)

	_, attempts, err := d.Send(context.Background(), testMsg())
	assert.ErrorIs(t, err, mailer.ErrAuth)
	assert.Equal(t, 1, fm.calls)
	assert.Equal(t, 1, attempts)
}

func TestSend_InvalidRecipientNotRetried(t *testing.T) {
	fm := &fakeMailer{failTimes: 100, err: mailer.ErrInvalidRecipient}
	d := New(fm, testLimiter(), 3, time.Millisecond)

	_, attempts, err := d.Send(context.Background(), testMsg())
	assert.ErrorIs(t, err, mailer.ErrInvalidRecipient)
	assert.Equal(t, 1, fm.calls)
	assert.Equal(t, 1, attempts)
}
