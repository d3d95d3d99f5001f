package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
)

func newRequest(s *Store) *models.ApplicationRequest {
	return s.Create(
		models.UserProfile{Name: "Jane Doe", Email: "jane@example.com"},
		models.SearchCriteria{Keywords: []string{"go"}, MaxJobs: 5},
		true,
	)
}

func TestCreateAndGet(t *testing.T) {
	s := New(time.Hour)
	req := newRequest(s)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, models.RequestCreated, req.Status)

	got, ok := s.Get(req.ID)
	require.True(t, ok)
	assert.Equal(t, req.ID, got.ID)

	_, ok = s.Get("nope")
	assert.False(t, ok)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s := New(time.Hour)
	req := newRequest(s)

	s.Update(req.ID, func(r *models.ApplicationRequest) {
		r.Items = append(r.Items, models.ApplicationItem{
			Posting: models.JobPosting{Title: "Go Dev", URL: "u1"},
			Status:  models.ItemPending,
		})
	})

	snap1, _ := s.Get(req.ID)

	// mutating the snapshot must not leak into the store
	snap1.Items[0].Status = models.ItemFailed
	snap1.Status = models.RequestFailed

	snap2, _ := s.Get(req.ID)
	assert.Equal(t, models.ItemPending, snap2.Items[0].Status)
	assert.Equal(t, models.RequestCreated, snap2.Status)
}

func TestGetIsIdempotent(t *testing.T) {
	s := New(time.Hour)
	req := newRequest(s)

	s.Update(req.ID, func(r *models.ApplicationRequest) {
		r.Status = models.RequestProcessing
		r.Items = append(r.Items, models.ApplicationItem{
			Posting: models.JobPosting{Title: "Go Dev", URL: "u1"},
			Status:  models.ItemComposed,
			Message: &models.ComposedEmail{Subject: "s", Content: "c"},
		})
	})

	snap1, _ := s.Get(req.ID)
	snap2, _ := s.Get(req.ID)
	assert.Equal(t, snap1, snap2, "repeated reads without processing must be identical")
}

func TestRequestCancel(t *testing.T) {
	s := New(time.Hour)
	req := newRequest(s)

	assert.True(t, s.RequestCancel(req.ID))
	snap, _ := s.Get(req.ID)
	assert.True(t, snap.CancelRequested)

	assert.False(t, s.RequestCancel("nope"))
}

func TestEvictExpired(t *testing.T) {
	s := New(10 * time.Millisecond)
	done := newRequest(s)
	running := newRequest(s)

	past := time.Now().UTC().Add(-time.Minute)
	s.Update(done.ID, func(r *models.ApplicationRequest) {
		r.Status = models.RequestCompleted
		r.CompletedAt = &past
	})

	s.evictExpired()

	_, ok := s.Get(done.ID)
	assert.False(t, ok, "completed request past retention must be evicted")
	_, ok = s.Get(running.ID)
	assert.True(t, ok, "in-flight request must never be evicted")
}
