package store

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
)

// Store holds per-request pipeline state, keyed by request ID. The
// orchestrator mutates entries through Update; readers only ever see deep
// copies, so a snapshot stays stable while the pipeline keeps running.
type Store struct {
	mu        sync.RWMutex
	requests  map[string]*models.ApplicationRequest
	retention time.Duration
}

func New(retention time.Duration) *Store {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Store{
		requests:  make(map[string]*models.ApplicationRequest),
		retention: retention,
	}
}

// Create registers a new request and returns its snapshot.
func (s *Store) Create(profile models.UserProfile, criteria models.SearchCriteria, autoApply bool) *models.ApplicationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := &models.ApplicationRequest{
		ID:        uuid.New().String(),
		Profile:   profile,
		Criteria:  criteria,
		AutoApply: autoApply,
		Status:    models.RequestCreated,
		CreatedAt: time.Now().UTC(),
	}
	s.requests[req.ID] = req
	return req.Clone()
}

// Get returns a deep-copied snapshot of the request.
func (s *Store) Get(id string) (*models.ApplicationRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, false
	}
	return req.Clone(), true
}

// List returns snapshots of all requests, newest first not guaranteed.
func (s *Store) List() []*models.ApplicationRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ApplicationRequest, 0, len(s.requests))
	for _, req := range s.requests {
		out = append(out, req.Clone())
	}
	return out
}

// Update applies fn to the live request under the store lock. This is the
// single write path: stage workers funnel every mutation through here, so
// per-request writes are serialized and readers never observe a torn state.
func (s *Store) Update(id string, fn func(*models.ApplicationRequest)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return false
	}
	fn(req)
	return true
}

// RequestCancel flips the cancellation flag. Stage workers observe it at
// stage boundaries.
func (s *Store) RequestCancel(id string) bool {
	return s.Update(id, func(req *models.ApplicationRequest) {
		req.CancelRequested = true
	})
}

// StartJanitor evicts completed requests older than the retention window.
// The in-process store has no external retention policy, so a long-running
// service needs this to bound memory.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.evictExpired()
			}
		}
	}()
}

func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-s.retention)
	evicted := 0
	for id, req := range s.requests {
		if req.CompletedAt != nil && req.CompletedAt.Before(cutoff) {
			delete(s.requests, id)
			evicted++
		}
	}
	if evicted > 0 {
		log.Printf("🧹 Evicted %d completed requests older than %v", evicted, s.retention)
	}
}
