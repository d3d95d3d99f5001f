// In-memory Source used by tests and by demo mode when no browser is
// available. Deterministic: returns the configured postings that match the
// requested keywords, and can be programmed to fail a number of times.

package fake

import (
	"context"
	"strings"
	"sync"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
)

type FakeSource struct {
	mu       sync.Mutex
	name     string
	postings []models.JobPosting

	// FailTimes makes the next N Fetch calls return Err.
	FailTimes int
	Err       error
	calls     int
}

func New(name string, postings ...models.JobPosting) *FakeSource {
	return &FakeSource{name: name, postings: postings}
}

func (f *FakeSource) Name() string {
	return f.name
}

// Calls reports how many times Fetch was invoked.
func (f *FakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeSource) Fetch(ctx context.Context, keywords []string, location string, limit int) ([]models.JobPosting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.FailTimes > 0 {
		f.FailTimes--
		return nil, f.Err
	}

	var out []models.JobPosting
	for _, p := range f.postings {
		if limit > 0 && len(out) >= limit {
			break
		}
		if matchesKeywords(p, keywords) {
			out = append(out, p)
		}
	}
	return out, nil
}

func matchesKeywords(p models.JobPosting, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	text := strings.ToLower(p.Title + " " + p.Description)
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
