package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/dedup"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/ratelimit"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/scraper"
)

// ErrNoPostings is returned when every configured site failed to produce
// candidates after retry exhaustion.
var ErrNoPostings = errors.New("collector: no postings available from any site")

// Collector fans a search out over the configured job sources, retrying
// each site with exponential backoff and deduplicating results by
// (source, URL). A site that exhausts its retries is skipped, not fatal.
type Collector struct {
	sources    []scraper.Source
	limiter    *ratelimit.Limiter
	applied    *dedup.AppliedCache // optional, nil disables cross-run dedup
	maxRetries int
	baseDelay  time.Duration
}

func New(sources []scraper.Source, limiter *ratelimit.Limiter, applied *dedup.AppliedCache, maxRetries int, baseDelay time.Duration) *Collector {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	return &Collector{
		sources:    sources,
		limiter:    limiter,
		applied:    applied,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Collect gathers postings from the requested sites, bounded by
// criteria.MaxJobs. Sites not named in the criteria are skipped; an empty
// site list means all configured sources.
func (c *Collector) Collect(ctx context.Context, criteria models.SearchCriteria) ([]models.JobPosting, error) {
	wanted := mapset.NewSet[string]()
	for _, s := range criteria.Sites {
		wanted.Add(s)
	}

	seen := mapset.NewSet[string]()
	var all []models.JobPosting
	var lastErr error
	attempted := 0

	for _, src := range c.sources {
		if wanted.Cardinality() > 0 && !wanted.Contains(src.Name()) {
			continue
		}
		attempted++

		jobs, err := c.fetchWithRetry(ctx, src, criteria)
		if err != nil {
			log.Printf("⚠️ Site %s failed after %d attempts: %v", src.Name(), c.maxRetries, err)
			lastErr = err
			continue
		}

		for _, job := range jobs {
			if !seen.Add(job.Key()) {
				continue
			}
			if c.applied != nil && c.applied.IsApplied(job.Key()) {
				log.Printf("🔁 Skipping already-applied job: %s @ %s", job.Title, job.Company)
				continue
			}
			all = append(all, job)
		}

		if criteria.MaxJobs > 0 && len(all) >= criteria.MaxJobs {
			break
		}
	}

	if attempted == 0 {
		return nil, fmt.Errorf("%w: no matching sites configured", ErrNoPostings)
	}
	if len(all) == 0 && lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPostings, lastErr)
	}

	if criteria.MaxJobs > 0 && len(all) > criteria.MaxJobs {
		all = all[:criteria.MaxJobs]
	}
	log.Printf("📦 Collected %d unique postings", len(all))
	return all, nil
}

// fetchWithRetry calls one site with exponential backoff: delays follow
// baseDelay * 2^(attempt-1) between attempts.
func (c *Collector) fetchWithRetry(ctx context.Context, src scraper.Source, criteria models.SearchCriteria) ([]models.JobPosting, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Acquire(ctx, "scrape:"+src.Name()); err != nil {
			return nil, err
		}

		jobs, err := src.Fetch(ctx, criteria.Keywords, criteria.Location, criteria.MaxJobs)
		if err == nil {
			return jobs, nil
		}
		lastErr = err
		log.Printf("  🔁 %s attempt %d/%d failed: %v", src.Name(), attempt, c.maxRetries, err)

		if attempt < c.maxRetries {
			delay := c.baseDelay * (1 << (attempt - 1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}
