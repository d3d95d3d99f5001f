// Define an interface for all job sources
// Ensure consistency

package scraper

import (
	"context"
	"errors"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
)

var (
	// ErrSiteUnavailable marks a transient failure of a job site (blocked,
	// down, selector drift). Retried with backoff by the collector.
	ErrSiteUnavailable = errors.New("scraper: site unavailable")

	// ErrSiteTimeout marks a navigation or load timeout. Transient.
	ErrSiteTimeout = errors.New("scraper: site timeout")
)

//Source defines the interface that all job-site scrapers must implement
type Source interface {
	//Fetch jobs matching the keywords and location, bounded by limit
	Fetch(ctx context.Context, keywords []string, location string, limit int) ([]models.JobPosting, error)

	//Name is the site name ("indeed", "linkedin", ...)
	Name() string
}
