package pipeline

import (
	"context"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/collector"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/composer"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/dispatcher"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/filter"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/store"
)

const defaultMaxJobs = 10

// Service is the facade the application layer talks to. It exposes the
// async pipeline plus the direct synchronous paths (scrape-only, generate,
// send) that bypass orchestration.
type Service struct {
	orchestrator *Orchestrator
	store        *store.Store
	collector    *collector.Collector
	composer     *composer.Composer
	dispatcher   *dispatcher.Dispatcher
	filter       *filter.Filter
}

func NewService(o *Orchestrator, st *store.Store, col *collector.Collector, comp *composer.Composer, disp *dispatcher.Dispatcher, fil *filter.Filter) *Service {
	return &Service{
		orchestrator: o,
		store:        st,
		collector:    col,
		composer:     comp,
		dispatcher:   disp,
		filter:       fil,
	}
}

// SubmitScrape collects postings synchronously. No composer or dispatcher
// involved.
func (s *Service) SubmitScrape(ctx context.Context, criteria models.SearchCriteria) ([]models.JobPosting, error) {
	if criteria.MaxJobs <= 0 {
		criteria.MaxJobs = defaultMaxJobs
	}
	return s.collector.Collect(ctx, criteria)
}

// SubmitApplication starts the async pipeline and returns the request ID
// immediately.
func (s *Service) SubmitApplication(ctx context.Context, profile models.UserProfile, criteria models.SearchCriteria, autoApply bool) string {
	if criteria.MaxJobs <= 0 {
		criteria.MaxJobs = defaultMaxJobs
	}
	return s.orchestrator.Submit(ctx, profile, criteria, autoApply)
}

// GetStatus returns the best-known snapshot of a request.
func (s *Service) GetStatus(id string) (*models.ApplicationRequest, bool) {
	return s.store.Get(id)
}

// ListRequests returns snapshots of every request still retained.
func (s *Service) ListRequests() []*models.ApplicationRequest {
	return s.store.List()
}

// Cancel requests cancellation of an in-flight request.
func (s *Service) Cancel(id string) bool {
	return s.orchestrator.Cancel(id)
}

// GenerateEmail invokes the composer directly, no orchestration.
func (s *Service) GenerateEmail(ctx context.Context, posting models.JobPosting, profile models.UserProfile, emailType models.EmailType) (*models.ComposedEmail, error) {
	if emailType == "" {
		emailType = models.EmailCoverLetter
	}
	msg, _, err := s.composer.Compose(ctx, posting, profile, emailType)
	return msg, err
}

// SendEmail invokes the dispatcher directly, no orchestration.
func (s *Service) SendEmail(ctx context.Context, msg *models.ComposedEmail) (*models.DeliveryResult, error) {
	result, _, err := s.dispatcher.Send(ctx, msg)
	return result, err
}
