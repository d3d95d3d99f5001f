package linkedin

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/browser"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/scraper"
)

type LinkedInScraper struct {
	browser   *browser.Manager
	userAgent string
}

func NewLinkedInScraper(b *browser.Manager, userAgent string) *LinkedInScraper {
	return &LinkedInScraper{
		browser:   b,
		userAgent: userAgent,
	}
}

func (s *LinkedInScraper) Name() string {
	return "linkedin"
}

func (s *LinkedInScraper) Fetch(ctx context.Context, keywords []string, location string, limit int) ([]models.JobPosting, error) {
	page, err := s.browser.NewPage(s.userAgent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scraper.ErrSiteUnavailable, err)
	}
	defer page.Close()

	searchURL := fmt.Sprintf("https://www.linkedin.com/jobs/search/?keywords=%s&location=%s",
		url.QueryEscape(strings.Join(keywords, " ")),
		url.QueryEscape(location),
	)
	log.Printf("📋 Searching LinkedIn: %s", searchURL)

	if _, err := page.Goto(searchURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(30000),
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", scraper.ErrSiteTimeout, err)
	}

	//LinkedIn redirects to an authwall when it decides we look like a bot
	if strings.Contains(page.URL(), "authwall") || strings.Contains(page.URL(), "checkpoint") {
		log.Println("❌ LinkedIn authwall hit. Skipping...")
		return nil, fmt.Errorf("%w: authwall", scraper.ErrSiteUnavailable)
	}

	cards, err := page.Locator(".job-search-card").All()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scraper.ErrSiteUnavailable, err)
	}

	var jobs []models.JobPosting
	for _, card := range cards {
		if limit > 0 && len(jobs) >= limit {
			break
		}
		job, err := s.extractJob(card)
		if err != nil {
			log.Printf("⚠️ Failed to extract LinkedIn job card: %v", err)
			continue
		}
		jobs = append(jobs, job)
	}

	log.Printf("✅ LinkedIn returned %d jobs", len(jobs))
	return jobs, nil
}

func (s *LinkedInScraper) extractJob(card playwright.Locator) (models.JobPosting, error) {
	title, err := card.Locator(".job-search-card__title").First().InnerText()
	if err != nil {
		return models.JobPosting{}, fmt.Errorf("missing title: %w", err)
	}

	company, _ := card.Locator(".job-search-card__subtitle").First().InnerText()
	location, _ := card.Locator(".job-search-card__location").First().InnerText()

	href, err := card.Locator("a.base-card__full-link").First().GetAttribute("href")
	if err != nil || href == "" {
		return models.JobPosting{}, fmt.Errorf("missing job link")
	}

	return models.JobPosting{
		Source:   "linkedin",
		Title:    strings.TrimSpace(title),
		Company:  strings.TrimSpace(company),
		Location: strings.TrimSpace(location),
		URL:      href,
	}, nil
}
