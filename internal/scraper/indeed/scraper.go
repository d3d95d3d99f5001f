package indeed

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

type IndeedScraper struct {
	browser   *browser.Manager
	userAgent string
}

func NewIndeedScraper(b *browser.Manager, userAgent string) *IndeedScraper {
	return &IndeedScraper{
		browser:   b,
		userAgent: userAgent,
	}
}

func (s *IndeedScraper) Name() string {
	return "indeed"
}

func (s *IndeedScraper) Fetch(ctx context.Context, keywords []string, location string, limit int) ([]models.JobPosting, error) {
	page, err := s.browser.NewPage(s.userAgent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scraper.ErrSiteUnavailable, err)
	}
	defer page.Close()

	searchURL := fmt.Sprintf("https://www.indeed.com/jobs?q=%s&l=%s",
		url.QueryEscape(strings.Join(keywords, " ")),
		url.QueryEscape(location),
	)
	log.Printf("📋 Searching Indeed: %s", searchURL)

	if _, err := page.Goto(searchURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(30000),
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", scraper.ErrSiteTimeout, err)
	}

	//check for bot-protection block before parsing
	title, _ := page.Title()
	if strings.Contains(title, "Cloudflare") || strings.Contains(title, "Attention Required") {
		log.Println("❌ Indeed blocked by Cloudflare. Skipping...")
		return nil, fmt.Errorf("%w: blocked by cloudflare", scraper.ErrSiteUnavailable)
	}

	cards, err := page.Locator("[data-jk]").All()
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
			log.Printf("⚠️ Failed to extract Indeed job card: %v", err)
			continue
		}
		jobs = append(jobs, job)
	}

	log.Printf("✅ Indeed returned %d jobs", len(jobs))
	return jobs, nil
}

func (s *IndeedScraper) extractJob(card playwright.Locator) (models.JobPosting, error) {
	title, err := card.Locator("h2.jobTitle").First().InnerText()
	if err != nil {
		return models.JobPosting{}, fmt.Errorf("missing title: %w", err)
	}

	company, _ := card.Locator("[data-testid='company-name']").First().InnerText()
	location, _ := card.Locator("[data-testid='job-location']").First().InnerText()
	description, _ := card.Locator(".job-snippet").First().InnerText()

	href, err := card.Locator("h2.jobTitle a").First().GetAttribute("href")
	if err != nil || href == "" {
		return models.JobPosting{}, fmt.Errorf("missing job link")
	}
	if strings.HasPrefix(href, "/") {
		href = "https://www.indeed.com" + href
	}

	return models.JobPosting{
		Source:      "indeed",
		Title:       strings.TrimSpace(title),
		Company:     strings.TrimSpace(company),
		Location:    strings.TrimSpace(location),
		Description: strings.TrimSpace(description),
		URL:         href,
	}, nil
}
