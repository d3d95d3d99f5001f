package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/ai"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/browser"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/collector"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/composer"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/config"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/dedup"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/filter"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/pdf"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/ratelimit"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/reporter"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/scraper"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/scraper/indeed"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/scraper/linkedin"
)

// One-shot preview run: scrape, filter, compose every accepted posting and
// write the drafts to disk for review. Nothing is sent.

const (
	profileFile = "configs/profile.json"
	resultsDir  = "results"
	maxJobs     = 10
)

type previewResult struct {
	Posting models.JobPosting     `json:"posting"`
	Score   float64               `json:"score"`
	Email   *models.ComposedEmail `json:"email"`
}

func main() {
	//load config
	cfg := config.Load()
	log.Printf("🔧 Config loaded. Keywords: %v", cfg.Keywords)

	profile, err := loadProfile(profileFile)
	if err != nil {
		log.Fatalf("❌ Failed to load profile: %v", err)
	}
	log.Printf("👤 Profile loaded for %s (%d skills)", profile.Name, len(profile.Skills))

	//setup context with timeout = 10 mins
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	log.Println("🚀 Starting preview pipeline...")

	//init playwright manager
	pwManager, err := browser.NewManager()
	if err != nil {
		log.Fatalf("❌ Failed to init Playwright: %v", err)
	}
	defer pwManager.Close()
	log.Println("✅ Browser initialized successfully!")

	limiter := ratelimit.New(map[string]int{"llm": cfg.LLMRPM}, cfg.ScrapeRPM, 30*time.Second)

	sources := []scraper.Source{
		indeed.NewIndeedScraper(pwManager, cfg.UserAgent),
		linkedin.NewLinkedInScraper(pwManager, cfg.UserAgent),
	}

	cacheDir := cfg.AppliedCachePath
	if cacheDir == "" {
		cacheDir = "data"
	}
	applied := dedup.NewAppliedCache(cacheDir)

	col := collector.New(sources, limiter, applied, cfg.MaxRetries, cfg.ScrapingDelay)

	criteria := models.SearchCriteria{
		Keywords: cfg.Keywords,
		Location: profile.Location,
		MaxJobs:  maxJobs,
		Sites:    cfg.Sites,
	}

	postings, err := col.Collect(ctx, criteria)
	if err != nil {
		log.Fatalf("❌ Scraping failed: %v", err)
	}
	log.Printf("📦 Total jobs collected: %d", len(postings))

	accepted, rejected := filter.New(cfg.AcceptThreshold).Split(postings, profile)
	log.Printf("🎯 Filtered: %d accepted, %d rejected", len(accepted), len(rejected))

	comp := composer.New(ai.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel), limiter, cfg.MaxRetries, cfg.ScrapingDelay)
	gen := pdf.NewGenerator()

	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		log.Fatalf("❌ Failed to create results directory: %v", err)
	}

	var results []previewResult
	for i, sp := range accepted {
		log.Printf("\n✍️ Composing %d/%d: %s at %s", i+1, len(accepted), sp.Posting.Title, sp.Posting.Company)

		msg, _, err := comp.Compose(ctx, sp.Posting, profile, models.EmailCoverLetter)
		if err != nil {
			log.Printf("❌ Compose failed for %s: %v", sp.Posting.Title, err)
			continue
		}
		if msg.Degraded {
			log.Printf("⚠️ Template fallback used: %s", msg.DegradedReason)
		}
		results = append(results, previewResult{Posting: sp.Posting, Score: sp.Score, Email: msg})

		//PDF preview alongside the JSON output
		data, err := gen.Generate(sp.Posting, msg)
		if err != nil {
			log.Printf("⚠️ PDF preview failed: %v", err)
			continue
		}
		pdfPath := filepath.Join(resultsDir, fmt.Sprintf("preview-%02d.pdf", i+1))
		if err := os.WriteFile(pdfPath, data, 0644); err != nil {
			log.Printf("⚠️ Failed to write %s: %v", pdfPath, err)
		}
	}

	outPath := filepath.Join(resultsDir, "drafts.json")
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		log.Fatalf("❌ Failed to marshal results: %v", err)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		log.Fatalf("❌ Failed to write %s: %v", outPath, err)
	}
	log.Printf("\n💾 Saved %d drafts to %s", len(results), outPath)

	//optional Telegram summary
	if cfg.TelegramToken != "" {
		bot, err := reporter.NewTelegramReporter(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("⚠️ Telegram unavailable: %v", err)
			return
		}
		summary := fmt.Sprintf("📋 Preview run finished: %d jobs found, %d drafts composed.", len(postings), len(results))
		if err := bot.SendMessage(summary); err != nil {
			log.Printf("⚠️ Telegram summary failed: %v", err)
		}
	}
}

func loadProfile(path string) (models.UserProfile, error) {
	var profile models.UserProfile
	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if profile.Name == "" || profile.Email == "" {
		return profile, fmt.Errorf("profile must set name and email")
	}
	return profile, nil
}
