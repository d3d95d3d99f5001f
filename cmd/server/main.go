package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/ai"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/browser"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/collector"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/composer"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/config"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/database"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/dedup"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/dispatcher"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/filter"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/mailer"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/pipeline"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/ratelimit"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/reporter"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/scraper"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/scraper/indeed"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/scraper/linkedin"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/server"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/store"
)

const acquireTimeout = 30 * time.Second

func main() {
	//load config
	cfg := config.Load()
	log.Println("🔧 Config loaded.")

	ctx := context.Background()

	//init playwright manager, shared by all scrapers
	pwManager, err := browser.NewManager()
	if err != nil {
		log.Fatalf("❌ Failed to init Playwright: %v", err)
	}
	defer pwManager.Close()
	log.Println("✅ Browser initialized successfully!")

	//per-resource rate limits, scrape keys fall back to the default
	limiter := ratelimit.New(map[string]int{
		"llm":  cfg.LLMRPM,
		"smtp": cfg.SMTPRPM,
	}, cfg.ScrapeRPM, acquireTimeout)

	//init scrapers
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
	fil := filter.New(cfg.AcceptThreshold)

	aiClient := ai.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel)
	comp := composer.New(aiClient, limiter, cfg.MaxRetries, cfg.ScrapingDelay)

	smtpMailer := mailer.NewSMTPMailer(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom, "")
	disp := dispatcher.New(smtpMailer, limiter, cfg.MaxRetries, cfg.ScrapingDelay)

	st := store.New(cfg.RequestRetention)
	st.StartJanitor(ctx, time.Hour)

	orch := pipeline.NewOrchestrator(st, col, fil, comp, disp, applied, cfg.WorkerPoolSize)

	//optional: archive finished requests to Postgres
	var repo *database.Repository
	if cfg.DatabaseURL != "" {
		repo, err = database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("⚠️ Database unavailable, archiving disabled: %v", err)
		} else {
			defer repo.Close()
			log.Println("🗄️ Database connected.")
		}
	}

	//optional: completion summaries over Telegram
	var tg *reporter.TelegramReporter
	if cfg.TelegramToken != "" {
		tg, err = reporter.NewTelegramReporter(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("⚠️ Telegram unavailable, reporting disabled: %v", err)
		} else {
			log.Println("🤖 Telegram Bot initialized.")
		}
	}

	orch.OnComplete(func(req *models.ApplicationRequest) {
		if repo != nil {
			archiveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := repo.ArchiveRequest(archiveCtx, req); err != nil {
				log.Printf("⚠️ Failed to archive request %s: %v", req.ID, err)
			} else if total, err := repo.SentCount(archiveCtx, req.Profile.Email); err == nil {
				log.Printf("📈 %s now has %d sent applications on record", req.Profile.Email, total)
			}
		}
		if tg == nil {
			return
		}
		if req.Status == models.RequestFailed {
			if err := tg.SendError(fmt.Errorf("request %s failed: %s", req.ID, req.Error)); err != nil {
				log.Printf("⚠️ Failed to report failure of %s: %v", req.ID, err)
			}
			return
		}
		if err := tg.ReportRequest(req); err != nil {
			log.Printf("⚠️ Failed to report request %s: %v", req.ID, err)
		}
	})

	svc := pipeline.NewService(orch, st, col, comp, disp, fil)

	srv := server.New(cfg, svc)
	orch.SetNotifier(srv.Hub().BroadcastRequest)

	if err := srv.Run(); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
