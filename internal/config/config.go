// Load envs from .env
// Load YAML config
// Validate config
// Provide default values

package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`

	//Groq generation
	GroqAPIKey string `yaml:"groq_api_key"`
	GroqModel  string `yaml:"groq_model"`

	//SMTP delivery
	SMTPServer   string `yaml:"smtp_server"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUsername string `yaml:"smtp_username"`
	SMTPPassword string `yaml:"smtp_password"`
	EmailFrom    string `yaml:"email_from"`

	//Scraping
	Sites         []string      `yaml:"job_sites"`
	Keywords      []string      `yaml:"keywords"`
	UserAgent     string        `yaml:"user_agent"`
	ScrapingDelay time.Duration `yaml:"scraping_delay"`
	MaxRetries    int           `yaml:"max_retries"`

	//Pipeline
	WorkerPoolSize   int           `yaml:"worker_pool_size"`
	AcceptThreshold  float64       `yaml:"accept_threshold"`
	RequestRetention time.Duration `yaml:"request_retention"`

	//Per-resource rate limits, requests per minute
	ScrapeRPM int `yaml:"scrape_rpm"`
	LLMRPM    int `yaml:"llm_rpm"`
	SMTPRPM   int `yaml:"smtp_rpm"`

	//Optional integrations
	DatabaseURL      string `yaml:"database_url"`
	TelegramToken    string `yaml:"telegram_token"`
	TelegramChatID   int64  `yaml:"telegram_chat_id"`
	AppliedCachePath string `yaml:"applied_cache_path"`
}

const configFile = "configs/config.yaml"

func Load() *Config {
	_ = godotenv.Load()

	//Load yaml config
	cfg := &Config{}

	data, err := os.ReadFile(configFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Could not read config.yaml: %v", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("Error parsing config.yaml: %v", err)
		}
	}

	//Override with env vars
	overrideString(&cfg.Host, "HOST")
	overrideString(&cfg.Port, "PORT")
	overrideString(&cfg.GroqAPIKey, "GROQ_API_KEY")
	overrideString(&cfg.GroqModel, "GROQ_MODEL")
	overrideString(&cfg.SMTPServer, "SMTP_SERVER")
	overrideInt(&cfg.SMTPPort, "SMTP_PORT")
	overrideString(&cfg.SMTPUsername, "SMTP_USERNAME")
	overrideString(&cfg.SMTPPassword, "SMTP_PASSWORD")
	overrideString(&cfg.EmailFrom, "EMAIL_FROM")
	overrideString(&cfg.UserAgent, "USER_AGENT")
	overrideDuration(&cfg.ScrapingDelay, "SCRAPING_DELAY")
	overrideInt(&cfg.MaxRetries, "MAX_RETRIES")
	overrideInt(&cfg.WorkerPoolSize, "WORKER_POOL_SIZE")
	overrideFloat(&cfg.AcceptThreshold, "ACCEPT_THRESHOLD")
	overrideDuration(&cfg.RequestRetention, "REQUEST_RETENTION")
	overrideInt(&cfg.ScrapeRPM, "SCRAPE_RPM")
	overrideInt(&cfg.LLMRPM, "LLM_RPM")
	overrideInt(&cfg.SMTPRPM, "SMTP_RPM")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.TelegramToken, "TELEGRAM_BOT_TOKEN")
	overrideString(&cfg.AppliedCachePath, "APPLIED_CACHE_PATH")

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			log.Fatalf("Invalid TELEGRAM_CHAT_ID: %v", err)
		}
		cfg.TelegramChatID = id
	}

	//Set default values if not set
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.GroqModel == "" {
		cfg.GroqModel = "llama3-8b-8192"
	}
	if cfg.SMTPServer == "" {
		cfg.SMTPServer = "smtp.gmail.com"
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	if len(cfg.Sites) == 0 {
		cfg.Sites = []string{"indeed", "linkedin"}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	if cfg.ScrapingDelay == 0 {
		cfg.ScrapingDelay = 2 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.WorkerPoolSize == 0 {
		cfg.WorkerPoolSize = 3
	}
	if cfg.RequestRetention == 0 {
		cfg.RequestRetention = 24 * time.Hour
	}
	if cfg.ScrapeRPM == 0 {
		cfg.ScrapeRPM = 30
	}
	if cfg.LLMRPM == 0 {
		cfg.LLMRPM = 10
	}
	if cfg.SMTPRPM == 0 {
		cfg.SMTPRPM = 20
	}

	//Generation and delivery credentials are optional: the composer
	//degrades to templates and the dispatcher refuses sends. Warn so a
	//misconfigured deploy is visible at startup.
	if cfg.GroqAPIKey == "" {
		log.Println("⚠️ GROQ_API_KEY not set: email generation will use template fallback only")
	}
	if !cfg.SMTPConfigured() {
		log.Println("⚠️ SMTP credentials not fully set: email delivery is disabled")
	}

	return cfg
}

// SMTPConfigured reports whether delivery credentials are complete.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPUsername != "" && c.SMTPPassword != "" && c.EmailFrom != ""
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("Invalid %s: %v", key, err)
		}
		*dst = n
	}
}

func overrideFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			log.Fatalf("Invalid %s: %v", key, err)
		}
		*dst = f
	}
}

// overrideDuration accepts a Go duration string ("2s") or a plain number of
// seconds ("2.5"), the format the original deployment used.
func overrideDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("Invalid %s: %v", key, err)
	}
	*dst = time.Duration(f * float64(time.Second))
}
