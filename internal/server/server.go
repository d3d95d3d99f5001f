package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/config"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/pipeline"
)

// Server exposes the pipeline over HTTP and streams request updates over
// WebSocket.
type Server struct {
	cfg      *config.Config
	svc      *pipeline.Service
	hub      *StatusHub
	upgrader websocket.Upgrader
}

func New(cfg *config.Config, svc *pipeline.Service) *Server {
	hub := NewStatusHub()
	hub.Start()

	return &Server{
		cfg: cfg,
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Hub returns the status hub so the orchestrator can broadcast through it.
func (s *Server) Hub() *StatusHub {
	return s.hub
}

// Run blocks serving HTTP until the listener fails.
func (s *Server) Run() error {
	addr := s.cfg.Host + ":" + s.cfg.Port
	log.Printf("🚀 Server listening on %s", addr)
	return s.Router().Run(addr)
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware())

	r.GET("/health", s.handleHealth)
	r.GET("/api/config", s.handleConfig)
	r.GET("/ws", s.handleWebSocket)

	api := r.Group("/api")
	{
		api.POST("/jobs/scrape", s.handleScrape)
		api.POST("/application/pipeline", s.handlePipeline)
		api.GET("/application/:id/status", s.handleStatus)
		api.POST("/application/:id/cancel", s.handleCancel)
		api.GET("/applications", s.handleList)
		api.POST("/email/generate", s.handleGenerate)
		api.POST("/email/send", s.handleSend)
	}

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Auto Mail Sender API is running!",
	})
}

// handleConfig exposes the non-sensitive knobs only.
func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"groq_model":       s.cfg.GroqModel,
		"scraping_delay":   s.cfg.ScrapingDelay.String(),
		"max_retries":      s.cfg.MaxRetries,
		"worker_pool_size": s.cfg.WorkerPoolSize,
		"accept_threshold": s.cfg.AcceptThreshold,
		"job_sites":        s.cfg.Sites,
		"smtp_configured":  s.cfg.SMTPConfigured(),
	})
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️ WebSocket upgrade failed: %v", err)
		return
	}
	go s.hub.RegisterClient(conn)
}

func (s *Server) handleScrape(c *gin.Context) {
	var criteria models.SearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if len(criteria.Keywords) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "keywords are required"})
		return
	}

	log.Printf("🔍 Scraping jobs for keywords: %v", criteria.Keywords)
	jobs, err := s.svc.SubmitScrape(c.Request.Context(), criteria)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"jobs_found": len(jobs),
		"jobs":       jobs,
	})
}

type pipelineRequest struct {
	Profile   models.UserProfile    `json:"user_profile"`
	Criteria  models.SearchCriteria `json:"criteria"`
	AutoApply bool                  `json:"auto_apply"`
}

func (s *Server) handlePipeline(c *gin.Context) {
	var req pipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if len(req.Criteria.Keywords) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "keywords are required"})
		return
	}
	if req.Profile.Name == "" || req.Profile.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "user_profile.name and user_profile.email are required"})
		return
	}

	id := s.svc.SubmitApplication(c.Request.Context(), req.Profile, req.Criteria, req.AutoApply)
	log.Printf("📋 Application pipeline %s started for keywords: %v", id, req.Criteria.Keywords)

	c.JSON(http.StatusAccepted, gin.H{
		"success":    true,
		"request_id": id,
		"message":    "Application pipeline started in background",
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	req, ok := s.svc.GetStatus(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "request not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"request": req,
		"counts":  req.Count(),
	})
}

func (s *Server) handleCancel(c *gin.Context) {
	id := c.Param("id")
	if !s.svc.Cancel(id) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "request not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"request_id": id,
		"message":    "Cancellation requested",
	})
}

func (s *Server) handleList(c *gin.Context) {
	requests := s.svc.ListRequests()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"count":    len(requests),
		"requests": requests,
	})
}

type generateRequest struct {
	Posting   models.JobPosting  `json:"job_posting"`
	Profile   models.UserProfile `json:"user_profile"`
	EmailType models.EmailType   `json:"email_type"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	msg, err := s.svc.GenerateEmail(c.Request.Context(), req.Posting, req.Profile, req.EmailType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"email":   msg,
	})
}

type sendRequest struct {
	Posting *models.JobPosting   `json:"job_posting,omitempty"`
	Message models.ComposedEmail `json:"message"`
}

func (s *Server) handleSend(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if req.Message.Recipient == "" && req.Posting != nil {
		req.Message.Recipient = req.Posting.RecipientEmail()
	}
	if req.Message.Recipient == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "recipient is required"})
		return
	}

	result, err := s.svc.SendEmail(c.Request.Context(), &req.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"delivery": result,
	})
}
