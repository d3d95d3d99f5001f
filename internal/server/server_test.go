package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/collector"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/composer"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/config"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/dispatcher"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/filter"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/mailer"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/pipeline"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/ratelimit"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/scraper"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/scraper/fake"
	"github.com/athrvakulkarni11/auto-mail-sender/internal/store"
)

type stubLLM struct{}

func (stubLLM) Generate(ctx context.Context, posting models.JobPosting, profile models.UserProfile, emailType models.EmailType) (string, error) {
	return "Dear hiring team, I would like to apply.", nil
}

type stubMailer struct{}

func (stubMailer) Deliver(ctx context.Context, msg *models.ComposedEmail) (*models.DeliveryResult, error) {
	if msg.Recipient == "bad@example.com" {
		return nil, mailer.ErrInvalidRecipient
	}
	return &models.DeliveryResult{MessageID: "m-1", Recipient: msg.Recipient, SentAt: time.Now()}, nil
}

func newTestServer(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	posting := models.JobPosting{
		Source:      "indeed",
		Title:       "Go Developer",
		Company:     "Acme",
		URL:         "https://jobs/go-dev",
		Description: "go backend",
	}

	limiter := ratelimit.New(nil, 60000, time.Second)
	st := store.New(time.Hour)
	col := collector.New([]scraper.Source{fake.New("indeed", posting)}, limiter, nil, 2, time.Millisecond)
	fil := filter.New(0)
	comp := composer.New(stubLLM{}, limiter, 2, time.Millisecond)
	disp := dispatcher.New(stubMailer{}, limiter, 2, time.Millisecond)
	orch := pipeline.NewOrchestrator(st, col, fil, comp, disp, nil, 2)
	svc := pipeline.NewService(orch, st, col, comp, disp, fil)

	cfg := &config.Config{
		Host:       "127.0.0.1",
		Port:       "0",
		GroqModel:  "llama3-8b-8192",
		Sites:      []string{"indeed"},
		MaxRetries: 3,
	}
	srv := New(cfg, svc)
	return srv.Router(), st
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestConfigHidesSecrets(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "llama3-8b-8192", body["groq_model"])
	assert.NotContains(t, body, "groq_api_key")
	assert.NotContains(t, body, "smtp_password")
}

func TestScrape(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/api/jobs/scrape", models.SearchCriteria{
		Keywords: []string{"go developer"},
		MaxJobs:  5,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success   bool                `json:"success"`
		JobsFound int                 `json:"jobs_found"`
		Jobs      []models.JobPosting `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.JobsFound)
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, "Go Developer", body.Jobs[0].Title)
}

func TestScrapeRequiresKeywords(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/api/jobs/scrape", models.SearchCriteria{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPipelineSubmitAndStatus(t *testing.T) {
	r, st := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/application/pipeline", map[string]interface{}{
		"user_profile": models.UserProfile{
			Name:   "Jane Doe",
			Email:  "jane@example.com",
			Skills: []string{"go"},
		},
		"criteria": models.SearchCriteria{
			Keywords: []string{"go developer"},
			MaxJobs:  2,
		},
		"auto_apply": false,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var submitted struct {
		Success   bool   `json:"success"`
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))
	assert.True(t, submitted.Success)
	require.NotEmpty(t, submitted.RequestID)

	//poll until the background run finishes
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, ok := st.Get(submitted.RequestID)
		require.True(t, ok)
		if snap.CompletedAt != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	w = doJSON(t, r, http.MethodGet, "/api/application/"+submitted.RequestID+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		Success bool                       `json:"success"`
		Request *models.ApplicationRequest `json:"request"`
		Counts  models.Counts              `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.RequestCompleted, status.Request.Status)
	assert.Equal(t, 1, status.Counts.Composed)
}

func TestPipelineValidation(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/api/application/pipeline", map[string]interface{}{
		"criteria": models.SearchCriteria{Keywords: []string{"go"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusUnknownRequest(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodGet, "/api/application/nope/status", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelUnknownRequest(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/api/application/nope/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerate(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/api/email/generate", map[string]interface{}{
		"job_posting": models.JobPosting{
			Source:  "indeed",
			Title:   "Go Developer",
			Company: "Acme",
			URL:     "https://jobs/go-dev",
		},
		"user_profile": models.UserProfile{
			Name:  "Jane Doe",
			Email: "jane@example.com",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool                  `json:"success"`
		Email   *models.ComposedEmail `json:"email"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.NotNil(t, body.Email)
	assert.Contains(t, body.Email.Content, "apply")
	assert.Equal(t, "hiring@acme.com", body.Email.Recipient)
}

func TestSendDerivesRecipient(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/api/email/send", map[string]interface{}{
		"job_posting": models.JobPosting{Source: "indeed", Title: "Go Developer", Company: "Acme", URL: "https://jobs/go-dev"},
		"message": models.ComposedEmail{
			Subject: "Application for Go Developer",
			Content: "Hello",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success  bool                   `json:"success"`
		Delivery *models.DeliveryResult `json:"delivery"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Delivery)
	assert.Equal(t, "hiring@acme.com", body.Delivery.Recipient)
}

func TestSendWithoutRecipient(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/api/email/send", map[string]interface{}{
		"message": models.ComposedEmail{Subject: "s", Content: "c"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// A pipeline submitted over real HTTP must keep running after the handler
// returns and its request context is cancelled. The source fails once so
// the run is still inside a backoff wait when the response goes out.
func TestPipelineOutlivesRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	posting := models.JobPosting{
		Source:      "indeed",
		Title:       "Go Developer",
		Company:     "Acme",
		URL:         "https://jobs/go-dev",
		Description: "go backend",
	}
	src := fake.New("indeed", posting)
	src.FailTimes = 1
	src.Err = scraper.ErrSiteTimeout

	limiter := ratelimit.New(nil, 60000, time.Second)
	st := store.New(time.Hour)
	col := collector.New([]scraper.Source{src}, limiter, nil, 2, 100*time.Millisecond)
	comp := composer.New(stubLLM{}, limiter, 2, time.Millisecond)
	disp := dispatcher.New(stubMailer{}, limiter, 2, time.Millisecond)
	orch := pipeline.NewOrchestrator(st, col, filter.New(0), comp, disp, nil, 2)
	svc := pipeline.NewService(orch, st, col, comp, disp, filter.New(0))

	srv := New(&config.Config{Host: "127.0.0.1", Port: "0"}, svc)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	payload, err := json.Marshal(map[string]interface{}{
		"user_profile": models.UserProfile{Name: "Jane Doe", Email: "jane@example.com", Skills: []string{"go"}},
		"criteria":     models.SearchCriteria{Keywords: []string{"go developer"}, MaxJobs: 2},
		"auto_apply":   false,
	})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/application/pipeline", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var submitted struct {
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitted))
	require.NotEmpty(t, submitted.RequestID)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, ok := st.Get(submitted.RequestID)
		require.True(t, ok)
		if snap.CompletedAt != nil {
			assert.Equal(t, models.RequestCompleted, snap.Status,
				"run must survive the handler's context: %s", snap.Error)
			require.Len(t, snap.Items, 1)
			assert.Equal(t, models.ItemComposed, snap.Items[0].Status)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("request did not finish in time")
}

func TestSendInvalidRecipient(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/api/email/send", map[string]interface{}{
		"message": models.ComposedEmail{Subject: "s", Content: "c", Recipient: "bad@example.com"},
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
