package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
)

const groqURL = "https://api.groq.com/openai/v1/chat/completions"

type groqClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGroqClient creates a Groq chat-completions client
func NewGroqClient(apiKey, model string) Client {
	if model == "" {
		model = "llama3-8b-8192"
	}
	return &groqClient{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends the posting and profile to Groq and returns the email body
func (c *groqClient) Generate(ctx context.Context, posting models.JobPosting, profile models.UserProfile, emailType models.EmailType) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: no API key configured", ErrGenerationRejected)
	}

	reqBody := groqRequest{
		Model: c.model,
		Messages: []groqMessage{
			{
				Role:    "system",
				Content: buildSystemPrompt(emailType),
			},
			{
				Role:    "user",
				Content: buildUserPrompt(posting, profile, emailType),
			},
		},
		Temperature: 0.7,
		MaxTokens:   1000,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal groq request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", groqURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrGenerationTimeout, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationTimeout, err)
	}

	// 429 and 5xx are transient, the rest is rejection
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: groq API returned status %d", ErrGenerationTimeout, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: groq API returned status %d: %s", ErrGenerationRejected, resp.StatusCode, string(bodyBytes))
	}

	var groqResp groqResponse
	if err := json.Unmarshal(bodyBytes, &groqResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrGenerationRejected, err)
	}

	if groqResp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrGenerationRejected, groqResp.Error.Message)
	}

	if len(groqResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrGenerationRejected)
	}

	content := strings.TrimSpace(cleanMarkdown(groqResp.Choices[0].Message.Content))
	if content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationRejected)
	}
	return content, nil
}

// cleanMarkdown removes code fences if the model tries to be helpful
func cleanMarkdown(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
