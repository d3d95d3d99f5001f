package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
)

var (
	// ErrGenerationTimeout marks a transient generation failure (network
	// timeout, 5xx, 429). Retried with backoff by the composer.
	ErrGenerationTimeout = errors.New("ai: generation timed out")

	// ErrGenerationRejected marks a response the model produced but we
	// cannot use (empty, refused, malformed). Not retried.
	ErrGenerationRejected = errors.New("ai: generation rejected")
)

// Client is the interface for AI providers
type Client interface {
	// Generate produces the body of a personalized application email for
	// the given posting and profile.
	Generate(ctx context.Context, posting models.JobPosting, profile models.UserProfile, emailType models.EmailType) (string, error)
}

// buildSystemPrompt creates the system instruction for the AI model
func buildSystemPrompt(emailType models.EmailType) string {
	switch emailType {
	case models.EmailFollowUp:
		return "You are a professional follow-up email assistant. Generate polite and professional follow-up emails for job applications."
	case models.EmailNetworking:
		return "You are a professional networking email assistant. Generate professional networking emails that are respectful and value-focused."
	default:
		return "You are a professional job application assistant. Generate compelling cover letters that are personalized, professional, and highlight relevant experience."
	}
}

// buildUserPrompt combines posting and profile into the generation request
func buildUserPrompt(posting models.JobPosting, profile models.UserProfile, emailType models.EmailType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job Details:\n- Title: %s\n- Company: %s\n- Location: %s\n- Description: %s\n",
		posting.Title, posting.Company, posting.Location, posting.Description)
	if len(posting.Requirements) > 0 {
		fmt.Fprintf(&b, "- Requirements: %s\n", strings.Join(posting.Requirements, ", "))
	}
	fmt.Fprintf(&b, "\nApplicant Profile:\n- Name: %s\n- Experience: %d years\n- Skills: %s\n- Education: %s\n- Location: %s\n",
		profile.Name, profile.ExperienceYears, strings.Join(profile.Skills, ", "), profile.Education, profile.Location)

	switch emailType {
	case models.EmailFollowUp:
		b.WriteString("\nWrite a brief, polite follow-up email asking about the status of a recently submitted application. Reference the position, express continued interest, and thank them for their time.")
	case models.EmailNetworking:
		b.WriteString("\nWrite a professional networking email introducing the applicant, expressing interest in the company, and requesting an informational conversation. Keep it concise and respectful.")
	default:
		b.WriteString("\nWrite a professional cover letter (200-300 words) that addresses the specific job requirements, highlights relevant experience and skills, shows enthusiasm for the company, and ends with a clear call to action. Output only the email body, no subject line.")
	}
	return b.String()
}
