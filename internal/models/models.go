package models

import (
	"strings"
	"time"
)

// UserProfile holds the applicant data attached to a request. It is
// immutable input: stages read it, nothing mutates it.
type UserProfile struct {
	Name                string   `json:"name"`
	Email               string   `json:"email"`
	Phone               string   `json:"phone,omitempty"`
	Location            string   `json:"location"`
	ExperienceYears     int      `json:"experience_years"`
	Skills              []string `json:"skills"`
	Education           string   `json:"education"`
	ResumeURL           string   `json:"resume_url,omitempty"`
	LinkedInURL         string   `json:"linkedin_url,omitempty"`
	PortfolioURL        string   `json:"portfolio_url,omitempty"`
	CoverLetterTemplate string   `json:"cover_letter_template,omitempty"`
}

// JobPosting is a normalized job listing produced by the scrape stage.
type JobPosting struct {
	Source             string   `json:"source"`
	Title              string   `json:"title"`
	Company            string   `json:"company"`
	Location           string   `json:"location"`
	Description        string   `json:"description"`
	Requirements       []string `json:"requirements,omitempty"`
	SalaryRange        string   `json:"salary_range,omitempty"`
	URL                string   `json:"job_url"`
	HiringManagerEmail string   `json:"hiring_manager_email,omitempty"`
	JobType            string   `json:"job_type,omitempty"`
	RemoteOption       bool     `json:"remote_option,omitempty"`
}

// Key is the uniqueness key used for deduplication.
func (p JobPosting) Key() string {
	return p.Source + "|" + p.URL
}

// RecipientEmail returns the address applications for this posting go to.
// Falls back to a hiring@ alias derived from the company name when the
// posting carries no hiring-manager contact.
func (p JobPosting) RecipientEmail() string {
	if p.HiringManagerEmail != "" {
		return p.HiringManagerEmail
	}
	company := strings.ToLower(strings.ReplaceAll(p.Company, " ", ""))
	if company == "" {
		company = "company"
	}
	return "hiring@" + company + ".com"
}

// SearchCriteria describes what to scrape for one request.
type SearchCriteria struct {
	Keywords []string `json:"keywords"`
	Location string   `json:"location"`
	MaxJobs  int      `json:"max_jobs"`
	Sites    []string `json:"job_sites,omitempty"`
}

// EmailType selects which template/prompt the composer uses.
type EmailType string

const (
	EmailCoverLetter EmailType = "cover_letter"
	EmailFollowUp    EmailType = "follow_up"
	EmailNetworking  EmailType = "networking"
)

// ComposedEmail is the output of the compose stage.
type ComposedEmail struct {
	Subject     string   `json:"subject"`
	Content     string   `json:"content"`
	Recipient   string   `json:"recipient_email"`
	Attachments []string `json:"attachments,omitempty"`
	// Degraded marks a template fallback produced after generation retries
	// were exhausted.
	Degraded       bool   `json:"degraded,omitempty"`
	DegradedReason string `json:"degraded_reason,omitempty"`
}

// DeliveryResult is returned by the dispatch stage on success.
type DeliveryResult struct {
	MessageID string    `json:"message_id,omitempty"`
	Recipient string    `json:"recipient"`
	SentAt    time.Time `json:"sent_at"`
}
