package composer

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
)

// Deterministic fallback templates, one per email type. These are the
// degraded-mode bodies used when generation cannot succeed.
var fallbackTemplates = map[models.EmailType]*template.Template{
	models.EmailCoverLetter: template.Must(template.New("cover_letter").Funcs(tmplFuncs).Parse(
		`Dear Hiring Manager,

I am writing to apply for the {{.Job.Title}} position at {{.Job.Company}}. With {{.User.ExperienceYears}} years of experience and a background in {{join .User.Skills ", "}}, I believe I would be a strong addition to your team.

My education ({{.User.Education}}) and hands-on work have prepared me well for the requirements of this role, and I am excited about the opportunity to contribute at {{.Job.Company}}.

I would welcome the chance to discuss how my experience aligns with your needs. Thank you for your time and consideration.

Best regards,
{{.User.Name}}`)),

	models.EmailFollowUp: template.Must(template.New("follow_up").Funcs(tmplFuncs).Parse(
		`Dear Hiring Manager,

I hope this email finds you well. I wanted to follow up on my application for the {{.Job.Title}} role at {{.Job.Company}}.

I remain very interested in this opportunity and would appreciate any updates on the status of my application. I am available for an interview at your convenience.

Thank you for your time and consideration.

Best regards,
{{.User.Name}}`)),

	models.EmailNetworking: template.Must(template.New("networking").Funcs(tmplFuncs).Parse(
		`Hello,

My name is {{.User.Name}}, and I am reaching out because I am very interested in the work being done at {{.Job.Company}}. My background is in {{join .User.Skills ", "}}, with {{.User.ExperienceYears}} years of experience.

I would be grateful for the opportunity to learn more about your team, particularly around the {{.Job.Title}} role. Would you be open to a brief conversation?

Thank you for your time.

Best regards,
{{.User.Name}}`)),
}

var tmplFuncs = template.FuncMap{
	"join": strings.Join,
}

type tmplContext struct {
	Job  models.JobPosting
	User models.UserProfile
}

// fallbackEmail renders the deterministic template for the email type. A
// custom cover-letter template on the profile takes precedence when it
// parses.
func fallbackEmail(posting models.JobPosting, profile models.UserProfile, emailType models.EmailType) *models.ComposedEmail {
	tmpl, ok := fallbackTemplates[emailType]
	if !ok {
		tmpl = fallbackTemplates[models.EmailCoverLetter]
	}

	if emailType == models.EmailCoverLetter && profile.CoverLetterTemplate != "" {
		if custom, err := template.New("custom").Funcs(tmplFuncs).Parse(profile.CoverLetterTemplate); err == nil {
			tmpl = custom
		}
	}

	var buf bytes.Buffer
	// templates above always execute; a failing custom template falls
	// through with whatever it wrote plus the error ignored in favor of
	// the stock body
	if err := tmpl.Execute(&buf, tmplContext{Job: posting, User: profile}); err != nil {
		buf.Reset()
		_ = fallbackTemplates[models.EmailCoverLetter].Execute(&buf, tmplContext{Job: posting, User: profile})
	}

	return &models.ComposedEmail{
		Subject:   subjectFor(posting, profile, emailType),
		Content:   buf.String(),
		Recipient: posting.RecipientEmail(),
		Degraded:  true,
	}
}
