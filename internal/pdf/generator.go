package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
)

// Generator renders composed application emails as PDF files, used by the
// preview pipeline so a user can review the exact letters before enabling
// auto-apply.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

var previewTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<body>
  <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
    <div style="background-color: #f8f9fa; padding: 20px; border-radius: 5px;">
      <h2 style="color: #333;">{{.Posting.Title}}</h2>
      <p><strong>Company:</strong> {{.Posting.Company}}</p>
      <p><strong>To:</strong> {{.Message.Recipient}}</p>
      <p><strong>Subject:</strong> {{.Message.Subject}}</p>
    </div>
    <div style="padding: 20px;">{{.Body}}</div>
  </div>
</body>
</html>`))

type previewData struct {
	Posting models.JobPosting
	Message *models.ComposedEmail
	Body    template.HTML
}

// Generate renders one composed email into a PDF byte array using a
// headless Chromium page.
func (g *Generator) Generate(posting models.JobPosting, msg *models.ComposedEmail) ([]byte, error) {
	body := strings.ReplaceAll(template.HTMLEscapeString(msg.Content), "\n", "<br>")

	var buf bytes.Buffer
	if err := previewTemplate.Execute(&buf, previewData{
		Posting: posting,
		Message: msg,
		Body:    template.HTML(body),
	}); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("could not create page: %w", err)
	}

	if err := page.SetContent(buf.String()); err != nil {
		return nil, fmt.Errorf("could not set page content: %w", err)
	}

	data, err := page.PDF(playwright.PagePdfOptions{
		Format: playwright.String("A4"),
	})
	if err != nil {
		return nil, fmt.Errorf("could not render PDF: %w", err)
	}
	return data, nil
}
