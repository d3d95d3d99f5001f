package mailer

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"html"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
)

// SMTPMailer delivers composed emails over SMTP with STARTTLS.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
}

func NewSMTPMailer(host string, port int, username, password, from, fromName string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
	}
}

// Deliver sends the message and returns a receipt. Error classification:
// auth and recipient problems map to the non-transient sentinels, anything
// else on the wire is ErrTransport.
func (m *SMTPMailer) Deliver(ctx context.Context, msg *models.ComposedEmail) (*models.DeliveryResult, error) {
	if m.username == "" || m.password == "" || m.from == "" {
		return nil, fmt.Errorf("%w: SMTP credentials not configured", ErrAuth)
	}
	if !validAddress(msg.Recipient) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRecipient, msg.Recipient)
	}

	messageID := uuid.New().String()
	body, err := m.buildMIME(msg, messageID)
	if err != nil {
		return nil, err
	}

	if err := m.send(ctx, msg.Recipient, body); err != nil {
		return nil, err
	}

	return &models.DeliveryResult{
		MessageID: messageID,
		Recipient: msg.Recipient,
		SentAt:    time.Now().UTC(),
	}, nil
}

func (m *SMTPMailer) send(ctx context.Context, recipient string, body []byte) error {
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrTransport, addr, err)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fmt.Errorf("%w: starttls: %v", ErrTransport, err)
		}
	}

	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}

	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("%w: mail from: %v", ErrTransport, err)
	}
	if err := client.Rcpt(recipient); err != nil {
		// the server refused the address itself
		return fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("%w: data: %v", ErrTransport, err)
	}
	if _, err := w.Write(body); err != nil {
		w.Close()
		return fmt.Errorf("%w: write: %v", ErrTransport, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrTransport, err)
	}

	return client.Quit()
}

const mimeBoundary = "automailsenderboundary"

// buildMIME renders the message as multipart/mixed with an HTML body and
// base64 file attachments.
func (m *SMTPMailer) buildMIME(msg *models.ComposedEmail, messageID string) ([]byte, error) {
	var b strings.Builder

	from := m.from
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", m.fromName, m.from)
	}

	fmt.Fprintf(&b, "Message-ID: <%s@auto-mail-sender>\r\n", messageID)
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mimeBoundary)

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(htmlBody(msg.Content))
	b.WriteString("\r\n")

	for _, path := range msg.Attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", path, err)
		}
		fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
		b.WriteString("Content-Type: application/octet-stream\r\n")
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n\r\n", filepath.Base(path))
		b.WriteString(base64.StdEncoding.EncodeToString(data))
		b.WriteString("\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return []byte(b.String()), nil
}

// htmlBody wraps the plain-text content in the standard application layout.
func htmlBody(content string) string {
	escaped := strings.ReplaceAll(html.EscapeString(content), "\n", "<br>\n")
	return fmt.Sprintf(`<html><body><div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">%s</div></body></html>`, escaped)
}

func validAddress(addr string) bool {
	at := strings.Index(addr, "@")
	if at <= 0 || at == len(addr)-1 {
		return false
	}
	domain := addr[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(addr, " \t\r\n")
}
