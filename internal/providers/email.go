package providers

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"os"
	"strings"

	"alerting-service/internal/config"
	"alerting-service/internal/models"
)

// inlineEmailTemplate is the fallback HTML body used when no file template
// is configured or the configured one fails to parse.
const inlineEmailTemplate = `<html>
<body style="font-family: sans-serif">
<h2>{{.Title}}</h2>
<p><b>Alert:</b> {{.Number}} &middot; <b>Level:</b> {{.Level}}</p>
{{range .Lines}}<p>{{.}}</p>
{{end}}</body>
</html>`

type emailBody struct {
	Title  string
	Number string
	Level  string
	Lines  []string
}

// EmailHandler delivers notifications over SMTP with a plain-text and an
// HTML body.
type EmailHandler struct {
	cfg  config.Config
	tmpl *template.Template
}

// NewEmailHandler builds the email channel. A configured file template is
// loaded once; parse failures fall back to the inline template.
func NewEmailHandler(cfg config.Config) *EmailHandler {
	tmpl := template.Must(template.New("email").Parse(inlineEmailTemplate))
	if path := cfg.Email.TemplatePath; path != "" {
		if raw, err := os.ReadFile(path); err == nil {
			if parsed, err := template.New("email").Parse(string(raw)); err == nil {
				tmpl = parsed
			}
		}
	}
	return &EmailHandler{cfg: cfg, tmpl: tmpl}
}

func (h *EmailHandler) Channel() string { return models.ChannelEmail }

func (h *EmailHandler) Send(_ context.Context, n *models.Notification, alert *models.Alert, rcpt models.Recipient) error {
	e := h.cfg.Email
	if e.SMTPServer == "" || e.SMTPPort == 0 || e.Username == "" || e.Password == "" {
		return fmt.Errorf("email: %w", ErrNotConfigured)
	}
	to := strings.TrimSpace(n.Target)
	if to == "" || !strings.Contains(to, "@") {
		return fmt.Errorf("email for user %d: %w", rcpt.UserID, ErrNoAddress)
	}

	html, err := h.renderHTML(n, alert)
	if err != nil {
		return fmt.Errorf("email template: %w", err)
	}

	const boundary = "alerting-boundary"
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", e.FromName, e.Username)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", n.Title)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
	fmt.Fprintf(&msg, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", boundary, n.Content)
	fmt.Fprintf(&msg, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", boundary, html)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	auth := smtp.PlainAuth("", e.Username, e.Password, e.SMTPServer)
	addr := fmt.Sprintf("%s:%d", e.SMTPServer, e.SMTPPort)
	if err := smtp.SendMail(addr, auth, e.Username, []string{to}, msg.Bytes()); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func (h *EmailHandler) renderHTML(n *models.Notification, alert *models.Alert) (string, error) {
	var buf bytes.Buffer
	err := h.tmpl.Execute(&buf, emailBody{
		Title:  n.Title,
		Number: alert.Number,
		Level:  alert.Level,
		Lines:  strings.Split(n.Content, "\n"),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
