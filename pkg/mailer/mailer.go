package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sokonihq/sokoni-backend/pkg/config"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
)

// Mailer renders a named template and sends it over SMTP. Order flows
// treat sends as best-effort; callers log failures instead of surfacing
// them.
type Mailer interface {
	SendTemplated(ctx context.Context, to, subject, templateName string, vars any) error
}

type smtpMailer struct {
	cfg       config.SMTPConfig
	templates *template.Template
}

// New parses the bundled templates and returns an SMTP-backed mailer.
func New(cfg config.SMTPConfig) (Mailer, error) {
	if cfg.Host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "smtp host not configured")
	}
	tmpl, err := template.New("mail").Parse(baseTemplates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse mail templates")
	}
	return &smtpMailer{cfg: cfg, templates: tmpl}, nil
}

func (m *smtpMailer) SendTemplated(ctx context.Context, to, subject, templateName string, vars any) error {
	if to == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient address required")
	}
	tmpl := m.templates.Lookup(templateName)
	if tmpl == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "unknown mail template").
			WithDetails(map[string]any{"template": templateName})
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, vars); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render mail template")
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s",
		m.cfg.DefaultFrom, to, subject, body.String())

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(m.cfg.Addr(), auth, m.cfg.DefaultFrom, []string{to}, []byte(msg)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send mail")
	}
	return nil
}
