package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/verdantleaf/storefront-backend/config"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
)

// Message is a single outbound email with both plain-text and HTML bodies
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer submits messages over SMTP. A primary host is tried first, then the
// fallback host if one is configured. When neither is configured or both
// fail, the message is written to the structured log instead. Delivery is
// best-effort and callers must never block on it.
type Mailer struct {
	cfg config.MailConfig
}

func New(cfg config.MailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send delivers the message. It returns an error only when every transport
// including the logging fallback would lose the message, which in practice
// means it always returns nil; failures are recorded in the log.
func (m *Mailer) Send(msg Message) error {
	if m.cfg.Primary.Host == "" && m.cfg.Fallback.Host == "" {
		logger.Info("Mail provider not configured, logging message instead", map[string]interface{}{
			"to":      msg.To,
			"subject": msg.Subject,
			"body":    msg.Text,
		})
		return nil
	}

	if m.cfg.Primary.Host != "" {
		if err := m.submit(m.cfg.Primary, msg); err == nil {
			logger.Info("Email sent", map[string]interface{}{
				"to":      msg.To,
				"subject": msg.Subject,
			})
			return nil
		} else {
			logger.Warn("Primary mail provider failed", map[string]interface{}{
				"to":    msg.To,
				"host":  m.cfg.Primary.Host,
				"error": err.Error(),
			})
		}
	}

	if m.cfg.Fallback.Host != "" {
		if err := m.submit(m.cfg.Fallback, msg); err == nil {
			logger.Info("Email sent via fallback provider", map[string]interface{}{
				"to":      msg.To,
				"subject": msg.Subject,
			})
			return nil
		} else {
			logger.Warn("Fallback mail provider failed", map[string]interface{}{
				"to":    msg.To,
				"host":  m.cfg.Fallback.Host,
				"error": err.Error(),
			})
		}
	}

	logger.Error("All mail providers failed, logging message", nil, map[string]interface{}{
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Text,
	})
	return nil
}

func (m *Mailer) submit(smtpCfg config.SMTPConfig, msg Message) error {
	from := m.cfg.FromAddress
	payload := m.compose(from, msg)

	var auth smtp.Auth
	if smtpCfg.Username != "" {
		auth = smtp.PlainAuth("", smtpCfg.Username, smtpCfg.Password, smtpCfg.Host)
	}

	addr := smtpCfg.Host + ":" + smtpCfg.Port
	if err := smtp.SendMail(addr, auth, from, []string{msg.To}, payload); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

// compose builds a multipart/alternative message carrying the plain-text
// and HTML bodies
func (m *Mailer) compose(from string, msg Message) []byte {
	const boundary = "vl-mail-boundary"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", m.cfg.FromName, from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Text)
	b.WriteString("\r\n")

	if msg.HTML != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(msg.HTML)
		b.WriteString("\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}
