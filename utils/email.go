package utils

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"

	"github.com/kswpuk/portal-api/config"
)

// ======================
// SMTP Configuration
// ======================
var emailCfg *config.Config

// InitEmail stores the SMTP settings used by SendEmail
func InitEmail(cfg *config.Config) {
	emailCfg = cfg
	if cfg.SMTPHost == "" {
		log.Println("⚠️ SMTP not configured - outbound email disabled")
	}
}

// SendEmail delivers a plain-text mail via SMTP with STARTTLS. replyTo may be
// empty. When SMTP is unconfigured the mail is logged and dropped, so the
// calling workflow still succeeds (email is best-effort throughout the portal).
func SendEmail(to, replyTo, subject, body string) error {
	if emailCfg == nil || emailCfg.SMTPHost == "" {
		log.Printf("📧 [email disabled] to=%s subject=%q", to, subject)
		return nil
	}

	addr := fmt.Sprintf("%s:%s", emailCfg.SMTPHost, emailCfg.SMTPPort)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to dial SMTP server: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: emailCfg.SMTPHost}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	auth := smtp.PlainAuth("", emailCfg.SMTPUsername, emailCfg.SMTPPassword, emailCfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if err := client.Mail(emailCfg.SMTPFromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}

	from := emailCfg.SMTPFromEmail
	if emailCfg.SMTPFromName != "" {
		from = fmt.Sprintf("%s <%s>", emailCfg.SMTPFromName, emailCfg.SMTPFromEmail)
	}

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, to, subject)
	if replyTo != "" {
		headers += fmt.Sprintf("Reply-To: %s\r\n", replyTo)
	}
	headers += "MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n"

	if _, err := w.Write([]byte(headers + "\r\n" + body)); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}

	if err := client.Quit(); err != nil {
		log.Printf("⚠️ SMTP QUIT error (non-critical): %v", err)
	}

	return nil
}
