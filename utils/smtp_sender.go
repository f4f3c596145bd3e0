package utils

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"mailwarm/config"

	"gopkg.in/gomail.v2"
)

// SMTPSender dispatches warmup emails through a plain SMTP relay
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send submits one email, retrying temporary SMTP failures with backoff.
// SMTP assigns no usable message ID, so the returned ID is empty and the
// delivery checker locates messages by subject and timestamp instead.
func (s *SMTPSender) Send(ctx context.Context, sender, recipient, subject, body string) (string, error) {
	dialer := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	dialer.TLSConfig = &tls.Config{ServerName: s.cfg.Host}

	m := gomail.NewMessage()
	m.SetHeader("From", sender)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	// Headers that keep warmup traffic identifiable and well-behaved
	m.SetHeader("X-Mailer", "MailWarm/1.0")
	m.SetHeader("X-Priority", "3")
	m.SetHeader("Auto-Submitted", "auto-generated")
	m.SetHeader("X-Warmup", "true")

	maxRetries := 3
	var lastError error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt*attempt) * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := dialer.DialAndSend(m); err == nil {
			return "", nil
		} else {
			lastError = err
			if !isTemporarySMTPError(err) {
				break
			}
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", maxRetries, lastError)
}

func isTemporarySMTPError(err error) bool {
	if err == nil {
		return false
	}

	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return true
	}

	// SMTP 4xx codes indicate temporary failures
	errStr := strings.ToLower(err.Error())
	tempErrors := []string{
		"try again",
		"temporary",
		"4.",
		"421",
		"450",
		"451",
		"452",
	}

	for _, tempErr := range tempErrors {
		if strings.Contains(errStr, tempErr) {
			return true
		}
	}

	return false
}
