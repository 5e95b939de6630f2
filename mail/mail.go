// Package mail sends plain-text notifications over a pooled SMTP
// connection.
package mail

import (
	"crypto/tls"
	"net/smtp"
	"time"

	"github.com/knadh/smtppool"

	"github.com/pollwise/pollwise/config"
	"github.com/pollwise/pollwise/log"
)

type Mailer struct {
	pool *smtppool.Pool
	from string
}

// New connects a sender to the configured SMTP server. With no SMTP
// host configured the mailer still works but drops every message with
// a warning, which keeps local setups runnable without a mail server.
func New(cfg config.Config) (*Mailer, error) {
	if cfg.SMTPHost == "" {
		return &Mailer{from: cfg.MailFrom}, nil
	}

	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}

	pool, err := smtppool.New(smtppool.Opt{
		Host:            cfg.SMTPHost,
		Port:            cfg.SMTPPort,
		MaxConns:        4,
		IdleTimeout:     30 * time.Second,
		PoolWaitTimeout: 10 * time.Second,
		Auth:            auth,
		TLSConfig:       &tls.Config{ServerName: cfg.SMTPHost},
	})
	if err != nil {
		return nil, err
	}
	return &Mailer{pool: pool, from: cfg.MailFrom}, nil
}

// Send delivers one plain-text message.
func (m *Mailer) Send(to, subject, body string) error {
	if m.pool == nil {
		log.Warnf("mail.disabled: dropped message to %s (%s)", to, subject)
		return nil
	}
	return m.pool.Send(smtppool.Email{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Text:    []byte(body),
	})
}

func (m *Mailer) Close() {
	if m.pool != nil {
		m.pool.Close()
	}
}
