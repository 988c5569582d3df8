package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"net/url"
	"time"

	"github.com/knadh/smtppool"
	"go.uber.org/zap"

	"github.com/okorelov/profile-auth/internal/core/port"
	"github.com/okorelov/profile-auth/internal/infra/config"
)

const defaultSendTimeout = 10 * time.Second

// SMTPMailer delivers authentication emails through a pooled SMTP connection.
type SMTPMailer struct {
	pool          *smtppool.Pool
	cfg           config.SMTPSettings
	resetLinkBase string
	sendTimeout   time.Duration
	logger        *zap.Logger
}

// NewSMTPMailer connects the pool and returns a ready mailer.
func NewSMTPMailer(cfg config.SMTPSettings, resetLinkBase string, logger *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}

	var auth smtp.Auth
	if cfg.Username != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	var tlsConfig *tls.Config
	if cfg.TLSEnabled {
		tlsConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: cfg.Host,
		}
	}

	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}

	pool, err := smtppool.New(smtppool.Opt{
		Host:            cfg.Host,
		Port:            cfg.Port,
		MaxConns:        4,
		IdleTimeout:     sendTimeout,
		PoolWaitTimeout: sendTimeout,
		TLSConfig:       tlsConfig,
		Auth:            auth,
	})
	if err != nil {
		return nil, fmt.Errorf("create smtp pool: %w", err)
	}

	logger.Info("SMTP mailer initialized",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Bool("tls_enabled", cfg.TLSEnabled),
	)

	return &SMTPMailer{
		pool:          pool,
		cfg:           cfg,
		resetLinkBase: resetLinkBase,
		sendTimeout:   sendTimeout,
		logger:        logger,
	}, nil
}

// SendPasswordReset delivers the reset link carrying the raw token. The link
// is the only place the raw token ever leaves the service.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to string, accountID string, rawToken string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	link := m.resetLink(accountID, rawToken)
	validFor := time.Until(expiresAt).Round(time.Minute)

	body := fmt.Sprintf(
		"<p>A password reset was requested for your account.</p>"+
			"<p><a href=%q>Reset your password</a></p>"+
			"<p>The link is valid for %s. If you did not request this, you can ignore this email.</p>",
		link, validFor,
	)

	msg := smtppool.Email{
		To:      []string{to},
		From:    m.cfg.From,
		Subject: "Reset your password",
		HTML:    []byte(body),
	}

	if err := m.pool.Send(msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	return nil
}

// Close shuts the connection pool down.
func (m *SMTPMailer) Close() {
	m.pool.Close()
}

func (m *SMTPMailer) resetLink(accountID, rawToken string) string {
	query := url.Values{}
	query.Set("id", accountID)
	query.Set("token", rawToken)
	return fmt.Sprintf("%s?%s", m.resetLinkBase, query.Encode())
}

var _ port.Mailer = (*SMTPMailer)(nil)
