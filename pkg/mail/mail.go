// Package mail sends transactional email through a pluggable provider.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-publisher/pkg/config"
)

var (
	// ErrDisabled is returned by every Send when no provider is configured.
	ErrDisabled = errors.New("mail transport disabled")
	// ErrNoRecipient is returned when a message has no destination address.
	ErrNoRecipient = errors.New("mail recipient missing")
)

// Message is a single outbound email to one recipient.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
	Tags    []string
}

// Transport delivers messages. Implementations must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// TransportError describes a provider-side failure.
type TransportError struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s send failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s send failed: status %d: %s", e.Provider, e.Status, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransport picks a provider from configuration. An empty provider selects
// Mailgun when its credentials are present, then SendGrid, else a disabled
// transport.
func NewTransport(cfg config.MailConfig, logger *zap.Logger) Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	mailgun := NewMailgunTransport(MailgunConfig{
		BaseURL: cfg.MailgunBaseURL,
		Domain:  cfg.MailgunDomain,
		APIKey:  cfg.MailgunAPIKey,
		From:    formatAddress(cfg.FromName, cfg.From),
	}, &http.Client{Timeout: timeoutOrDefault(cfg.Timeout)})
	sendgrid := NewSendGridTransport(cfg.SendGridAPIKey, cfg.SendGridHost, cfg.FromName, cfg.From)

	switch cfg.Provider {
	case config.MailProviderMailgun:
		if mailgun.Enabled() {
			return mailgun
		}
		return disabled(logger, "mailgun selected but MAILGUN_API_KEY, MAILGUN_DOMAIN or MAIL_FROM missing")
	case config.MailProviderSendGrid:
		if sendgrid.Enabled() {
			return sendgrid
		}
		return disabled(logger, "sendgrid selected but SENDGRID_API_KEY or MAIL_FROM missing")
	case config.MailProviderLog:
		return NewLogTransport(logger)
	case "":
		if mailgun.Enabled() {
			return mailgun
		}
		if sendgrid.Enabled() {
			return sendgrid
		}
		return disabled(logger, "no mail provider configured")
	default:
		return disabled(logger, "unknown mail provider "+cfg.Provider)
	}
}

func disabled(logger *zap.Logger, reason string) Transport {
	logger.Warn("mail delivery disabled", zap.String("reason", reason))
	return DisabledTransport{Reason: reason}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// DisabledTransport fails every send with ErrDisabled.
type DisabledTransport struct {
	Reason string
}

func (DisabledTransport) Send(ctx context.Context, msg Message) error { return ErrDisabled }
func (DisabledTransport) Name() string                                { return "disabled" }
