package mail

import (
	"context"
	"fmt"
	"io"
	"net/http"
	netmail "net/mail"
	"net/url"
	"strings"
)

const maxErrorBody = 512

// MailgunConfig holds the Mailgun REST credentials.
type MailgunConfig struct {
	BaseURL string
	Domain  string
	APIKey  string
	From    string
}

// MailgunTransport posts messages to the Mailgun messages endpoint.
type MailgunTransport struct {
	cfg    MailgunConfig
	client *http.Client
}

// NewMailgunTransport builds a transport; a nil client uses http.DefaultClient.
func NewMailgunTransport(cfg MailgunConfig, client *http.Client) *MailgunTransport {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mailgun.net"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &MailgunTransport{cfg: cfg, client: client}
}

// Enabled reports whether key, domain and sender are all configured.
func (t *MailgunTransport) Enabled() bool {
	return t.cfg.APIKey != "" && t.cfg.Domain != "" && t.cfg.From != ""
}

func (t *MailgunTransport) Name() string { return "mailgun" }

// Send delivers one message.
func (t *MailgunTransport) Send(ctx context.Context, msg Message) error {
	if !t.Enabled() {
		return ErrDisabled
	}
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}

	form := url.Values{}
	form.Set("from", t.cfg.From)
	form.Set("to", formatAddress(msg.ToName, msg.To))
	form.Set("subject", msg.Subject)
	form.Set("text", msg.Text)
	if msg.HTML != "" {
		form.Set("html", msg.HTML)
	}
	for _, tag := range msg.Tags {
		form.Add("o:tag", tag)
	}

	endpoint := fmt.Sprintf("%s/v3/%s/messages", t.cfg.BaseURL, t.cfg.Domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &TransportError{Provider: t.Name(), Err: err}
	}
	req.SetBasicAuth("api", t.cfg.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return &TransportError{Provider: t.Name(), Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &TransportError{Provider: t.Name(), Status: resp.StatusCode, Body: string(body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func formatAddress(name, address string) string {
	if address == "" {
		return ""
	}
	if name == "" {
		return address
	}
	return (&netmail.Address{Name: name, Address: address}).String()
}
