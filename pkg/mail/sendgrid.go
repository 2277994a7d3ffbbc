package mail

import (
	"context"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendgridEndpoint = "/v3/mail/send"

// SendGridTransport delivers messages through the SendGrid v3 API.
type SendGridTransport struct {
	key  string
	host string
	from *sgmail.Email
}

// NewSendGridTransport builds a transport; an empty host targets the public API.
func NewSendGridTransport(key, host, fromName, fromEmail string) *SendGridTransport {
	if host == "" {
		host = "https://api.sendgrid.com"
	}
	var from *sgmail.Email
	if fromEmail != "" {
		from = sgmail.NewEmail(fromName, fromEmail)
	}
	return &SendGridTransport{key: key, host: strings.TrimRight(host, "/"), from: from}
}

// Enabled reports whether an API key and sender are configured.
func (t *SendGridTransport) Enabled() bool {
	return t.key != "" && t.from != nil
}

func (t *SendGridTransport) Name() string { return "sendgrid" }

// Send delivers one message.
func (t *SendGridTransport) Send(ctx context.Context, msg Message) error {
	if !t.Enabled() {
		return ErrDisabled
	}
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}

	req := sendgrid.GetRequest(t.key, sendgridEndpoint, t.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(t.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return &TransportError{Provider: t.Name(), Err: err}
	}
	if res.StatusCode >= http.StatusBadRequest {
		body := res.Body
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &TransportError{Provider: t.Name(), Status: res.StatusCode, Body: body}
	}
	return nil
}

func (t *SendGridTransport) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(t.from)
	m.AddPersonalizations(p)

	// SendGrid requires text/plain before text/html.
	text := msg.Text
	if text == "" {
		text = msg.Subject
	}
	m.AddContent(sgmail.NewContent("text/plain", text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	if len(msg.Tags) > 0 {
		m.AddCategories(msg.Tags...)
	}
	return m
}
