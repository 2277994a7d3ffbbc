package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/lms-publisher/pkg/config"
)

func TestNewTransportSelection(t *testing.T) {
	mailgunCfg := config.MailConfig{From: "no-reply@example.com", MailgunDomain: "mg", MailgunAPIKey: "k"}
	sendgridCfg := config.MailConfig{From: "no-reply@example.com", SendGridAPIKey: "SG.k"}

	cases := []struct {
		name string
		cfg  config.MailConfig
		want string
	}{
		{name: "auto mailgun", cfg: mailgunCfg, want: "mailgun"},
		{name: "auto sendgrid", cfg: sendgridCfg, want: "sendgrid"},
		{name: "auto none", cfg: config.MailConfig{}, want: "disabled"},
		{name: "explicit log", cfg: config.MailConfig{Provider: config.MailProviderLog}, want: "log"},
		{name: "explicit sendgrid missing key", cfg: config.MailConfig{Provider: config.MailProviderSendGrid, From: "a@b.c"}, want: "disabled"},
		{name: "explicit mailgun", cfg: func() config.MailConfig { c := mailgunCfg; c.Provider = config.MailProviderMailgun; return c }(), want: "mailgun"},
		{name: "unknown", cfg: config.MailConfig{Provider: "smtp"}, want: "disabled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NewTransport(tc.cfg, nil).Name())
		})
	}
}

func TestDisabledTransportAlwaysFails(t *testing.T) {
	tr := NewTransport(config.MailConfig{}, nil)
	assert.ErrorIs(t, tr.Send(context.Background(), Message{To: "a@b.c"}), ErrDisabled)
}

func TestLogTransportWritesEntry(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tr := NewLogTransport(zap.New(core))

	err := tr.Send(context.Background(), Message{To: "a@b.c", Subject: "hola", Tags: []string{"material"}})
	assert.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("mail message").Len())
	assert.ErrorIs(t, tr.Send(context.Background(), Message{}), ErrNoRecipient)
}
