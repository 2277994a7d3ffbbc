package mail

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// LogTransport writes messages to the logger instead of delivering them.
// Used in development so scheduled publications can be observed end to end.
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport returns a logging transport.
func NewLogTransport(logger *zap.Logger) *LogTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Name() string { return "log" }

// Send logs the message envelope and text body.
func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.logger.Info("mail message",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Strings("tags", msg.Tags),
		zap.String("text", msg.Text),
	)
	return nil
}
