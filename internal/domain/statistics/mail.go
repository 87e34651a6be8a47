package statistics

import (
	"context"

	"go.uber.org/zap"
)

// LogMailClient is a MailClient that only logs the message. It stands in for
// a real mail provider in development and tests.
type LogMailClient struct {
	lg *zap.Logger
}

// NewLogMailClient creates a logging mail client.
func NewLogMailClient(lg *zap.Logger) *LogMailClient {
	return &LogMailClient{lg: lg}
}

// SendEmail logs the message and reports success.
func (c *LogMailClient) SendEmail(_ context.Context, from, to, subject, content string) (bool, error) {
	c.lg.Info("mail sent",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("content", content),
	)
	return true, nil
}
