package otp

import (
	"context"

	"github.com/Vraj260105/Block-Vote/internal/logging"
)

// Sender delivers a passcode to the identity's out-of-band channel
// (email provider, SMS gateway). Implementations live outside this core.
type Sender interface {
	Send(ctx context.Context, email, code, purpose string) error
}

// LogSender writes codes to the structured log instead of sending them.
// Development stand-in for a real provider.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(l logging.Logger) *LogSender {
	return &LogSender{logger: l.With("module", "otp_sender")}
}

func (s *LogSender) Send(ctx context.Context, email, code, purpose string) error {
	s.logger.Info(ctx, "passcode issued", "email", email, "purpose", purpose, "code", code)
	return nil
}
