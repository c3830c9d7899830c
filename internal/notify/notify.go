// Package notify delivers human-readable outcomes to the configured
// channel. Two channels exist: a Telegram bot and plain mail over SMTP.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

// Notifier is the delivery contract the orchestrator depends on.
// NotifyError is best-effort: implementations log delivery failures
// themselves and never propagate them.
type Notifier interface {
	NotifyCode(ctx context.Context, code, subject, sender string) error
	NotifyConfirmation(ctx context.Context, identity string, succeeded bool, reason string) error
	NotifyError(ctx context.Context, message, detail string)
}

// New selects the notifier from notify.channel. Missing channel config
// surfaces as a descriptive error here, at first use.
func New() (Notifier, error) {
	channel := viper.GetString("notify.channel")

	switch channel {
	case "telegram":
		return NewTelegram()
	case "mail":
		return NewMail()
	case "":
		return nil, fmt.Errorf("notify.channel is not configured (expected \"telegram\" or \"mail\")")
	default:
		return nil, fmt.Errorf("unknown notify.channel %q (expected \"telegram\" or \"mail\")", channel)
	}
}

// formatCode renders the code-found shape.
func formatCode(code, subject, sender string) string {
	return fmt.Sprintf("Verification code: %s\nSubject: %s\nFrom: %s", code, subject, sender)
}

// formatConfirmation renders the confirmation-result shape.
func formatConfirmation(identity string, succeeded bool, reason string) string {
	if succeeded {
		return fmt.Sprintf("Household confirmation succeeded for %s", identity)
	}
	if reason == "" {
		reason = "unknown"
	}
	return fmt.Sprintf("Household confirmation FAILED for %s\nReason: %s", identity, reason)
}

// formatError renders the generic-error shape.
func formatError(message, detail string) string {
	if detail == "" {
		return message
	}
	return fmt.Sprintf("%s\n%s", message, detail)
}

// logDeliveryFailure is the shared sink for best-effort sends.
func logDeliveryFailure(channel string, err error) {
	slog.Error("Failed to deliver error notification", "channel", channel, "error", err)
}
