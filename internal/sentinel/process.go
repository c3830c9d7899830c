package sentinel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/mlennartz/mail-sentinel/internal/automate"
	"github.com/mlennartz/mail-sentinel/internal/extract"
	"github.com/mlennartz/mail-sentinel/internal/notify"
)

// MailSource supplies unseen messages and accepts one batched
// mark-as-handled update per cycle.
type MailSource interface {
	FetchUnseen() ([]Message, error)
	MarkHandled(uids []uint32) error
}

// CodeFetcher follows a candidate link and returns the code found on
// the page, or "" when there is none.
type CodeFetcher interface {
	FetchCode(ctx context.Context, link string) string
}

// Confirmer drives one browser confirmation session.
type Confirmer interface {
	Confirm(ctx context.Context, link string, creds automate.Credentials) automate.Outcome
}

// Processor runs one processing cycle: classify every unseen message,
// route it, notify the outcome, and flush the handled set at the end.
// Messages are processed strictly one at a time; one message's failure
// never aborts the batch.
type Processor struct {
	Source    MailSource
	Notifier  notify.Notifier
	Fetcher   CodeFetcher
	Confirmer Confirmer
}

// Run processes one batch of unseen messages and marks the resolved
// ones as handled in a single batched update afterwards.
func (p *Processor) Run(ctx context.Context) error {
	messages, err := p.Source.FetchUnseen()
	if err != nil {
		return fmt.Errorf("failed to fetch messages: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	var handled []uint32

	for _, msg := range messages {
		if p.processMessage(ctx, msg) {
			handled = append(handled, msg.UID)
		}
	}

	if err := p.Source.MarkHandled(handled); err != nil {
		return fmt.Errorf("failed to mark handled messages: %w", err)
	}

	return nil
}

// processMessage resolves a single message and reports whether it
// produced a terminal outcome and should be marked handled.
func (p *Processor) processMessage(ctx context.Context, msg Message) bool {
	slog.Info("Processing message", "uid", msg.UID, "subject", msg.Subject, "from", msg.Sender)

	switch Classify(msg) {
	case KindHousehold:
		return p.processHousehold(ctx, msg)
	default:
		return p.processCode(ctx, msg)
	}
}

// processHousehold extracts the action link and either automates the
// confirmation or surfaces the link for manual action when no
// automation credentials are configured.
func (p *Processor) processHousehold(ctx context.Context, msg Message) bool {
	link := FindActionLink(msg.HTMLBody)
	if link == "" {
		slog.Warn("Household message without action link", "uid", msg.UID, "subject", msg.Subject)
		return false
	}

	creds, ok := automationCredentials()
	if !ok {
		slog.Info("No automation credentials, surfacing link for manual action", "uid", msg.UID)
		p.Notifier.NotifyError(ctx, "Household confirmation requires manual action", link)
		return true
	}

	outcome := p.Confirmer.Confirm(ctx, link, creds)

	if err := p.Notifier.NotifyConfirmation(ctx, creds.Email, outcome.Succeeded, outcome.Reason); err != nil {
		slog.Error("Failed to send confirmation notification", "uid", msg.UID, "error", err)
		return false
	}

	return true
}

// processCode runs the extraction cascade: direct match on the plain
// body first, then code-keyword links from the HTML body, fetched one
// by one until a code turns up. Stops at first success.
func (p *Processor) processCode(ctx context.Context, msg Message) bool {
	if codes := extract.ExtractCodes(msg.TextBody); len(codes) > 0 {
		return p.deliverCode(ctx, msg, codes[0])
	}

	links := extract.FilterCodeLinks(extract.ExtractLinks(msg.HTMLBody))
	for _, link := range links {
		if code := p.Fetcher.FetchCode(ctx, link); code != "" {
			return p.deliverCode(ctx, msg, code)
		}
	}

	slog.Info("No code found, leaving message unresolved", "uid", msg.UID, "subject", msg.Subject)
	return false
}

func (p *Processor) deliverCode(ctx context.Context, msg Message, code string) bool {
	if err := p.Notifier.NotifyCode(ctx, code, msg.Subject, msg.Sender); err != nil {
		slog.Error("Failed to send code notification", "uid", msg.UID, "error", err)
		return false
	}

	slog.Info("Code delivered", "uid", msg.UID)
	return true
}

// automationCredentials reads the optional automation login. Presence
// toggles whether household confirmations are automated.
func automationCredentials() (automate.Credentials, bool) {
	email := viper.GetString("automation.email")
	password := viper.GetString("automation.password")
	if email == "" || password == "" {
		return automate.Credentials{}, false
	}
	return automate.Credentials{Email: email, Password: password}, true
}
