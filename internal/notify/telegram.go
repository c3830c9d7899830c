package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/viper"
)

// Telegram delivers notifications through a bot to one chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram builds the bot client from notify.telegram.* config.
func NewTelegram() (*Telegram, error) {
	token := viper.GetString("notify.telegram.token")
	if token == "" {
		return nil, fmt.Errorf("notify.telegram.token is not configured")
	}

	chatID := viper.GetInt64("notify.telegram.chat_id")
	if chatID == 0 {
		return nil, fmt.Errorf("notify.telegram.chat_id is not configured")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}

	slog.Info("Telegram notifier ready", "bot", bot.Self.UserName)

	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) NotifyCode(_ context.Context, code, subject, sender string) error {
	return t.send(formatCode(code, subject, sender))
}

func (t *Telegram) NotifyConfirmation(_ context.Context, identity string, succeeded bool, reason string) error {
	return t.send(formatConfirmation(identity, succeeded, reason))
}

func (t *Telegram) NotifyError(_ context.Context, message, detail string) {
	if err := t.send(formatError(message, detail)); err != nil {
		logDeliveryFailure("telegram", err)
	}
}

func (t *Telegram) send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}
	return nil
}
