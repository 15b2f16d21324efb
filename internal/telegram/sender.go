package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const MaxMessageLen = 4096

// MessageSender is the part of *bot.Bot the notifier uses.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// SendLongMessage sends text to a chat topic, split into as many messages
// as needed. A part Telegram refuses as Markdown is resent as plain text.
func SendLongMessage(ctx context.Context, s MessageSender, chatID int64, threadID int, text string) error {
	for _, part := range SplitMessage(FixMarkdown(text), MaxMessageLen) {
		params := &bot.SendMessageParams{
			ChatID:          chatID,
			MessageThreadID: threadID,
			Text:            part,
			ParseMode:       models.ParseModeMarkdownV1,
		}

		if _, err := s.SendMessage(ctx, params); err != nil {
			slog.Warn("markdown send failed, falling back to plain text", "error", err)
			params.ParseMode = ""
			if _, err := s.SendMessage(ctx, params); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}
	return nil
}
