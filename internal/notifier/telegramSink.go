package notifier

import (
	"context"
	"fmt"

	"github.com/warcamp/booker/internal/entity"
	"github.com/warcamp/booker/pkg/telegram"
)

// TelegramSink delivers notifications directly through the Telegram Bot
// API. The owner reference is used as the chat id.
type TelegramSink struct {
	bot *telegram.Bot
}

func NewTelegramSink(bot *telegram.Bot) *TelegramSink {
	return &TelegramSink{bot: bot}
}

func (s *TelegramSink) Send(ctx context.Context, owner string, n Notification) error {
	if err := s.bot.SendMessage(ctx, owner, RenderMessage(n)); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrNotificationDelivery, err)
	}
	return nil
}
