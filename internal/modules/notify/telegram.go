package notify

import (
	"context"
	"fmt"

	"taxi-booking/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramAPI is the part of the bot client the alerter uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramAlerter posts new orders to the operator chat.
type TelegramAlerter struct {
	api    telegramAPI
	chatID int64
}

// NewTelegramAlerter connects the bot with token.
func NewTelegramAlerter(token string, chatID int64) (*TelegramAlerter, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramAlerter{api: api, chatID: chatID}, nil
}

// AlertNewOrder sends text to the configured chat. The bot client has no
// context support; ctx is only checked before sending.
func (t *TelegramAlerter) AlertNewOrder(ctx context.Context, order *models.Order, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send for order %s: %w", order.ID, err)
	}
	return nil
}
