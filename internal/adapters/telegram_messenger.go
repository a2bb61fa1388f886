package adapters

import (
	"context"

	"dealer_crm_backend/internal/leads/ports"
	"dealer_crm_backend/internal/telegram"
)

// MessageSender is the telegram client call the messenger needs.
type MessageSender interface {
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (int64, error)
}

// TelegramMessenger implements ports.Messenger on top of the Bot API client.
type TelegramMessenger struct {
	client MessageSender
}

func NewTelegramMessenger(client MessageSender) *TelegramMessenger {
	return &TelegramMessenger{client: client}
}

var _ ports.Messenger = (*TelegramMessenger)(nil)

func (m *TelegramMessenger) Send(ctx context.Context, msg ports.OutboundMessage) error {
	_, err := m.client.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:      msg.ChatID,
		Text:        msg.HTML,
		ParseMode:   telegram.ParseModeHTML,
		ReplyMarkup: toKeyboard(msg.Buttons),
	})
	return err
}

func toKeyboard(rows [][]ports.Button) *telegram.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]telegram.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]telegram.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, telegram.InlineKeyboardButton{Text: b.Text, CallbackData: b.CallbackData, URL: b.URL})
		}
		keyboard = append(keyboard, buttons)
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}
