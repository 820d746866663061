// internal/infra/telegram/client.go
package telegram

import (
	domain "company_account_lifecycle/internal/domain/telegram"

	"gopkg.in/telebot.v3"
)

var _ domain.Client = (*TelebotAdapter)(nil)

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to the specified recipient.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	recipient := &telebot.User{ID: recipientChatID} // the admin talks to the bot in a private chat
	_, err := tba.bot.Send(recipient, text, options)
	return err
}
