// internal/domain/telegram/client.go
package telegram

import "gopkg.in/telebot.v3"

// Client sends messages through the admin bot. Failure alerts use it so the
// application layer never touches the bot library directly.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
