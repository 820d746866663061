// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterBotCommands wires /start and /help.
func RegisterBotCommands(b *telebot.Bot, adminTelegramID int64, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")
		return c.Send(StartText(senderID, adminTelegramID, c.Sender().FirstName))
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID != adminTelegramID {
			return c.Send(HelpText(false))
		}
		return c.Send(HelpText(true), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

func StartText(senderID, adminTelegramID int64, firstName string) string {
	if senderID == adminTelegramID {
		return fmt.Sprintf("Hello, %s! The account lifecycle service is running. Use /help for the command list.", firstName)
	}
	return "Hello! This bot only serves the service administrator."
}

func HelpText(isAdmin bool) string {
	if !isAdmin {
		return "There are no commands available to you."
	}
	var helpText strings.Builder
	helpText.WriteString("Admin commands:\n\n")
	helpText.WriteString("`/run_daily`\n - Run the expiration sweep and reminders now.\n\n")
	helpText.WriteString("`/run_notifications`\n - Issue today's reminders only.\n\n")
	helpText.WriteString("`/status`\n - Show the last daily run.\n\n")
	helpText.WriteString("`/demote <AccountID>`\n - Archive and demote one approved paid account now.\n\n")
	helpText.WriteString("`/help`\n - Show this message.")
	return helpText.String()
}
