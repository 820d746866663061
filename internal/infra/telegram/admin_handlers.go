package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"company_account_lifecycle/internal/app"
	"company_account_lifecycle/internal/domain/account"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const msgUnauthorized = "Error: you are not allowed to run this command."

// AdminOperations is what the admin commands call into. *app.AdminService implements it.
type AdminOperations interface {
	RunDaily(ctx context.Context, performingAdminID int64) (*app.RunReport, error)
	RunNotifications(ctx context.Context, performingAdminID int64) (app.NotificationTriggerResult, error)
	LastRun(performingAdminID int64) (*app.RunReport, error)
	DemoteAccount(ctx context.Context, performingAdminID int64, accountID int64) (bool, error)
}

// AdminHandlers answers the admin's bot commands.
type AdminHandlers struct {
	ops             AdminOperations
	adminTelegramID int64
	logger          *logrus.Entry
}

func NewAdminHandlers(ops AdminOperations, adminTelegramID int64, baseLogger *logrus.Entry) *AdminHandlers {
	return &AdminHandlers{ops: ops, adminTelegramID: adminTelegramID, logger: baseLogger}
}

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, h *AdminHandlers) {
	b.Handle("/run_daily", func(c telebot.Context) error {
		return c.Send(h.RunDaily(ctx, c.Sender().ID))
	})
	b.Handle("/run_notifications", func(c telebot.Context) error {
		return c.Send(h.RunNotifications(ctx, c.Sender().ID))
	})
	b.Handle("/status", func(c telebot.Context) error {
		return c.Send(h.Status(c.Sender().ID))
	})
	b.Handle("/demote", func(c telebot.Context) error {
		return c.Send(h.Demote(ctx, c.Sender().ID, c.Args()))
	})
}

func (h *AdminHandlers) handlerLogger(command string, senderID int64) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{
		"handler":   command,
		"sender_id": senderID,
	})
}

func (h *AdminHandlers) RunDaily(ctx context.Context, senderID int64) string {
	handlerLogger := h.handlerLogger("/run_daily", senderID)
	handlerLogger.Info("Command received")

	if senderID != h.adminTelegramID {
		handlerLogger.Warn("Unauthorized access attempt")
		return msgUnauthorized
	}

	report, err := h.ops.RunDaily(ctx, senderID)
	if err != nil {
		return h.replyError(handlerLogger, err, "Failed to run the daily pipeline")
	}
	handlerLogger.WithFields(logrus.Fields{
		"run_id":  report.RunID,
		"outcome": report.Outcome,
	}).Info("Daily run triggered manually")
	return FormatRunReport(report)
}

func (h *AdminHandlers) RunNotifications(ctx context.Context, senderID int64) string {
	handlerLogger := h.handlerLogger("/run_notifications", senderID)
	handlerLogger.Info("Command received")

	if senderID != h.adminTelegramID {
		handlerLogger.Warn("Unauthorized access attempt")
		return msgUnauthorized
	}

	result, err := h.ops.RunNotifications(ctx, senderID)
	if err != nil {
		return h.replyError(handlerLogger, err, "Failed to run notifications")
	}
	if !result.Success {
		handlerLogger.WithField("count", result.Count).Warn("Manual notification run finished with errors")
		return "Notification run finished with errors: " + result.Message
	}
	return "Notification run finished: " + result.Message
}

func (h *AdminHandlers) Status(senderID int64) string {
	handlerLogger := h.handlerLogger("/status", senderID)

	if senderID != h.adminTelegramID {
		handlerLogger.Warn("Unauthorized access attempt")
		return msgUnauthorized
	}

	report, err := h.ops.LastRun(senderID)
	if err != nil {
		if errors.Is(err, app.ErrNoRunYet) {
			return "No daily run has finished since the service started."
		}
		return h.replyError(handlerLogger, err, "Failed to read the last run")
	}
	return FormatRunReport(report)
}

// Demote expects exactly one argument: the internal account id.
func (h *AdminHandlers) Demote(ctx context.Context, senderID int64, args []string) string {
	handlerLogger := h.handlerLogger("/demote", senderID)
	handlerLogger.Info("Command received")

	if senderID != h.adminTelegramID {
		handlerLogger.Warn("Unauthorized access attempt")
		return msgUnauthorized
	}
	if len(args) != 1 {
		return "Invalid command format. Use: /demote <AccountID>"
	}
	accountID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || accountID <= 0 {
		handlerLogger.WithField("arg", args[0]).Warn("Invalid account ID format")
		return "Error: AccountID must be a positive number."
	}
	handlerLogger = handlerLogger.WithField("account_id", accountID)

	demoted, err := h.ops.DemoteAccount(ctx, senderID, accountID)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrAccountNotFound):
			handlerLogger.Warn("Account to demote not found")
			return fmt.Sprintf("Account %d not found.", accountID)
		case errors.Is(err, app.ErrAccountNotDemotable):
			handlerLogger.Warn("Account is not an approved paid account")
			return fmt.Sprintf("Account %d is not an approved paid account.", accountID)
		default:
			return h.replyError(handlerLogger, err, "Failed to demote account")
		}
	}
	if !demoted {
		return fmt.Sprintf("Account %d was already demoted.", accountID)
	}
	handlerLogger.Info("Account demoted manually")
	return fmt.Sprintf("Account %d archived and demoted to free.", accountID)
}

func (h *AdminHandlers) replyError(handlerLogger *logrus.Entry, err error, msg string) string {
	if errors.Is(err, app.ErrAdminNotAuthorized) {
		handlerLogger.WithError(err).Warn("Admin not authorized (service level)")
		return msgUnauthorized
	}
	handlerLogger.WithError(err).Error(msg)
	return fmt.Sprintf("An error occurred: %s", err.Error())
}
