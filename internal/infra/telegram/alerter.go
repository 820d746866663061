package telegram

import (
	"context"
	"fmt"

	"company_account_lifecycle/internal/app"
	domain "company_account_lifecycle/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

var _ app.FailureAlerter = (*FailureAlerter)(nil)

// FailureAlerter sends run failures to the admin chat.
type FailureAlerter struct {
	client      domain.Client
	adminChatID int64
	logger      *logrus.Entry
}

func NewFailureAlerter(client domain.Client, adminChatID int64, logger *logrus.Entry) *FailureAlerter {
	return &FailureAlerter{client: client, adminChatID: adminChatID, logger: logger}
}

func (a *FailureAlerter) AlertFailures(_ context.Context, report *app.RunReport) error {
	if len(report.Failures) == 0 {
		return nil
	}
	text := "⚠️ " + FormatRunReport(report)
	if err := a.client.SendMessage(a.adminChatID, text, nil); err != nil {
		return fmt.Errorf("failed to send failure alert for run %s: %w", report.RunID, err)
	}
	a.logger.WithFields(logrus.Fields{
		"run_id":        report.RunID,
		"failure_count": len(report.Failures),
	}).Info("Failure alert sent to admin")
	return nil
}
