// internal/app/history_recorder.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"company_account_lifecycle/internal/domain/account"

	"github.com/sirupsen/logrus"
)

// HistoryRecorder appends archival snapshots of accounts.
type HistoryRecorder struct {
	historyRepo account.HistoryRepository
	logger      *logrus.Entry
}

func NewHistoryRecorder(hr account.HistoryRepository, logger *logrus.Entry) *HistoryRecorder {
	return &HistoryRecorder{
		historyRepo: hr,
		logger:      logger,
	}
}

// Archive snapshots the account's current state, including its derived active
// day count. An expiry that was already archived (by an overlapping run or a
// previous attempt) counts as success.
func (r *HistoryRecorder) Archive(ctx context.Context, a *account.Account, reason account.HistoryReason, archivedOn time.Time) error {
	entry := account.NewHistoryEntry(a, reason, archivedOn)
	log := r.logger.WithFields(logrus.Fields{
		"account_id":  a.ID,
		"external_id": a.ExternalID,
		"reason":      reason,
		"active_days": entry.ActiveDays,
	})

	id, err := r.historyRepo.Insert(ctx, entry)
	if err != nil {
		if errors.Is(err, account.ErrHistoryAlreadyArchived) {
			log.Info("History entry already archived for this expiry, skipping")
			return nil
		}
		return fmt.Errorf("failed to archive history for account %d: %w", a.ID, err)
	}

	log.WithField("history_id", id).Debug("History entry archived")
	return nil
}
