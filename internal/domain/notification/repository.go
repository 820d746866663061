// internal/domain/notification/repository.go
package notification

import (
	"context"
	"fmt"
	"time"
)

var ErrDuplicateNotification = fmt.Errorf("notification already exists for (account_id, type, day)")

// Repository defines operations on persisted notifications.
type Repository interface {
	// Insert returns ErrDuplicateNotification when the dedup key is taken.
	Insert(ctx context.Context, n *Notification) (int64, error)
	// CountForDay is the dedup predicate: notifications of typ for accountID created on day.
	CountForDay(ctx context.Context, accountID int64, typ Type, day string) (int, error)
	// CountCreatedOn counts every notification created on day.
	CountCreatedOn(ctx context.Context, day string) (int, error)
	// DeleteExpired purges notifications whose expires_at is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// ListActive returns notifications for accountID (and broadcasts) with expires_at > now.
	ListActive(ctx context.Context, accountID int64, now time.Time) ([]*Notification, error)
}

// SettingsRepository reads tax invoice settings.
type SettingsRepository interface {
	// ListDueOn returns active settings whose reminder fires on day.
	ListDueOn(ctx context.Context, day time.Time) ([]*TaxInvoiceSetting, error)
}
