// internal/domain/account/repository.go
package account

import (
	"context"
	"fmt"
)

var (
	ErrAccountNotFound        = fmt.Errorf("account not found")
	ErrHistoryAlreadyArchived = fmt.Errorf("history entry for this expiry already archived")
)

// Repository defines the account reads and lifecycle transitions the daily
// pipeline needs. Dates are civil dates in DateLayout.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Account, error)
	// FindExpired lists approved paid accounts whose end date is before asOf. Read-only.
	FindExpired(ctx context.Context, asOf string) ([]*Account, error)
	// DemoteExpired demotes every account matching the FindExpired predicate at
	// execution time, in one transaction, and returns their pre-demotion snapshots.
	DemoteExpired(ctx context.Context, asOf string) ([]*Account, error)
	// Demote demotes a single approved account. Repeating it affects 0 rows.
	Demote(ctx context.Context, id int64) (int64, error)
	FindByEndDate(ctx context.Context, date string) ([]*Account, error)
	FindApprovedByName(ctx context.Context, name string) ([]*Account, error)
}

// HistoryRepository appends archival snapshots.
type HistoryRepository interface {
	// Insert returns ErrHistoryAlreadyArchived when the same expiry was archived before.
	Insert(ctx context.Context, entry *HistoryEntry) (int64, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*HistoryEntry, error)
}
