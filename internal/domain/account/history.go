// internal/domain/account/history.go
package account

import (
	"database/sql"
	"time"
)

// HistoryReason records why a snapshot was archived.
type HistoryReason string

const (
	HistoryReasonExpired HistoryReason = "expired"
	HistoryReasonManual  HistoryReason = "manual_demotion"
)

// HistoryEntry is an immutable snapshot of an account taken at archival time.
// Entries are append-only.
type HistoryEntry struct {
	ID           int64
	AccountID    int64
	ExternalID   string
	Name         string
	Category     Category
	Status       Status
	PricingTier  PricingTier
	StartDate    sql.NullTime
	EndDate      sql.NullTime
	ContactName  sql.NullString
	ContactEmail sql.NullString
	ContactPhone sql.NullString
	Manager      sql.NullString
	Department   sql.NullString
	ActiveDays   int
	Reason       HistoryReason
	ArchivedOn   time.Time // civil day of the sweep
	CreatedAt    time.Time
}

// ActiveDays returns the inclusive day count of the period, or 0 when either
// bound is missing or the bounds are inverted.
func ActiveDays(start, end sql.NullTime) int {
	if !start.Valid || !end.Valid {
		return 0
	}
	s, e := dateOnly(start.Time), dateOnly(end.Time)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

// NewHistoryEntry snapshots the account as it is right now.
func NewHistoryEntry(a *Account, reason HistoryReason, archivedOn time.Time) *HistoryEntry {
	return &HistoryEntry{
		AccountID:    a.ID,
		ExternalID:   a.ExternalID,
		Name:         a.Name,
		Category:     a.Category,
		Status:       a.Status,
		PricingTier:  a.PricingTier,
		StartDate:    a.StartDate,
		EndDate:      a.EndDate,
		ContactName:  a.ContactName,
		ContactEmail: a.ContactEmail,
		ContactPhone: a.ContactPhone,
		Manager:      a.Manager,
		Department:   a.Department,
		ActiveDays:   ActiveDays(a.StartDate, a.EndDate),
		Reason:       reason,
		ArchivedOn:   archivedOn,
	}
}
