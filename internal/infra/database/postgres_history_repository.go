package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"company_account_lifecycle/internal/domain/account"
)

type PostgresHistoryRepository struct {
	db *sql.DB
}

func NewPostgresHistoryRepository(db *sql.DB) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

// Insert appends a snapshot. An expiry already archived for the same account
// and end date yields account.ErrHistoryAlreadyArchived.
func (r *PostgresHistoryRepository) Insert(ctx context.Context, e *account.HistoryEntry) (int64, error) {
	query := `INSERT INTO account_history (account_id, external_id, name, category, status, pricing_tier,
                   start_date, end_date, contact_name, contact_email, contact_phone, manager, department,
                   active_days, reason, archived_on)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
               ON CONFLICT (account_id, end_date) WHERE reason = 'expired' DO NOTHING
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		e.AccountID, e.ExternalID, e.Name, e.Category, e.Status, e.PricingTier,
		e.StartDate, e.EndDate, e.ContactName, e.ContactEmail, e.ContactPhone, e.Manager, e.Department,
		e.ActiveDays, e.Reason, e.ArchivedOn,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return 0, account.ErrHistoryAlreadyArchived
		}
		return 0, fmt.Errorf("error inserting account history: %w", err)
	}
	return e.ID, nil
}

func (r *PostgresHistoryRepository) ListByAccount(ctx context.Context, accountID int64) ([]*account.HistoryEntry, error) {
	query := `SELECT id, account_id, external_id, name, category, status, pricing_tier, start_date, end_date,
                   contact_name, contact_email, contact_phone, manager, department, active_days, reason,
                   archived_on, created_at
               FROM account_history WHERE account_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("error querying account history: %w", err)
	}
	defer rows.Close()

	entries := make([]*account.HistoryEntry, 0)
	for rows.Next() {
		e := &account.HistoryEntry{}
		var category, status, tier, reason string
		if err := rows.Scan(
			&e.ID, &e.AccountID, &e.ExternalID, &e.Name, &category, &status, &tier, &e.StartDate, &e.EndDate,
			&e.ContactName, &e.ContactEmail, &e.ContactPhone, &e.Manager, &e.Department, &e.ActiveDays, &reason,
			&e.ArchivedOn, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning account history row: %w", err)
		}
		// Snapshots are kept verbatim even if the enumerations later change.
		e.Category = account.Category(category)
		e.Status = account.Status(status)
		e.PricingTier = account.PricingTier(tier)
		e.Reason = account.HistoryReason(reason)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account history rows: %w", err)
	}
	return entries, nil
}
