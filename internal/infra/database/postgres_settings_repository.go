package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"company_account_lifecycle/internal/domain/notification"
)

type PostgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

// ListDueOn returns active settings for day's day-of-month. On the last day of
// a month, settings for later days (e.g. 31 in April) are included as well.
func (r *PostgresSettingsRepository) ListDueOn(ctx context.Context, day time.Time) ([]*notification.TaxInvoiceSetting, error) {
	query := `SELECT id, company_name, day_of_month, is_active, created_at, updated_at
               FROM tax_invoice_settings
               WHERE is_active = TRUE AND (day_of_month = $1 OR ($2 AND day_of_month > $1))
               ORDER BY id`
	isLastDay := day.Day() == notification.LastDayOfMonth(day)
	rows, err := r.db.QueryContext(ctx, query, day.Day(), isLastDay)
	if err != nil {
		return nil, fmt.Errorf("error querying due tax invoice settings: %w", err)
	}
	defer rows.Close()

	settings := make([]*notification.TaxInvoiceSetting, 0)
	for rows.Next() {
		s := &notification.TaxInvoiceSetting{}
		if err := rows.Scan(&s.ID, &s.CompanyName, &s.DayOfMonth, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning tax invoice setting row: %w", err)
		}
		settings = append(settings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tax invoice setting rows: %w", err)
	}
	return settings, nil
}
