// internal/infra/database/postgres_notification_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"company_account_lifecycle/internal/domain/notification"
)

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

// Insert stores n unless (account_id, type, created_on) is already taken, in
// which case notification.ErrDuplicateNotification is returned.
func (r *PostgresNotificationRepository) Insert(ctx context.Context, n *notification.Notification) (int64, error) {
	query := `INSERT INTO notifications (account_id, type, title, message, is_read, created_on, created_at, expires_at)
               VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8)
               ON CONFLICT (account_id, type, created_on) DO NOTHING
               RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		n.AccountID, n.Type, n.Title, n.Message, n.IsRead, n.CreatedOn, n.CreatedAt, n.ExpiresAt,
	).Scan(&n.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return 0, notification.ErrDuplicateNotification
		}
		return 0, fmt.Errorf("error inserting notification: %w", err)
	}
	return n.ID, nil
}

func (r *PostgresNotificationRepository) CountForDay(ctx context.Context, accountID int64, typ notification.Type, day string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE account_id = $1 AND type = $2 AND created_on = $3::date`
	var count int
	if err := r.db.QueryRowContext(ctx, query, accountID, typ, day).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting notifications for day: %w", err)
	}
	return count, nil
}

func (r *PostgresNotificationRepository) CountCreatedOn(ctx context.Context, day string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE created_on = $1::date`
	var count int
	if err := r.db.QueryRowContext(ctx, query, day).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting notifications created on day: %w", err)
	}
	return count, nil
}

func (r *PostgresNotificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("error deleting expired notifications: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading deleted notification count: %w", err)
	}
	return deleted, nil
}

func (r *PostgresNotificationRepository) ListActive(ctx context.Context, accountID int64, now time.Time) ([]*notification.Notification, error) {
	query := `SELECT id, account_id, type, title, message, is_read, created_on, created_at, expires_at
               FROM notifications
               WHERE account_id IN ($1, $2) AND expires_at > $3
               ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, accountID, notification.BroadcastAccountID, now)
	if err != nil {
		return nil, fmt.Errorf("error querying active notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*notification.Notification, 0)
	for rows.Next() {
		n := &notification.Notification{}
		var typ string
		var createdOn time.Time
		if err := rows.Scan(&n.ID, &n.AccountID, &typ, &n.Title, &n.Message, &n.IsRead, &createdOn, &n.CreatedAt, &n.ExpiresAt); err != nil {
			return nil, fmt.Errorf("error scanning notification row: %w", err)
		}
		if n.Type, err = notification.ParseType(typ); err != nil {
			return nil, fmt.Errorf("notification %d: %w", n.ID, err)
		}
		n.CreatedOn = createdOn.Format(notification.DateLayout)
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return notifications, nil
}
