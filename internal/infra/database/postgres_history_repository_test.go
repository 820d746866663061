package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"company_account_lifecycle/internal/domain/account"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyEntry() *account.HistoryEntry {
	a := &account.Account{
		ID:          1,
		ExternalID:  "acme-ext",
		Name:        "Acme",
		Category:    account.CategoryGeneral,
		Status:      account.StatusApproved,
		PricingTier: account.PricingTierPremium,
		StartDate:   sql.NullTime{Time: day("2024-01-01"), Valid: true},
		EndDate:     sql.NullTime{Time: day("2024-01-10"), Valid: true},
	}
	return account.NewHistoryEntry(a, account.HistoryReasonExpired, day("2024-01-11"))
}

func TestHistoryRepository_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresHistoryRepository(db)
	entry := historyEntry()

	mock.ExpectQuery(`(?s)INSERT INTO account_history .+ ON CONFLICT \(account_id, end_date\) WHERE reason = 'expired' DO NOTHING\s+RETURNING id, created_at`).
		WithArgs(int64(1), "acme-ext", "Acme", "general", "approved", "premium",
			sqlmock.AnyArg(), sqlmock.AnyArg(), nil, nil, nil, nil, nil,
			10, "expired", day("2024-01-11")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(55), time.Now()))

	id, err := repo.Insert(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, int64(55), id)
	assert.Equal(t, int64(55), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_InsertAlreadyArchived(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresHistoryRepository(db)

	mock.ExpectQuery(`INSERT INTO account_history`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))
	mock.ExpectQuery(`INSERT INTO account_history`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Insert(context.Background(), historyEntry())
	assert.ErrorIs(t, err, account.ErrHistoryAlreadyArchived)
	_, err = repo.Insert(context.Background(), historyEntry())
	assert.ErrorIs(t, err, account.ErrHistoryAlreadyArchived)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_InsertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresHistoryRepository(db)

	mock.ExpectQuery(`INSERT INTO account_history`).WillReturnError(errors.New("disk full"))

	_, err := repo.Insert(context.Background(), historyEntry())
	require.Error(t, err)
	assert.NotErrorIs(t, err, account.ErrHistoryAlreadyArchived)
	assert.Contains(t, err.Error(), "disk full")
}

func TestHistoryRepository_ListByAccount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresHistoryRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "account_id", "external_id", "name", "category", "status", "pricing_tier", "start_date", "end_date",
		"contact_name", "contact_email", "contact_phone", "manager", "department", "active_days", "reason",
		"archived_on", "created_at",
	}).AddRow(int64(9), int64(1), "acme-ext", "Acme", "general", "approved", "premium", day("2024-01-01"), day("2024-01-10"),
		nil, nil, nil, nil, nil, 10, "expired", day("2024-01-11"), now)
	mock.ExpectQuery(`FROM account_history WHERE account_id = \$1`).WithArgs(int64(1)).WillReturnRows(rows)

	entries, err := repo.ListByAccount(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 10, entries[0].ActiveDays)
	assert.Equal(t, account.HistoryReasonExpired, entries[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}
