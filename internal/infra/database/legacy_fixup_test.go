package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyLegacyEndDateFix(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO data_fixups \(name\) VALUES \(\$1\) ON CONFLICT \(name\) DO NOTHING`).
		WithArgs(LegacyEndDateFixup).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)UPDATE accounts\s+SET end_date = end_date \+ \$1::int.+created_at < \$2::date`).
		WithArgs(1, "2024-06-01").
		WillReturnResult(sqlmock.NewResult(0, 42))
	mock.ExpectExec(`UPDATE data_fixups SET affected_rows = \$1 WHERE name = \$2`).
		WithArgs(int64(42), LegacyEndDateFixup).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := ApplyLegacyEndDateFix(context.Background(), db, "2024-06-01", 1)
	require.NoError(t, err)
	assert.False(t, result.AlreadyApplied)
	assert.Equal(t, int64(42), result.ShiftedRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyLegacyEndDateFix_RunsOnce(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO data_fixups`).
		WithArgs(LegacyEndDateFixup).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	result, err := ApplyLegacyEndDateFix(context.Background(), db, "2024-06-01", 1)
	require.NoError(t, err)
	assert.True(t, result.AlreadyApplied)
	assert.Equal(t, int64(0), result.ShiftedRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
