package database

import (
	"context"
	"database/sql"
	"fmt"
)

// LegacyEndDateFixup is the marker name recorded in data_fixups.
const LegacyEndDateFixup = "legacy_utc_end_date_shift"

// LegacyFixupResult reports what ApplyLegacyEndDateFix did.
type LegacyFixupResult struct {
	AlreadyApplied bool
	ShiftedRows    int64
}

// ApplyLegacyEndDateFix shifts the end date of every account created before
// cutover by shiftDays. Rows written before the cutover stored end dates one
// UTC day early. The fix is recorded in data_fixups and never runs twice.
func ApplyLegacyEndDateFix(ctx context.Context, db *sql.DB, cutover string, shiftDays int) (LegacyFixupResult, error) {
	txn, err := db.BeginTx(ctx, nil)
	if err != nil {
		return LegacyFixupResult{}, fmt.Errorf("failed to begin transaction for legacy fix-up: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	res, err := txn.ExecContext(ctx, `INSERT INTO data_fixups (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, LegacyEndDateFixup)
	if err != nil {
		return LegacyFixupResult{}, fmt.Errorf("error claiming legacy fix-up marker: %w", err)
	}
	claimed, err := res.RowsAffected()
	if err != nil {
		return LegacyFixupResult{}, fmt.Errorf("error reading fix-up marker result: %w", err)
	}
	if claimed == 0 {
		return LegacyFixupResult{AlreadyApplied: true}, nil
	}

	res, err = txn.ExecContext(ctx, `UPDATE accounts
               SET end_date = end_date + $1::int, updated_at = NOW()
               WHERE end_date IS NOT NULL AND created_at < $2::date`, shiftDays, cutover)
	if err != nil {
		return LegacyFixupResult{}, fmt.Errorf("error shifting legacy end dates: %w", err)
	}
	shifted, err := res.RowsAffected()
	if err != nil {
		return LegacyFixupResult{}, fmt.Errorf("error reading shifted row count: %w", err)
	}

	if _, err := txn.ExecContext(ctx, `UPDATE data_fixups SET affected_rows = $1 WHERE name = $2`, shifted, LegacyEndDateFixup); err != nil {
		return LegacyFixupResult{}, fmt.Errorf("error recording legacy fix-up: %w", err)
	}

	if err := txn.Commit(); err != nil {
		return LegacyFixupResult{}, fmt.Errorf("failed to commit legacy fix-up: %w", err)
	}
	return LegacyFixupResult{ShiftedRows: shifted}, nil
}
