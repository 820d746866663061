package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"company_account_lifecycle/internal/domain/account"

	"github.com/lib/pq"
)

const accountColumns = `id, external_id, name, category, status, pricing_tier, start_date, end_date,
       contact_name, contact_email, contact_phone, manager, department, created_at, updated_at`

// expiredPredicate matches approved paid accounts whose end date is before $3.
const expiredPredicate = `status = $1 AND category = ANY($2) AND end_date IS NOT NULL AND end_date < $3::date`

type PostgresAccountRepository struct {
	db *sql.DB
}

func NewPostgresAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

func paidCategoryNames() []string {
	names := make([]string, len(account.PaidCategories))
	for i, c := range account.PaidCategories {
		names[i] = string(c)
	}
	return names
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*account.Account, error) {
	a := &account.Account{}
	var category, status, tier string
	if err := row.Scan(
		&a.ID, &a.ExternalID, &a.Name, &category, &status, &tier, &a.StartDate, &a.EndDate,
		&a.ContactName, &a.ContactEmail, &a.ContactPhone, &a.Manager, &a.Department, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if a.Category, err = account.ParseCategory(category); err != nil {
		return nil, fmt.Errorf("account %d: %w", a.ID, err)
	}
	if a.Status, err = account.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("account %d: %w", a.ID, err)
	}
	if a.PricingTier, err = account.ParsePricingTier(tier); err != nil {
		return nil, fmt.Errorf("account %d: %w", a.ID, err)
	}
	return a, nil
}

func scanAccounts(rows *sql.Rows) ([]*account.Account, error) {
	accounts := make([]*account.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

func (r *PostgresAccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrAccountNotFound
		}
		return nil, fmt.Errorf("error getting account by ID: %w", err)
	}
	return a, nil
}

func (r *PostgresAccountRepository) FindExpired(ctx context.Context, asOf string) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + expiredPredicate + ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, account.StatusApproved, pq.Array(paidCategoryNames()), asOf)
	if err != nil {
		return nil, fmt.Errorf("error querying expired accounts: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

// DemoteExpired locks the accounts matching the expiry predicate, demotes them
// and returns the rows as they were before the update.
func (r *PostgresAccountRepository) DemoteExpired(ctx context.Context, asOf string) ([]*account.Account, error) {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for demotion: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + expiredPredicate + ` ORDER BY id FOR UPDATE`
	rows, err := txn.QueryContext(ctx, query, account.StatusApproved, pq.Array(paidCategoryNames()), asOf)
	if err != nil {
		return nil, fmt.Errorf("error locking expired accounts: %w", err)
	}
	snapshots, err := scanAccounts(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	if len(snapshots) > 0 {
		ids := make([]int64, len(snapshots))
		for i, a := range snapshots {
			ids[i] = a.ID
		}
		update := `UPDATE accounts
               SET status = $1, category = $2, pricing_tier = $3, start_date = NULL, end_date = NULL, updated_at = NOW()
               WHERE id = ANY($4)`
		if _, err := txn.ExecContext(ctx, update, account.StatusPendingApproval, account.CategoryFree, account.LowestPricingTier, pq.Array(ids)); err != nil {
			return nil, fmt.Errorf("error demoting %d expired accounts: %w", len(ids), err)
		}
	}

	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit demotion: %w", err)
	}
	return snapshots, nil
}

func (r *PostgresAccountRepository) Demote(ctx context.Context, id int64) (int64, error) {
	query := `UPDATE accounts
               SET status = $1, category = $2, pricing_tier = $3, start_date = NULL, end_date = NULL, updated_at = NOW()
               WHERE id = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, account.StatusPendingApproval, account.CategoryFree, account.LowestPricingTier, id, account.StatusApproved)
	if err != nil {
		return 0, fmt.Errorf("error demoting account %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading demoted row count: %w", err)
	}
	return affected, nil
}

func (r *PostgresAccountRepository) FindByEndDate(ctx context.Context, date string) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
               WHERE status = $1 AND category = ANY($2) AND end_date = $3::date ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, account.StatusApproved, pq.Array(paidCategoryNames()), date)
	if err != nil {
		return nil, fmt.Errorf("error querying accounts by end date: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *PostgresAccountRepository) FindApprovedByName(ctx context.Context, name string) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE status = $1 AND name = $2 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, account.StatusApproved, name)
	if err != nil {
		return nil, fmt.Errorf("error querying approved accounts by name: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}
