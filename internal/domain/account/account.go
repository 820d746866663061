// internal/domain/account/account.go
package account

import (
	"database/sql"
	"fmt"
	"time"
)

var (
	ErrUnknownCategory    = fmt.Errorf("unknown account category")
	ErrUnknownStatus      = fmt.Errorf("unknown account status")
	ErrUnknownPricingTier = fmt.Errorf("unknown pricing tier")
)

// Category classifies what kind of contract a company account holds.
type Category string

const (
	CategoryFree       Category = "free"
	CategoryConsulting Category = "consulting"
	CategoryGeneral    Category = "general"
	CategoryWithdrawn  Category = "withdrawn"
	CategoryOther      Category = "other"
)

// PaidCategories are the categories that carry a paid period and can expire.
var PaidCategories = []Category{CategoryConsulting, CategoryGeneral}

// ParseCategory rejects anything outside the closed set.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryFree, CategoryConsulting, CategoryGeneral, CategoryWithdrawn, CategoryOther:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
}

// IsPaid reports whether accounts of this category must carry a paid period.
func (c Category) IsPaid() bool {
	return c == CategoryConsulting || c == CategoryGeneral
}

// Status is the approval lifecycle state of an account.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPendingApproval, StatusApproved:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// PricingTier is the billing plan attached to an account.
type PricingTier string

const (
	PricingTierBasic      PricingTier = "basic"
	PricingTierStandard   PricingTier = "standard"
	PricingTierPremium    PricingTier = "premium"
	PricingTierEnterprise PricingTier = "enterprise"
)

// LowestPricingTier is what a demoted account falls back to.
const LowestPricingTier = PricingTierBasic

func ParsePricingTier(s string) (PricingTier, error) {
	switch p := PricingTier(s); p {
	case PricingTierBasic, PricingTierStandard, PricingTierPremium, PricingTierEnterprise:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPricingTier, s)
	}
}

// Account is one managed company (or individual user) record.
type Account struct {
	ID           int64
	ExternalID   string // stable id shared with the outer CRUD layer
	Name         string
	Category     Category
	Status       Status
	PricingTier  PricingTier
	StartDate    sql.NullTime // civil date, no time component
	EndDate      sql.NullTime
	ContactName  sql.NullString
	ContactEmail sql.NullString
	ContactPhone sql.NullString
	Manager      sql.NullString
	Department   sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the paid-period invariant for approved accounts.
func (a *Account) Validate() error {
	if a.Status == StatusApproved && a.Category.IsPaid() {
		if !a.StartDate.Valid || !a.EndDate.Valid {
			return fmt.Errorf("account %d: approved %s account requires both start and end date", a.ID, a.Category)
		}
		if a.StartDate.Time.After(a.EndDate.Time) {
			return fmt.Errorf("account %d: start date %s is after end date %s", a.ID,
				a.StartDate.Time.Format(DateLayout), a.EndDate.Time.Format(DateLayout))
		}
	}
	if (a.Category == CategoryFree || a.Category == CategoryWithdrawn) && (a.StartDate.Valid || a.EndDate.Valid) {
		return fmt.Errorf("account %d: %s account must not carry a paid period", a.ID, a.Category)
	}
	return nil
}

// IsExpiredOn reports whether the account's paid period ended before the given civil day.
func (a *Account) IsExpiredOn(day time.Time) bool {
	if a.Status != StatusApproved || !a.Category.IsPaid() || !a.EndDate.Valid {
		return false
	}
	return dateOnly(a.EndDate.Time).Before(dateOnly(day))
}

// DateLayout is the wire format of a civil date.
const DateLayout = "2006-01-02"

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
