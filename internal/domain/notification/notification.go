// internal/domain/notification/notification.go
package notification

import (
	"fmt"
	"time"
)

var ErrUnknownType = fmt.Errorf("unknown notification type")

// BroadcastAccountID targets every account instead of a single one.
const BroadcastAccountID int64 = 0

// DateLayout is the format of CreatedOn.
const DateLayout = "2006-01-02"

// DefaultTTL is how long a notification stays visible after creation.
const DefaultTTL = 7 * 24 * time.Hour

// Type tags what a notification reminds the user about.
type Type string

const (
	TypeEndDateToday  Type = "end_date_today"
	TypeEndDate1Day   Type = "end_date_1day"
	TypeEndDate14Days Type = "end_date_14days"
	TypeTaxInvoice    Type = "tax_invoice"
)

// EndDateWindows maps each end-date reminder type to its day offset from today.
var EndDateWindows = []struct {
	Type   Type
	Offset int
}{
	{TypeEndDateToday, 0},
	{TypeEndDate1Day, 1},
	{TypeEndDate14Days, 14},
}

func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeEndDateToday, TypeEndDate1Day, TypeEndDate14Days, TypeTaxInvoice:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// Compose renders the title and body for a reminder about subject (an account
// or company name) and the relevant civil date.
func (t Type) Compose(subject, date string) (title, body string) {
	switch t {
	case TypeEndDateToday:
		return "Service period ends today",
			fmt.Sprintf("The service period for %s ends today (%s). Please renew to keep using paid features.", subject, date)
	case TypeEndDate1Day:
		return "Service period ends tomorrow",
			fmt.Sprintf("The service period for %s ends tomorrow (%s).", subject, date)
	case TypeEndDate14Days:
		return "Service period ends in 14 days",
			fmt.Sprintf("The service period for %s ends on %s, 14 days from now.", subject, date)
	case TypeTaxInvoice:
		return "Tax invoice issuance day",
			fmt.Sprintf("Today (%s) is the tax invoice issuance day for %s.", date, subject)
	default:
		return string(t), subject
	}
}

// Notification is an ephemeral message shown to an account's users.
type Notification struct {
	ID        int64
	AccountID int64 // BroadcastAccountID for everyone
	Type      Type
	Title     string
	Message   string
	IsRead    bool
	CreatedOn string // civil day, part of the dedup key
	CreatedAt time.Time
	ExpiresAt time.Time
}

// DedupKey is the tuple that may appear at most once.
type DedupKey struct {
	AccountID int64
	Type      Type
	Day       string
}

func (n *Notification) DedupKey() DedupKey {
	return DedupKey{AccountID: n.AccountID, Type: n.Type, Day: n.CreatedOn}
}

// IsActive reports whether the notification is still visible at now.
func (n *Notification) IsActive(now time.Time) bool {
	return n.ExpiresAt.After(now)
}
