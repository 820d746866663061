// internal/domain/notification/tax_invoice.go
package notification

import "time"

// TaxInvoiceSetting is a recurring monthly reminder to issue a tax invoice for a company.
// Managed by the outer CRUD layer; read-only here.
type TaxInvoiceSetting struct {
	ID          int64
	CompanyName string
	DayOfMonth  int // 1..31
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FiresOn reports whether the setting's reminder falls on the given civil day.
// Days past the end of a short month fire on its last day.
func (s *TaxInvoiceSetting) FiresOn(day time.Time) bool {
	if !s.IsActive || s.DayOfMonth < 1 || s.DayOfMonth > 31 {
		return false
	}
	if s.DayOfMonth == day.Day() {
		return true
	}
	return day.Day() == LastDayOfMonth(day) && s.DayOfMonth > day.Day()
}

// LastDayOfMonth returns the number of days in day's month.
func LastDayOfMonth(day time.Time) int {
	firstOfNextMonth := time.Date(day.Year(), day.Month()+1, 1, 0, 0, 0, 0, day.Location())
	return firstOfNextMonth.AddDate(0, 0, -1).Day()
}
