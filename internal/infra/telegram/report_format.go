package telegram

import (
	"fmt"
	"strings"
	"time"

	"company_account_lifecycle/internal/app"
)

// maxListedFailures caps the failures spelled out in one message.
const maxListedFailures = 10

// FormatRunReport renders a run report as a plain-text chat message.
func FormatRunReport(r *app.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily run %s (%s)\n", r.Outcome, r.Trigger)
	fmt.Fprintf(&b, "Processing date: %s\n", r.ProcessingDate)
	fmt.Fprintf(&b, "Run ID: %s\n", r.RunID)
	if r.Skipped {
		fmt.Fprintf(&b, "Skipped: %s\n", r.SkipReason)
		return b.String()
	}
	fmt.Fprintf(&b, "Demoted accounts: %d\n", r.DemotedCount)
	switch {
	case r.NotificationsDeferred:
		b.WriteString("Notifications: deferred to the periodic run\n")
	case r.Notifications != nil:
		fmt.Fprintf(&b, "Notifications: %d created, %d already existed, %d failed, %d purged\n",
			r.Notifications.Inserted, r.Notifications.Duplicates, r.Notifications.Failed, r.Notifications.Purged)
	}
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Duration: %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}

	if len(r.Failures) == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "\nFailures (%d):\n", len(r.Failures))
	for i, f := range r.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(&b, "... and %d more\n", len(r.Failures)-maxListedFailures)
			break
		}
		b.WriteString("- ")
		b.WriteString(string(f.Type))
		if f.AccountID != 0 {
			fmt.Fprintf(&b, " account %d", f.AccountID)
			if f.CompanyName != "" {
				fmt.Fprintf(&b, " (%s)", f.CompanyName)
			}
		}
		fmt.Fprintf(&b, ": %s\n", f.Message)
	}
	return b.String()
}
