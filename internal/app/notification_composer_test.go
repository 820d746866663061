package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"company_account_lifecycle/internal/domain/account"
	"company_account_lifecycle/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_EndDateWindows(t *testing.T) {
	f := newFixture(t, "2024-05-01", 10)
	f.store.addAccount(paidAccount(1, "Today", "2024-01-01", "2024-05-01"))
	f.store.addAccount(paidAccount(2, "Tomorrow", "2024-01-01", "2024-05-02"))
	f.store.addAccount(paidAccount(3, "TwoWeeks", "2024-01-01", "2024-05-15"))
	f.store.addAccount(paidAccount(4, "Unrelated", "2024-01-01", "2024-05-03"))
	free := paidAccount(5, "FreeToday", "2024-01-01", "2024-05-01")
	free.Category = account.CategoryFree
	f.store.addAccount(free)

	result := f.composer.Compose(context.Background())

	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, 0, result.Duplicates)
	assert.Equal(t, 0, result.WindowErrors)

	today := f.store.notificationsOf(notification.TypeEndDateToday)
	require.Len(t, today, 1)
	assert.Equal(t, int64(1), today[0].AccountID)
	assert.Equal(t, "2024-05-01", today[0].CreatedOn)
	assert.Contains(t, today[0].Message, "Today")
	assert.Equal(t, notification.DefaultTTL, today[0].ExpiresAt.Sub(today[0].CreatedAt))

	tomorrow := f.store.notificationsOf(notification.TypeEndDate1Day)
	require.Len(t, tomorrow, 1)
	assert.Equal(t, int64(2), tomorrow[0].AccountID)
	assert.Contains(t, tomorrow[0].Message, "2024-05-02")

	twoWeeks := f.store.notificationsOf(notification.TypeEndDate14Days)
	require.Len(t, twoWeeks, 1)
	assert.Equal(t, int64(3), twoWeeks[0].AccountID)

	assert.Equal(t, 1, f.metrics.inserted[notification.TypeEndDate14Days])
}

func TestCompose_SameDayRerunInsertsNothing(t *testing.T) {
	f := newFixture(t, "2024-05-01", 10)
	f.store.addAccount(paidAccount(1, "Today", "2024-01-01", "2024-05-01"))

	first := f.composer.Compose(context.Background())
	f.clock.advance(3 * time.Hour)
	second := f.composer.Compose(context.Background())

	assert.Equal(t, 1, first.Inserted)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Duplicates)
	assert.Len(t, f.store.notificationsOf(notification.TypeEndDateToday), 1)
}

func TestCompose_NextDayIssuesAgain(t *testing.T) {
	f := newFixture(t, "2024-05-01", 10)
	f.store.addAccount(paidAccount(1, "Soon", "2024-01-01", "2024-05-02"))

	f.composer.Compose(context.Background())
	f.clock.advance(24 * time.Hour)
	next := f.composer.Compose(context.Background())

	assert.Equal(t, 1, next.Inserted)
	assert.Len(t, f.store.notificationsOf(notification.TypeEndDate1Day), 1)
	assert.Len(t, f.store.notificationsOf(notification.TypeEndDateToday), 1)
}

func TestCompose_TaxInvoiceReminder(t *testing.T) {
	tests := []struct {
		name string
		day  string
		want int
	}{
		{name: "matching day", day: "2024-03-15", want: 1},
		{name: "following day", day: "2024-03-16", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.day, 10)
			f.store.addAccount(paidAccount(1, "Acme", "2024-01-01", "2024-12-31"))
			f.store.settings = []*notification.TaxInvoiceSetting{
				{ID: 1, CompanyName: "Acme", DayOfMonth: 15, IsActive: true},
				{ID: 2, CompanyName: "Acme", DayOfMonth: 15, IsActive: false},
			}

			f.composer.Compose(context.Background())

			got := f.store.notificationsOf(notification.TypeTaxInvoice)
			require.Len(t, got, tt.want)
			if tt.want > 0 {
				assert.Equal(t, int64(1), got[0].AccountID)
				assert.Contains(t, got[0].Message, "Acme")
			}
		})
	}
}

func TestCompose_TaxInvoiceClampsToMonthEnd(t *testing.T) {
	f := newFixture(t, "2024-02-29", 10)
	f.store.addAccount(paidAccount(1, "Acme", "2024-01-01", "2024-12-31"))
	f.store.settings = []*notification.TaxInvoiceSetting{
		{ID: 1, CompanyName: "Acme", DayOfMonth: 31, IsActive: true},
	}

	f.composer.Compose(context.Background())

	assert.Len(t, f.store.notificationsOf(notification.TypeTaxInvoice), 1)
}

func TestCompose_TaxInvoiceWithoutMatchingAccount(t *testing.T) {
	f := newFixture(t, "2024-03-15", 10)
	f.store.settings = []*notification.TaxInvoiceSetting{
		{ID: 1, CompanyName: "Ghost Corp", DayOfMonth: 15, IsActive: true},
	}

	result := f.composer.Compose(context.Background())

	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 0, result.WindowErrors)
	assert.Empty(t, f.store.notificationsOf(notification.TypeTaxInvoice))
}

func TestCompose_PurgesExpiredNotifications(t *testing.T) {
	f := newFixture(t, "2024-05-10", 10)
	now := f.clock.Now()
	notifs := notificationStore{f.store}
	_, err := notifs.Insert(context.Background(), &notification.Notification{
		AccountID: 9, Type: notification.TypeEndDateToday, CreatedOn: "2024-05-01",
		CreatedAt: now.Add(-9 * 24 * time.Hour), ExpiresAt: now.Add(-2 * 24 * time.Hour),
	})
	require.NoError(t, err)
	_, err = notifs.Insert(context.Background(), &notification.Notification{
		AccountID: 9, Type: notification.TypeEndDate1Day, CreatedOn: "2024-05-09",
		CreatedAt: now.Add(-24 * time.Hour), ExpiresAt: now.Add(6 * 24 * time.Hour),
	})
	require.NoError(t, err)

	result := f.composer.Compose(context.Background())

	assert.Equal(t, int64(1), result.Purged)
	assert.Equal(t, int64(1), f.metrics.purged)
	active, err := notifs.ListActive(context.Background(), 9, now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, notification.TypeEndDate1Day, active[0].Type)
}

func TestCompose_WindowFailureIsIsolated(t *testing.T) {
	f := newFixture(t, "2024-05-01", 10)
	f.store.addAccount(paidAccount(1, "Today", "2024-01-01", "2024-05-01"))
	f.store.addAccount(paidAccount(2, "Tomorrow", "2024-01-01", "2024-05-02"))
	f.store.endDateErr["2024-05-02"] = errors.New("statement timeout")

	result := f.composer.Compose(context.Background())

	assert.Equal(t, 1, result.WindowErrors)
	assert.Equal(t, 1, result.Inserted)
	assert.Len(t, f.store.notificationsOf(notification.TypeEndDateToday), 1)
	assert.Empty(t, f.store.notificationsOf(notification.TypeEndDate1Day))
}

func TestCompose_InsertFailureIsIsolated(t *testing.T) {
	f := newFixture(t, "2024-05-01", 10)
	f.store.addAccount(paidAccount(1, "Broken", "2024-01-01", "2024-05-01"))
	f.store.addAccount(paidAccount(2, "Fine", "2024-01-01", "2024-05-01"))
	f.store.failInsertFor[1] = true

	result := f.composer.Compose(context.Background())

	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, f.metrics.failures[FailureNotificationInsert])
	got := f.store.notificationsOf(notification.TypeEndDateToday)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].AccountID)
}

func TestCompose_CancelledRunCountsUnissuedReminders(t *testing.T) {
	f := newFixture(t, "2024-05-01", 10)
	f.store.addAccount(paidAccount(1, "Today", "2024-01-01", "2024-05-01"))
	f.store.addAccount(paidAccount(2, "Tomorrow", "2024-01-01", "2024-05-02"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.composer.Compose(ctx)

	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 2, result.Failed)
	assert.Empty(t, f.store.notificationsOf(notification.TypeEndDateToday))
	assert.Empty(t, f.store.notificationsOf(notification.TypeEndDate1Day))
}
