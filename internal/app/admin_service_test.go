package app

import (
	"context"
	"testing"

	"company_account_lifecycle/internal/domain/account"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminID int64 = 4242

func newTestAdminService(f *fixture) *AdminService {
	return NewAdminService(f.tasks, f.store, f.recorder, f.clock, testAdminID)
}

func TestAdminService_RejectsNonAdmin(t *testing.T) {
	f := newFixture(t, "2024-01-11", 0)
	svc := newTestAdminService(f)
	ctx := context.Background()

	_, err := svc.RunDaily(ctx, 1)
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
	_, err = svc.RunNotifications(ctx, 1)
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
	_, err = svc.LastRun(1)
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
	_, err = svc.DemoteAccount(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
	assert.Nil(t, f.tasks.LastReport())
}

func TestAdminService_RunDailyAndLastRun(t *testing.T) {
	f := newFixture(t, "2024-01-11", 0)
	seedPipeline(f)
	svc := newTestAdminService(f)

	_, err := svc.LastRun(testAdminID)
	assert.ErrorIs(t, err, ErrNoRunYet)

	report, err := svc.RunDaily(context.Background(), testAdminID)
	require.NoError(t, err)
	assert.Equal(t, TriggerManualTelegram, report.Trigger)

	last, err := svc.LastRun(testAdminID)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, last.RunID)
}

func TestAdminService_DemoteAccount(t *testing.T) {
	f := newFixture(t, "2024-01-11", 0)
	f.store.addAccount(paidAccount(1, "Acme", "2024-01-01", "2024-06-30"))
	svc := newTestAdminService(f)

	demoted, err := svc.DemoteAccount(context.Background(), testAdminID, 1)
	require.NoError(t, err)
	assert.True(t, demoted)

	got := f.store.get(1)
	assert.Equal(t, account.StatusPendingApproval, got.Status)
	assert.Equal(t, account.CategoryFree, got.Category)

	history := f.store.historyFor(1)
	require.Len(t, history, 1)
	assert.Equal(t, account.HistoryReasonManual, history[0].Reason)
	assert.Equal(t, 182, history[0].ActiveDays)

	_, err = svc.DemoteAccount(context.Background(), testAdminID, 1)
	assert.ErrorIs(t, err, ErrAccountNotDemotable)
}

func TestAdminService_DemoteUnknownAccount(t *testing.T) {
	f := newFixture(t, "2024-01-11", 0)
	svc := newTestAdminService(f)

	_, err := svc.DemoteAccount(context.Background(), testAdminID, 99)
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestAdminService_DemoteAbortsWhenArchivalFails(t *testing.T) {
	f := newFixture(t, "2024-01-11", 0)
	f.store.addAccount(paidAccount(1, "Acme", "2024-01-01", "2024-06-30"))
	f.store.failHistoryFor[1] = true
	svc := newTestAdminService(f)

	_, err := svc.DemoteAccount(context.Background(), testAdminID, 1)
	require.Error(t, err)
	assert.Equal(t, account.StatusApproved, f.store.get(1).Status)
}
