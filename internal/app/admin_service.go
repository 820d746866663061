package app

import (
	"context"
	"errors"
	"fmt"

	"company_account_lifecycle/internal/domain/account"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrAccountNotDemotable = fmt.Errorf("account is not an approved paid account")
var ErrNoRunYet = fmt.Errorf("no daily run has completed since start")

// AdminService exposes the manual triggers and account operations to the
// admin bot. Every call checks the performing user first.
type AdminService struct {
	tasks           *DailyTaskService
	accountRepo     account.Repository
	recorder        *HistoryRecorder
	clock           Clock
	adminTelegramID int64
}

func NewAdminService(tasks *DailyTaskService, ar account.Repository, recorder *HistoryRecorder, clock Clock, adminID int64) *AdminService {
	return &AdminService{
		tasks:           tasks,
		accountRepo:     ar,
		recorder:        recorder,
		clock:           clock,
		adminTelegramID: adminID,
	}
}

// RunDaily triggers the full pipeline on behalf of the admin.
func (s *AdminService) RunDaily(ctx context.Context, performingAdminID int64) (*RunReport, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	return s.tasks.RunDaily(ctx, TriggerManualTelegram), nil
}

// RunNotifications triggers only the composer.
func (s *AdminService) RunNotifications(ctx context.Context, performingAdminID int64) (NotificationTriggerResult, error) {
	if performingAdminID != s.adminTelegramID {
		return NotificationTriggerResult{}, ErrAdminNotAuthorized
	}
	return s.tasks.RunNotificationsManually(ctx), nil
}

// LastRun returns the latest run report.
func (s *AdminService) LastRun(performingAdminID int64) (*RunReport, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	report := s.tasks.LastReport()
	if report == nil {
		return nil, ErrNoRunYet
	}
	return report, nil
}

// DemoteAccount archives and demotes a single approved paid account ahead of
// its end date. It returns false when the account was already demoted by the
// time the update ran.
func (s *AdminService) DemoteAccount(ctx context.Context, performingAdminID int64, accountID int64) (bool, error) {
	if performingAdminID != s.adminTelegramID {
		return false, ErrAdminNotAuthorized
	}

	target, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return false, account.ErrAccountNotFound
		}
		return false, fmt.Errorf("failed to get account for demotion: %w", err)
	}
	if target.Status != account.StatusApproved || !target.Category.IsPaid() {
		return false, ErrAccountNotDemotable
	}

	if err := s.recorder.Archive(ctx, target, account.HistoryReasonManual, s.clock.TodayDate()); err != nil {
		return false, err
	}

	affected, err := s.accountRepo.Demote(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to demote account %d: %w", accountID, err)
	}
	return affected > 0, nil
}
