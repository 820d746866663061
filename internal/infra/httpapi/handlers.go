package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"company_account_lifecycle/internal/app"
	"company_account_lifecycle/internal/domain/account"
	"company_account_lifecycle/internal/domain/notification"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// PipelineRunner is the manual-trigger surface of the daily task service.
type PipelineRunner interface {
	RunExpirationManually(ctx context.Context, trigger app.Trigger) app.ExpirationResult
	RunNotificationsManually(ctx context.Context) app.NotificationTriggerResult
	LastReport() *app.RunReport
}

type NotificationReader interface {
	ListActive(ctx context.Context, accountID int64, now time.Time) ([]*notification.Notification, error)
}

type HistoryReader interface {
	ListByAccount(ctx context.Context, accountID int64) ([]*account.HistoryEntry, error)
}

// HealthChecker is satisfied by *sql.DB.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

type apiErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type notificationResponse struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"accountId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedOn string    `json:"createdOn"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type historyResponse struct {
	ID          int64   `json:"id"`
	AccountID   int64   `json:"accountId"`
	ExternalID  string  `json:"externalId"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Status      string  `json:"status"`
	PricingTier string  `json:"pricingTier"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	ActiveDays  int     `json:"activeDays"`
	Reason      string  `json:"reason"`
	ArchivedOn  string  `json:"archivedOn"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiErrorResponse{Code: code, Message: message})
}

// Handler serves the admin and read-only account endpoints.
type Handler struct {
	runner        PipelineRunner
	notifications NotificationReader
	history       HistoryReader
	health        HealthChecker
	now           func() time.Time
	logger        *logrus.Entry
}

// RunDaily handles POST /api/admin/daily-run.
func (h *Handler) RunDaily(w http.ResponseWriter, r *http.Request) {
	result := h.runner.RunExpirationManually(r.Context(), app.TriggerManualHTTP)
	status := http.StatusOK
	if result.Skipped {
		status = http.StatusConflict
	}
	writeJSON(w, status, result)
}

// RunNotifications handles POST /api/admin/notifications/run.
func (h *Handler) RunNotifications(w http.ResponseWriter, r *http.Request) {
	result := h.runner.RunNotificationsManually(r.Context())
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, result)
}

// LastRun handles GET /api/admin/runs/last.
func (h *Handler) LastRun(w http.ResponseWriter, r *http.Request) {
	report := h.runner.LastReport()
	if report == nil {
		writeError(w, http.StatusNotFound, "no_run_yet", app.ErrNoRunYet.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListNotifications handles GET /api/accounts/{id}/notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	list, err := h.notifications.ListActive(r.Context(), accountID, h.now())
	if err != nil {
		h.logger.WithError(err).WithField("account_id", accountID).Error("Failed to list active notifications")
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list notifications")
		return
	}

	out := make([]notificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, notificationResponse{
			ID:        n.ID,
			AccountID: n.AccountID,
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedOn: n.CreatedOn,
			CreatedAt: n.CreatedAt,
			ExpiresAt: n.ExpiresAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ListHistory handles GET /api/accounts/{id}/history.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	entries, err := h.history.ListByAccount(r.Context(), accountID)
	if err != nil {
		h.logger.WithError(err).WithField("account_id", accountID).Error("Failed to list account history")
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list history")
		return
	}

	out := make([]historyResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyResponse{
			ID:          e.ID,
			AccountID:   e.AccountID,
			ExternalID:  e.ExternalID,
			Name:        e.Name,
			Category:    string(e.Category),
			Status:      string(e.Status),
			PricingTier: string(e.PricingTier),
			StartDate:   civilDate(e.StartDate.Valid, e.StartDate.Time),
			EndDate:     civilDate(e.EndDate.Valid, e.EndDate.Time),
			ActiveDays:  e.ActiveDays,
			Reason:      string(e.Reason),
			ArchivedOn:  e.ArchivedOn.Format(account.DateLayout),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.health.PingContext(ctx); err != nil {
		h.logger.WithError(err).Warn("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func accountIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid_account_id", "account id must be a non-negative integer")
		return 0, false
	}
	return id, true
}

func civilDate(valid bool, t time.Time) *string {
	if !valid {
		return nil
	}
	s := t.Format(account.DateLayout)
	return &s
}
