package app

import (
	"context"
	"database/sql"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"company_account_lifecycle/internal/domain/account"
	"company_account_lifecycle/internal/domain/notification"
	"company_account_lifecycle/internal/infra/clock"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory implementation of every repository the app layer uses.
type memStore struct {
	mu            sync.Mutex
	nextID        int64
	accounts      map[int64]*account.Account
	history       []*account.HistoryEntry
	notifications []*notification.Notification
	settings      []*notification.TaxInvoiceSetting

	failHistoryFor    map[int64]bool
	failInsertFor     map[int64]bool
	findExpiredErr    error
	demoteErr         error
	endDateErr        map[string]error
	deleteExpiredErr  error
	panicOnFind       bool
	expireDuringSweep []*account.Account
}

func newMemStore() *memStore {
	return &memStore{
		nextID:         100,
		accounts:       make(map[int64]*account.Account),
		failHistoryFor: make(map[int64]bool),
		failInsertFor:  make(map[int64]bool),
		endDateErr:     make(map[string]error),
	}
}

func civilDate(s string) sql.NullTime {
	if s == "" {
		return sql.NullTime{}
	}
	t, err := time.Parse(account.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return sql.NullTime{Time: t, Valid: true}
}

func paidAccount(id int64, name, start, end string) *account.Account {
	return &account.Account{
		ID:          id,
		ExternalID:  name + "-ext",
		Name:        name,
		Category:    account.CategoryGeneral,
		Status:      account.StatusApproved,
		PricingTier: account.PricingTierPremium,
		StartDate:   civilDate(start),
		EndDate:     civilDate(end),
	}
}

func (m *memStore) addAccount(a *account.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.accounts[a.ID] = &cp
}

func (m *memStore) get(id int64) *account.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.accounts[id]
	return &cp
}

func (m *memStore) historyFor(id int64) []*account.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*account.HistoryEntry
	for _, h := range m.history {
		if h.AccountID == id {
			out = append(out, h)
		}
	}
	return out
}

func (m *memStore) notificationsOf(typ notification.Type) []*notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*notification.Notification
	for _, n := range m.notifications {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func isExpired(a *account.Account, asOf string) bool {
	return a.Status == account.StatusApproved && a.Category.IsPaid() && a.EndDate.Valid &&
		a.EndDate.Time.Format(account.DateLayout) < asOf
}

func sortedByID(in []*account.Account) []*account.Account {
	sort.Slice(in, func(i, j int) bool { return in[i].ID < in[j].ID })
	return in
}

// --- account.Repository ---

func (m *memStore) GetByID(_ context.Context, id int64) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) FindExpired(_ context.Context, asOf string) ([]*account.Account, error) {
	if m.panicOnFind {
		panic("store exploded")
	}
	if m.findExpiredErr != nil {
		return nil, m.findExpiredErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*account.Account
	for _, a := range m.accounts {
		if isExpired(a, asOf) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return sortedByID(out), nil
}

func (m *memStore) DemoteExpired(_ context.Context, asOf string) ([]*account.Account, error) {
	if m.demoteErr != nil {
		return nil, m.demoteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.expireDuringSweep {
		cp := *a
		m.accounts[a.ID] = &cp
	}
	m.expireDuringSweep = nil

	var out []*account.Account
	for _, a := range m.accounts {
		if isExpired(a, asOf) {
			snapshot := *a
			out = append(out, &snapshot)
			demote(a)
		}
	}
	return sortedByID(out), nil
}

func demote(a *account.Account) {
	a.Status = account.StatusPendingApproval
	a.Category = account.CategoryFree
	a.PricingTier = account.LowestPricingTier
	a.StartDate = sql.NullTime{}
	a.EndDate = sql.NullTime{}
}

func (m *memStore) Demote(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.Status != account.StatusApproved {
		return 0, nil
	}
	demote(a)
	return 1, nil
}

func (m *memStore) FindByEndDate(_ context.Context, date string) ([]*account.Account, error) {
	if err := m.endDateErr[date]; err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*account.Account
	for _, a := range m.accounts {
		if a.Status == account.StatusApproved && a.Category.IsPaid() && a.EndDate.Valid &&
			a.EndDate.Time.Format(account.DateLayout) == date {
			cp := *a
			out = append(out, &cp)
		}
	}
	return sortedByID(out), nil
}

func (m *memStore) FindApprovedByName(_ context.Context, name string) ([]*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*account.Account
	for _, a := range m.accounts {
		if a.Status == account.StatusApproved && a.Name == name {
			cp := *a
			out = append(out, &cp)
		}
	}
	return sortedByID(out), nil
}

// --- account.HistoryRepository ---

func (m *memStore) Insert(_ context.Context, e *account.HistoryEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failHistoryFor[e.AccountID] {
		return 0, io.ErrUnexpectedEOF
	}
	for _, h := range m.history {
		if e.Reason == account.HistoryReasonExpired && h.Reason == e.Reason &&
			h.AccountID == e.AccountID && h.EndDate == e.EndDate {
			return 0, account.ErrHistoryAlreadyArchived
		}
	}
	m.nextID++
	cp := *e
	cp.ID = m.nextID
	m.history = append(m.history, &cp)
	return cp.ID, nil
}

func (m *memStore) ListByAccount(_ context.Context, accountID int64) ([]*account.HistoryEntry, error) {
	return m.historyFor(accountID), nil
}

// notificationStore adapts memStore to notification.Repository; Insert would
// otherwise clash with the history Insert.
type notificationStore struct{ *memStore }

func (s notificationStore) Insert(_ context.Context, n *notification.Notification) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsertFor[n.AccountID] {
		return 0, io.ErrClosedPipe
	}
	for _, existing := range s.notifications {
		if existing.DedupKey() == n.DedupKey() {
			return 0, notification.ErrDuplicateNotification
		}
	}
	s.nextID++
	cp := *n
	cp.ID = s.nextID
	s.notifications = append(s.notifications, &cp)
	return cp.ID, nil
}

func (s notificationStore) CountForDay(_ context.Context, accountID int64, typ notification.Type, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if n.AccountID == accountID && n.Type == typ && n.CreatedOn == day {
			count++
		}
	}
	return count, nil
}

func (s notificationStore) CountCreatedOn(_ context.Context, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if n.CreatedOn == day {
			count++
		}
	}
	return count, nil
}

func (s notificationStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	if s.deleteExpiredErr != nil {
		return 0, s.deleteExpiredErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.notifications[:0]
	var deleted int64
	for _, n := range s.notifications {
		if n.ExpiresAt.After(now) {
			kept = append(kept, n)
		} else {
			deleted++
		}
	}
	s.notifications = kept
	return deleted, nil
}

func (s notificationStore) ListActive(_ context.Context, accountID int64, now time.Time) ([]*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*notification.Notification
	for _, n := range s.notifications {
		if (n.AccountID == accountID || n.AccountID == notification.BroadcastAccountID) && n.IsActive(now) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s notificationStore) ListDueOn(_ context.Context, day time.Time) ([]*notification.TaxInvoiceSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*notification.TaxInvoiceSetting
	for _, st := range s.settings {
		if st.FiresOn(day) {
			out = append(out, st)
		}
	}
	return out, nil
}

// --- clock & wiring helpers ---

// testClock is a civil clock whose instant can be moved.
type testClock struct {
	*clock.CivilClock
	mu  sync.Mutex
	now time.Time
}

// newTestClock starts at the given civil date and hour in Asia/Seoul.
func newTestClock(t *testing.T, day string, hour int) *testClock {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	d, err := time.ParseInLocation(account.DateLayout, day, loc)
	require.NoError(t, err)

	tc := &testClock{now: d.Add(time.Duration(hour) * time.Hour)}
	tc.CivilClock, err = clock.New("Asia/Seoul", clock.WithNow(tc.instant))
	require.NoError(t, err)
	return tc
}

func (c *testClock) instant() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// fakeMetrics counts calls.
type fakeMetrics struct {
	mu       sync.Mutex
	demoted  int
	failures map[FailureType]int
	inserted map[notification.Type]int
	purged   int64
	runs     map[string]int
	skipped  int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		failures: make(map[FailureType]int),
		inserted: make(map[notification.Type]int),
		runs:     make(map[string]int),
	}
}

func (f *fakeMetrics) RecordDemoted(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.demoted += n
}

func (f *fakeMetrics) RecordFailure(typ FailureType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[typ]++
}

func (f *fakeMetrics) RecordNotificationInserted(typ notification.Type) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted[typ]++
}

func (f *fakeMetrics) RecordNotificationsPurged(n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged += n
}

func (f *fakeMetrics) RecordRun(outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[outcome]++
}

func (f *fakeMetrics) RecordSkippedRun(Trigger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skipped++
}

type fixture struct {
	store    *memStore
	clock    *testClock
	metrics  *fakeMetrics
	recorder *HistoryRecorder
	sweeper  *ExpirationSweeper
	composer *NotificationComposer
	guard    *RunGuard
	tasks    *DailyTaskService
	alerter  *fakeAlerter
}

type fakeAlerter struct {
	mu      sync.Mutex
	reports []*RunReport
}

func (a *fakeAlerter) AlertFailures(_ context.Context, r *RunReport) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reports = append(a.reports, r)
	return nil
}

func newFixture(t *testing.T, day string, hour int) *fixture {
	t.Helper()
	f := &fixture{
		store:   newMemStore(),
		clock:   newTestClock(t, day, hour),
		metrics: newFakeMetrics(),
		alerter: &fakeAlerter{},
	}
	notifs := notificationStore{f.store}
	f.recorder = NewHistoryRecorder(f.store, testLogger())
	f.sweeper = NewExpirationSweeper(f.store, f.recorder, f.clock, 4, f.metrics, testLogger())
	f.composer = NewNotificationComposer(f.store, notifs, notifs, f.clock, ComposerConfig{Concurrency: 4}, f.metrics, testLogger())
	f.guard = NewRunGuard(10*time.Second, f.clock.instant)
	f.tasks = NewDailyTaskService(f.sweeper, f.composer, notifs, f.guard, f.clock, f.alerter, f.metrics, DailyTaskConfig{}, testLogger())
	return f
}
