// internal/infra/clock/clock.go
package clock

import (
	"fmt"
	"time"
	_ "time/tzdata" // distroless images ship without a zoneinfo database
)

// DefaultTimezone is the civil zone accounts are billed in.
const DefaultTimezone = "Asia/Seoul"

// DateLayout is the civil date format used across the store and notifications.
const DateLayout = "2006-01-02"

// CivilClock resolves instants into a fixed, named civil timezone. Every
// "what day is it" question in the service goes through it; the host's local
// timezone setting is never consulted.
type CivilClock struct {
	loc *time.Location
	now func() time.Time
}

// Option customises a CivilClock.
type Option func(*CivilClock)

// WithNow replaces the instant source, mostly for tests.
func WithNow(now func() time.Time) Option {
	return func(c *CivilClock) { c.now = now }
}

// New loads the named IANA zone.
func New(timezone string, opts ...Option) (*CivilClock, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load civil timezone %q: %w", timezone, err)
	}
	c := &CivilClock{loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Location returns the civil zone.
func (c *CivilClock) Location() *time.Location {
	return c.loc
}

// Now is the current instant rendered in the civil zone.
func (c *CivilClock) Now() time.Time {
	return c.now().In(c.loc)
}

// TodayDate is civil midnight of the current day.
func (c *CivilClock) TodayDate() time.Time {
	n := c.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, c.loc)
}

// Today returns the current civil day as YYYY-MM-DD.
func (c *CivilClock) Today() string {
	return c.TodayDate().Format(DateLayout)
}

// PlusDays returns the civil day n days after today.
func (c *CivilClock) PlusDays(n int) string {
	return c.TodayDate().AddDate(0, 0, n).Format(DateLayout)
}

// IsAfterHour reports whether the civil time of day is at or past hour h.
func (c *CivilClock) IsAfterHour(h int) bool {
	return c.Now().Hour() >= h
}

// UntilNext returns the delay until the next civil occurrence of hour:00.
func (c *CivilClock) UntilNext(hour int) time.Duration {
	n := c.Now()
	next := time.Date(n.Year(), n.Month(), n.Day(), hour, 0, 0, 0, c.loc)
	if !next.After(n) {
		next = time.Date(n.Year(), n.Month(), n.Day()+1, hour, 0, 0, 0, c.loc)
	}
	return next.Sub(n)
}

// UntilNextMidnight returns the delay until the next civil day starts.
func (c *CivilClock) UntilNextMidnight() time.Duration {
	return c.UntilNext(0)
}
