// internal/app/clock.go
package app

import "time"

// Clock is the civil-time view the services need. infra/clock.CivilClock implements it.
type Clock interface {
	Now() time.Time
	TodayDate() time.Time
	Today() string
	PlusDays(n int) string
	IsAfterHour(h int) bool
}
