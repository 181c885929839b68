// Package reminder runs the daily service expiry reminder job.
package reminder

import (
	"fmt"
	"time"
)

// Schedule fires once a day at a wall-clock time in Location.
type Schedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// ParseSchedule reads at as HH:MM and location as an IANA zone name.
func ParseSchedule(at, location string) (Schedule, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return Schedule{}, fmt.Errorf("schedule time %q: %w", at, err)
	}
	loc, err := time.LoadLocation(location)
	if err != nil {
		return Schedule{}, fmt.Errorf("schedule location %q: %w", location, err)
	}
	return Schedule{Hour: t.Hour(), Minute: t.Minute(), Location: loc}, nil
}

// Next returns the first trigger strictly after now.
func (s Schedule) Next(now time.Time) time.Time {
	local := now.In(s.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, s.Location)
	if !next.After(now) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.Hour, s.Minute, 0, 0, s.Location)
	}
	return next
}

// Day truncates t to midnight of its calendar date in the schedule zone.
func (s Schedule) Day(t time.Time) time.Time {
	local := t.In(s.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.Location)
}
