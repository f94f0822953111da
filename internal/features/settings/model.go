package settings

import (
	"time"
)

type SettingsType string

const (
	SettingsTypeScheduler SettingsType = "scheduler"
)

// SchedulerConfig is the dispatch window configuration. It is an explicit
// value handed to the engine at decision time, never ambient global state.
type SchedulerConfig struct {
	WorkingHoursStart int    `json:"working_hours_start" bson:"working_hours_start"`
	WorkingHoursEnd   int    `json:"working_hours_end" bson:"working_hours_end"`
	RunOnWeekends     bool   `json:"run_on_weekends" bson:"run_on_weekends"`
	DailyExecutionCap int    `json:"daily_execution_cap" bson:"daily_execution_cap"` // 0 = unlimited
	Timezone          string `json:"timezone,omitempty" bson:"timezone,omitempty"`
}

type Settings struct {
	Type      SettingsType     `bson:"type" json:"type"`
	Scheduler *SchedulerConfig `bson:"scheduler,omitempty" json:"scheduler,omitempty"`
	UpdatedAt time.Time        `bson:"updated_at" json:"updated_at"`
}

// DefaultSchedulerConfig runs around the clock with no cap.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		WorkingHoursStart: 0,
		WorkingHoursEnd:   24,
		RunOnWeekends:     true,
		DailyExecutionCap: 0,
	}
}

func (c SchedulerConfig) location() *time.Location {
	if c.Timezone != "" {
		if loc, err := time.LoadLocation(c.Timezone); err == nil {
			return loc
		}
	}
	return time.Local
}

func (c SchedulerConfig) unbounded() bool {
	return c.WorkingHoursStart == 0 && (c.WorkingHoursEnd == 0 || c.WorkingHoursEnd == 24)
}

// Allows reports whether an action may be dispatched at t.
func (c SchedulerConfig) Allows(t time.Time) bool {
	local := t.In(c.location())

	if !c.RunOnWeekends {
		if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return false
		}
	}
	if c.unbounded() {
		return true
	}
	hour := local.Hour()
	return hour >= c.WorkingHoursStart && hour < c.WorkingHoursEnd
}

// NextEligible returns the earliest instant at or after t that falls inside
// the configured window. Deferred work is re-armed here, never dropped.
func (c SchedulerConfig) NextEligible(t time.Time) time.Time {
	if c.Allows(t) {
		return t
	}

	loc := c.location()
	local := t.In(loc)

	// Walk day by day; the window repeats daily so a week of steps always
	// lands inside it.
	for i := 0; i < 9; i++ {
		day := local.AddDate(0, 0, i)
		start := time.Date(day.Year(), day.Month(), day.Day(), c.WorkingHoursStart, 0, 0, 0, loc)
		if start.Before(t) {
			continue
		}
		if c.Allows(start) {
			return start
		}
	}
	return t
}

// NextDayStart returns the start of the next eligible window after t's day.
// Used when the daily execution cap is exhausted.
func (c SchedulerConfig) NextDayStart(t time.Time) time.Time {
	local := t.In(c.location())
	next := time.Date(local.Year(), local.Month(), local.Day(), c.WorkingHoursStart, 0, 0, 0, c.location()).AddDate(0, 0, 1)
	return c.NextEligible(next)
}
