package settings

import (
	"testing"
	"time"
)

// 2026-09-02 is a Wednesday; 2026-09-05 a Saturday.
func businessHours() SchedulerConfig {
	return SchedulerConfig{
		WorkingHoursStart: 9,
		WorkingHoursEnd:   18,
		RunOnWeekends:     false,
		Timezone:          "UTC",
	}
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", value, err)
	}
	return ts
}

func TestSchedulerConfigAllows(t *testing.T) {
	cfg := businessHours()

	tests := []struct {
		name string
		when string
		want bool
	}{
		{"weekday inside window", "2026-09-02T10:00:00Z", true},
		{"weekday window start", "2026-09-02T09:00:00Z", true},
		{"weekday before window", "2026-09-02T08:59:00Z", false},
		{"weekday window end is exclusive", "2026-09-02T18:00:00Z", false},
		{"saturday blocked", "2026-09-05T10:00:00Z", false},
		{"sunday blocked", "2026-09-06T10:00:00Z", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.Allows(at(t, tt.when)); got != tt.want {
				t.Errorf("Allows(%s) = %v, want %v", tt.when, got, tt.want)
			}
		})
	}
}

func TestDefaultSchedulerConfigIsUnbounded(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.Timezone = "UTC"

	for _, when := range []string{
		"2026-09-02T03:00:00Z",
		"2026-09-05T23:30:00Z", // saturday night
	} {
		if !cfg.Allows(at(t, when)) {
			t.Errorf("default config should allow %s", when)
		}
	}
}

func TestNextEligible(t *testing.T) {
	cfg := businessHours()

	tests := []struct {
		name string
		from string
		want string
	}{
		{"already inside window", "2026-09-02T10:00:00Z", "2026-09-02T10:00:00Z"},
		{"same day before window", "2026-09-02T07:30:00Z", "2026-09-02T09:00:00Z"},
		{"evening rolls to next day", "2026-09-02T19:00:00Z", "2026-09-03T09:00:00Z"},
		{"friday evening rolls to monday", "2026-09-04T19:00:00Z", "2026-09-07T09:00:00Z"},
		{"saturday rolls to monday", "2026-09-05T10:00:00Z", "2026-09-07T09:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfg.NextEligible(at(t, tt.from))
			want := at(t, tt.want)
			if !got.Equal(want) {
				t.Errorf("NextEligible(%s) = %v, want %v", tt.from, got, want)
			}
		})
	}
}

func TestNextDayStart(t *testing.T) {
	cfg := businessHours()

	// Cap exhausted mid-Wednesday: resume Thursday at window start.
	got := cfg.NextDayStart(at(t, "2026-09-02T11:00:00Z"))
	want := at(t, "2026-09-03T09:00:00Z")
	if !got.Equal(want) {
		t.Errorf("NextDayStart(wednesday) = %v, want %v", got, want)
	}

	// Cap exhausted on Friday: resume Monday.
	got = cfg.NextDayStart(at(t, "2026-09-04T11:00:00Z"))
	want = at(t, "2026-09-07T09:00:00Z")
	if !got.Equal(want) {
		t.Errorf("NextDayStart(friday) = %v, want %v", got, want)
	}
}
