package markethours

import (
	"strings"
	"testing"
	"time"
)

// et builds an ET wall-clock time for test fixtures.
func et(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, ET)
}

// ─── Session boundaries ──────────────────────────────────────────────────────

func TestIsMarketOpen_SessionBounds(t *testing.T) {
	// Wed 2026-03-04 is a regular trading day.
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before_open_9_29", et(2026, time.March, 4, 9, 29), false},
		{"at_open_9_30", et(2026, time.March, 4, 9, 30), true},
		{"midday", et(2026, time.March, 4, 12, 0), true},
		{"last_minute_15_59", et(2026, time.March, 4, 15, 59), true},
		{"at_close_16_00", et(2026, time.March, 4, 16, 0), false},
		{"evening", et(2026, time.March, 4, 19, 0), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsMarketOpen(c.at); got != c.want {
				t.Errorf("IsMarketOpen(%v): got %v, want %v", c.at, got, c.want)
			}
		})
	}
}

func TestIsMarketOpen_WeekendAndHoliday(t *testing.T) {
	// Sat 2026-03-07, midday.
	if IsMarketOpen(et(2026, time.March, 7, 12, 0)) {
		t.Error("expected closed on Saturday")
	}
	// Thu 2026-01-01 New Year's Day.
	if IsMarketOpen(et(2026, time.January, 1, 12, 0)) {
		t.Error("expected closed on New Year's Day")
	}
	// Fri 2026-07-03, Independence Day observed.
	if IsMarketOpen(et(2026, time.July, 3, 12, 0)) {
		t.Error("expected closed on observed Independence Day")
	}
	// Adjacent table years: Fri 2025-07-04 and Fri 2027-03-26 (Good Friday).
	if IsMarketOpen(et(2025, time.July, 4, 12, 0)) {
		t.Error("expected closed on Independence Day 2025")
	}
	if IsMarketOpen(et(2027, time.March, 26, 12, 0)) {
		t.Error("expected closed on Good Friday 2027")
	}
}

func TestIsTradingDay(t *testing.T) {
	if !IsTradingDay(et(2026, time.July, 6, 0, 0)) { // Monday after the long weekend
		t.Error("Mon 2026-07-06 should be a trading day")
	}
	if IsTradingDay(et(2026, time.July, 3, 0, 0)) { // observed holiday
		t.Error("Fri 2026-07-03 should not be a trading day")
	}
	if IsTradingDay(et(2026, time.July, 4, 0, 0)) { // Saturday
		t.Error("Sat 2026-07-04 should not be a trading day")
	}
}

// ─── Lookback window derivation ──────────────────────────────────────────────

func TestLookbackStart_SameDay(t *testing.T) {
	// One trading day of 1m bars requested mid-session on Wed 2026-08-19:
	// the window starts at that day's open.
	got := LookbackStart(et(2026, time.August, 19, 14, 0), 1)
	want := et(2026, time.August, 19, 9, 30)
	if !got.Equal(want) {
		t.Errorf("LookbackStart: got %v, want %v", got, want)
	}
}

func TestLookbackStart_WeekendRollsBack(t *testing.T) {
	// Sunday 2026-08-16: the most recent trading day is Friday the 14th.
	got := LookbackStart(et(2026, time.August, 16, 12, 0), 1)
	want := et(2026, time.August, 14, 9, 30)
	if !got.Equal(want) {
		t.Errorf("LookbackStart over weekend: got %v, want %v", got, want)
	}
}

func TestLookbackStart_FiveDaysOverHolidayWeekend(t *testing.T) {
	// Mon 2026-07-06, five trading days back:
	//   counted: Jul 6, Jul 2, Jul 1, Jun 30, Jun 29
	//   skipped: Jul 5 (Sun), Jul 4 (Sat), Jul 3 (holiday)
	got := LookbackStart(et(2026, time.July, 6, 10, 0), 5)
	want := et(2026, time.June, 29, 9, 30)
	if !got.Equal(want) {
		t.Errorf("LookbackStart 5d: got %v, want %v", got, want)
	}
}

func TestLookbackStart_ZeroDaysClamped(t *testing.T) {
	got := LookbackStart(et(2026, time.August, 19, 14, 0), 0)
	want := et(2026, time.August, 19, 9, 30)
	if !got.Equal(want) {
		t.Errorf("LookbackStart with days=0: got %v, want %v", got, want)
	}
}

// ─── Next open / status ──────────────────────────────────────────────────────

func TestNextOpen(t *testing.T) {
	// Friday evening rolls to Monday's open.
	got := NextOpen(et(2026, time.March, 6, 17, 0))
	want := et(2026, time.March, 9, 9, 30)
	if !got.Equal(want) {
		t.Errorf("NextOpen Friday evening: got %v, want %v", got, want)
	}

	// Early on a trading day returns the same day's open.
	got = NextOpen(et(2026, time.March, 4, 8, 0))
	want = et(2026, time.March, 4, 9, 30)
	if !got.Equal(want) {
		t.Errorf("NextOpen pre-open: got %v, want %v", got, want)
	}
}

func TestStatusString(t *testing.T) {
	open := StatusString(et(2026, time.March, 4, 12, 0))
	if !strings.HasPrefix(open, "Market Open") {
		t.Errorf("expected open status, got %q", open)
	}
	closed := StatusString(et(2026, time.March, 7, 12, 0))
	if !strings.HasPrefix(closed, "Market Closed") {
		t.Errorf("expected closed status, got %q", closed)
	}
}
