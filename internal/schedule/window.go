// Package schedule provides the time-window gating and pre-fire jitter used
// by the job scheduler: a job only runs when the current local time falls
// inside its window on an allowed weekday, and every firing is preceded by a
// bounded random delay.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrInvalidWindow is returned for malformed window or weekday expressions.
var ErrInvalidWindow = errors.New("schedule: invalid window format")

// weekdayNames maps the three-letter abbreviations used in configuration
// to time.Weekday values.
var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Window defines when a job is allowed to fire: a set of weekdays and an
// hour-of-day range. Start and End are offsets from midnight; End is
// exclusive. Start > End means the range wraps midnight (e.g. "22:00-06:00").
// Start == End means the whole day. An empty day set allows every day.
type Window struct {
	Days  map[time.Weekday]struct{}
	Start time.Duration
	End   time.Duration
}

// ParseWindow parses an "HH:MM-HH:MM" hour range.
func ParseWindow(s string) (Window, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("%w: expected HH:MM-HH:MM, got %q", ErrInvalidWindow, s)
	}

	start, err := parseTimeOffset(strings.TrimSpace(parts[0]))
	if err != nil {
		return Window{}, fmt.Errorf("%w: start: %w", ErrInvalidWindow, err)
	}

	end, err := parseTimeOffset(strings.TrimSpace(parts[1]))
	if err != nil {
		return Window{}, fmt.Errorf("%w: end: %w", ErrInvalidWindow, err)
	}

	return Window{Start: start, End: end}, nil
}

// ParseDays parses a list of three-letter weekday abbreviations
// (e.g. ["mon", "tue", "fri"]) into a weekday set.
func ParseDays(days []string) (map[time.Weekday]struct{}, error) {
	if len(days) == 0 {
		return nil, nil
	}

	set := make(map[time.Weekday]struct{}, len(days))
	for _, d := range days {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(d))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrInvalidWindow, d)
		}
		set[wd] = struct{}{}
	}
	return set, nil
}

// parseTimeOffset parses "HH:MM" into a Duration from midnight.
func parseTimeOffset(s string) (time.Duration, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}

	var h, m int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil {
		return 0, fmt.Errorf("invalid hour: %q", parts[0])
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil {
		return 0, fmt.Errorf("invalid minute: %q", parts[1])
	}

	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("out of range: %02d:%02d", h, m)
	}

	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// Contains reports whether t falls inside the window on an allowed day.
// The caller is responsible for converting t to the desired timezone.
func (w Window) Contains(t time.Time) bool {
	if len(w.Days) > 0 {
		if _, ok := w.Days[t.Weekday()]; !ok {
			return false
		}
	}

	if w.Start == w.End {
		// Zero-width range means "all hours", so a day-only window works.
		return true
	}

	offset := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second

	if w.Start < w.End {
		return offset >= w.Start && offset < w.End
	}
	// Midnight wrap: e.g., 22:00-06:00.
	return offset >= w.Start || offset < w.End
}

// String renders the window for logs and the status endpoint.
func (w Window) String() string {
	hours := "all-day"
	if w.Start != w.End {
		hours = fmt.Sprintf("%s-%s", fmtOffset(w.Start), fmtOffset(w.End))
	}

	if len(w.Days) == 0 {
		return hours
	}

	names := make([]string, 0, len(w.Days))
	for name, wd := range weekdayNames {
		if _, ok := w.Days[wd]; ok {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return weekdayNames[names[i]] < weekdayNames[names[j]]
	})
	return strings.Join(names, ",") + " " + hours
}

func fmtOffset(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
