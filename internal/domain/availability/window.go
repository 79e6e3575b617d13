package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedWindow is wrapped by every ParseError.
var ErrMalformedWindow = errors.New("malformed availability window")

// ParseError describes why a window string could not be parsed.
type ParseError struct {
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrMalformedWindow.Error(), e.Text, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrMalformedWindow }

// TimeOfDay is a wall-clock time expressed in minutes since midnight.
type TimeOfDay int

const (
	Hour TimeOfDay = 60
	Noon TimeOfDay = 12 * Hour

	minutesPerDay = 24 * 60
)

// ParseTimeOfDay parses "HH:MM" (24h). Surrounding whitespace is ignored.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || !twoDigits(hh) || !twoDigits(mm) {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// TimeOfDayOf extracts the wall-clock part of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// TruncateHour drops the minutes.
func (t TimeOfDay) TruncateHour() TimeOfDay {
	return t - t%Hour
}

// On combines t with the calendar date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, day.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Window is a contiguous range during which a doctor is nominally available.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// ParseWindow parses "HH:MM-HH:MM".
func ParseWindow(text string) (Window, error) {
	parts := strings.Split(text, "-")
	if len(parts) != 2 {
		return Window{}, &ParseError{Text: text, Reason: fmt.Sprintf("expected 2 tokens, got %d", len(parts))}
	}
	start, err := ParseTimeOfDay(parts[0])
	if err != nil {
		return Window{}, &ParseError{Text: text, Reason: err.Error()}
	}
	end, err := ParseTimeOfDay(parts[1])
	if err != nil {
		return Window{}, &ParseError{Text: text, Reason: err.Error()}
	}
	return Window{Start: start, End: end}, nil
}

// ParseWindows parses every entry, skipping the ones that do not parse.
func ParseWindows(texts []string) []Window {
	windows := make([]Window, 0, len(texts))
	for _, text := range texts {
		w, err := ParseWindow(text)
		if err != nil {
			continue
		}
		windows = append(windows, w)
	}
	return windows
}

// Contains reports whether t lies in [Start, End], both ends inclusive.
func (w Window) Contains(t TimeOfDay) bool {
	return t >= w.Start && t <= w.End
}

// HourlySlots returns the start of every full hour that fits in the window.
// The trailing hour is the appointment itself, so a 09:00-12:00 window
// yields 09:00, 10:00 and 11:00.
func (w Window) HourlySlots() []TimeOfDay {
	var slots []TimeOfDay
	for cur := w.Start; cur <= w.End-Hour && cur < minutesPerDay; cur += Hour {
		slots = append(slots, cur)
	}
	return slots
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// Period is the coarse AM/PM classification used by doctor search.
type Period string

const (
	PeriodAM Period = "AM"
	PeriodPM Period = "PM"
)

// ErrInvalidPeriod is returned for anything other than AM or PM.
var ErrInvalidPeriod = errors.New("time period must be AM or PM")

// ParsePeriod accepts "AM"/"PM" in any case.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToUpper(strings.TrimSpace(s))) {
	case PeriodAM:
		return PeriodAM, nil
	case PeriodPM:
		return PeriodPM, nil
	}
	return "", ErrInvalidPeriod
}

// Matches reports whether the window falls in the period. A window that
// spans noon matches both.
func (w Window) Matches(p Period) bool {
	switch p {
	case PeriodAM:
		return w.Start < Noon
	case PeriodPM:
		return w.End > Noon
	}
	return false
}

// MatchesAnyWindow reports whether any parseable window matches p.
func MatchesAnyWindow(texts []string, p Period) bool {
	for _, w := range ParseWindows(texts) {
		if w.Matches(p) {
			return true
		}
	}
	return false
}

// CoveredByWindows reports whether t lies inside any parseable window using
// inclusive range containment.
func CoveredByWindows(texts []string, t TimeOfDay) bool {
	for _, w := range ParseWindows(texts) {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// Validate checks every entry and returns the first parse failure. Used when
// an admin writes a doctor's availability, so bad input is rejected early.
func Validate(texts []string) error {
	for _, text := range texts {
		if _, err := ParseWindow(text); err != nil {
			return err
		}
	}
	return nil
}
