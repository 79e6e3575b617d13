package availability

import (
	"sort"
	"time"
)

// FreeSlots returns the bookable hours left in the given windows once the
// booked instants are removed. booked must already be restricted to one
// doctor and one date. Hours produced by overlapping windows appear once and
// the result is sorted ascending. An empty result means "no availability".
func FreeSlots(windows []string, booked []time.Time) []string {
	taken := make(map[TimeOfDay]struct{}, len(booked))
	for _, b := range booked {
		taken[TimeOfDayOf(b).TruncateHour()] = struct{}{}
	}

	seen := make(map[TimeOfDay]struct{})
	var free []TimeOfDay
	for _, w := range ParseWindows(windows) {
		for _, slot := range w.HourlySlots() {
			if _, ok := taken[slot.TruncateHour()]; ok {
				continue
			}
			if _, dup := seen[slot]; dup {
				continue
			}
			seen[slot] = struct{}{}
			free = append(free, slot)
		}
	}

	sort.Slice(free, func(i, j int) bool { return free[i] < free[j] })

	out := make([]string, len(free))
	for i, slot := range free {
		out[i] = slot.String()
	}
	return out
}

// DayBounds returns [00:00, next 00:00) for the calendar date of day.
func DayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}
