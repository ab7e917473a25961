package availability

import "time"

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals share any instant.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// FreeSlots returns slot starts in [windowStart, windowEnd) where a session of the given
// length would not collide with any busy interval. Slots starting before notBefore are skipped.
func FreeSlots(windowStart, windowEnd time.Time, duration, step time.Duration, busy []Interval, notBefore time.Time) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) || windowStart.Add(duration).After(windowEnd) {
		return nil
	}

	var slots []time.Time
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(step) {
		if t.Before(notBefore) {
			continue
		}
		candidate := Interval{Start: t, End: t.Add(duration)}
		free := true
		for _, b := range busy {
			if Overlaps(candidate, b) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, t)
		}
	}
	return slots
}
