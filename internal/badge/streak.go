package badge

import (
	"time"
)

// ConsecutiveMonths counts calendar months with at least one completion,
// walking back from the most recent completion month until a month is
// missing. Times are compared in UTC.
func ConsecutiveMonths(times []time.Time) int {
	if len(times) == 0 {
		return 0
	}

	months := make(map[int]struct{}, len(times))
	latest := 0
	for _, t := range times {
		idx := monthIndex(t)
		months[idx] = struct{}{}
		latest = max(latest, idx)
	}

	streak := 0
	for idx := latest; ; idx-- {
		if _, ok := months[idx]; !ok {
			return streak
		}
		streak++
	}
}

func monthIndex(t time.Time) int {
	t = t.UTC()
	return t.Year()*12 + int(t.Month()) - 1
}
