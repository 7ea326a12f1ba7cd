package profile

import (
	"sort"
	"time"
)

const hoursPerYear = 365.25 * 24

type interval struct {
	from, to time.Time
}

// YearsAcross sums the time covered by the experiences, counting overlapping
// periods once. Roles starting in the future or ending before they start are ignored.
func YearsAcross(experiences []Experience, now time.Time) float64 {
	spans := make([]interval, 0, len(experiences))
	for _, e := range experiences {
		if e.Start.IsZero() {
			continue
		}
		to := e.Until(now)
		if to.After(now) {
			to = now
		}
		if !to.After(e.Start) {
			continue
		}
		spans = append(spans, interval{from: e.Start, to: to})
	}
	if len(spans) == 0 {
		return 0
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].from.Before(spans[j].from) })

	var total time.Duration
	cur := spans[0]
	for _, s := range spans[1:] {
		if !s.from.After(cur.to) {
			if s.to.After(cur.to) {
				cur.to = s.to
			}
			continue
		}
		total += cur.to.Sub(cur.from)
		cur = s
	}
	total += cur.to.Sub(cur.from)

	return total.Hours() / hoursPerYear
}
