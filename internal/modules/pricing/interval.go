// README: Interval resolution; clips a stay to the rate intervals covering it and reports coverage.
package pricing

import (
	"cmp"
	"slices"
	"strings"

	"travelcrm/internal/types"
)

type ResolvedInterval struct {
	Interval PriceInterval
	Nights   DateRange
	Count    int
}

// Resolution is the chronological set of intervals overlapping a stay.
type Resolution struct {
	Intervals []ResolvedInterval
	Requested int
	Covered   int
	Gaps      []DateRange
	Overlap   *OverlapError
}

// ClipInterval intersects the inclusive interval with the half-open stay
// [checkIn, checkOut) and returns the clipped nights.
func ClipInterval(iv PriceInterval, checkIn, checkOut types.Date) (DateRange, int) {
	start := types.MaxDate(checkIn, iv.StartDate)
	end := types.MinDate(checkOut, iv.EndDate.AddDays(1))
	n := types.NightsBetween(start, end)
	if n <= 0 {
		return DateRange{}, 0
	}
	return DateRange{Start: start, End: end}, n
}

// ResolveIntervals returns the intervals that contribute at least one night to the
// stay, ordered by start date. It fails with ErrNoIntervalsFound when none do.
func ResolveIntervals(intervals []PriceInterval, checkIn, checkOut types.Date) (Resolution, error) {
	res := Resolution{Requested: types.NightsBetween(checkIn, checkOut)}
	for _, iv := range intervals {
		span, n := ClipInterval(iv, checkIn, checkOut)
		if n == 0 {
			continue
		}
		res.Intervals = append(res.Intervals, ResolvedInterval{Interval: iv, Nights: span, Count: n})
	}
	if len(res.Intervals) == 0 {
		return res, ErrNoIntervalsFound
	}
	slices.SortStableFunc(res.Intervals, func(a, b ResolvedInterval) int {
		switch {
		case a.Nights.Start.Before(b.Nights.Start):
			return -1
		case a.Nights.Start.After(b.Nights.Start):
			return 1
		}
		if c := cmp.Compare(a.Interval.SortOrder, b.Interval.SortOrder); c != 0 {
			return c
		}
		return strings.Compare(string(a.Interval.ID), string(b.Interval.ID))
	})

	cursor := checkIn
	var prev *ResolvedInterval
	for i := range res.Intervals {
		ri := &res.Intervals[i]
		if ri.Nights.Start.After(cursor) {
			res.Gaps = append(res.Gaps, DateRange{Start: cursor, End: ri.Nights.Start})
		} else if prev != nil && ri.Nights.Start.Before(cursor) && res.Overlap == nil {
			res.Overlap = &OverlapError{First: prev.Interval, Second: ri.Interval}
		}
		if ri.Nights.End.After(cursor) {
			cursor = ri.Nights.End
			prev = ri
		}
	}
	if cursor.Before(checkOut) {
		res.Gaps = append(res.Gaps, DateRange{Start: cursor, End: checkOut})
	}
	res.Covered = res.Requested
	for _, g := range res.Gaps {
		res.Covered -= types.NightsBetween(g.Start, g.End)
	}
	return res, nil
}

// Strict reports overlapping intervals or uncovered nights as errors.
func (r Resolution) Strict() error {
	if r.Overlap != nil {
		return r.Overlap
	}
	if len(r.Gaps) > 0 {
		return &CoverageError{Requested: r.Requested, Covered: r.Covered, Gaps: r.Gaps}
	}
	return nil
}
