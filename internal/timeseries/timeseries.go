// Package timeseries turns sparse per-day aggregate rows into dense daily
// series.
package timeseries

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/ntentasd/fitmetrics-api/pkg/types"
)

// ErrDuplicateDate means the input held two rows for one day, which points
// at a grouping bug upstream.
var ErrDuplicateDate = errors.New("duplicate date in aggregate rows")

// Window returns the inclusive range of the trailing window of days ending
// today, i.e. days+1 calendar days.
func Window(today civil.Date, days int) (civil.Date, civil.Date) {
	return today.AddDays(-days), today
}

// Today is the current UTC calendar day.
func Today(now time.Time) civil.Date {
	return civil.DateOf(now.UTC())
}

// Densify returns one row per calendar day from start to end inclusive, in
// date order. Days missing from rows get a zero row with no average. Rows
// outside the window are ignored. The result is empty when start is after
// end.
func Densify(rows []types.DailyAggregate, start, end civil.Date) ([]types.DailyAggregate, error) {
	if start.After(end) {
		return []types.DailyAggregate{}, nil
	}

	n := end.DaysSince(start) + 1
	out := make([]types.DailyAggregate, n)
	for i := range out {
		out[i] = types.DailyAggregate{Date: start.AddDays(i)}
	}

	seen := make(map[civil.Date]struct{}, len(rows))
	for _, row := range rows {
		if row.Date.Before(start) || row.Date.After(end) {
			continue
		}
		if _, dup := seen[row.Date]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDate, row.Date)
		}
		seen[row.Date] = struct{}{}

		out[row.Date.DaysSince(start)] = row
	}

	return out, nil
}

// Summarize folds daily rows into window totals.
func Summarize(rows []types.DailyAggregate) types.Summary {
	var s types.Summary
	for _, row := range rows {
		s.TotalVolume += row.Sum
		s.WorkoutsCount += row.Count
	}
	if s.WorkoutsCount > 0 {
		s.AvgVolume = s.TotalVolume / float64(s.WorkoutsCount)
	}
	return s
}
