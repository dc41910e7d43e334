package db

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/ntentasd/fitmetrics-api/internal/metrics"
	"github.com/ntentasd/fitmetrics-api/pkg/types"
)

type volumeEntry struct {
	PerformedAt time.Time
	Volume      float64
}

// FetchDailyAggregates returns one row per UTC calendar day since from on
// which the user has at least one workout, ordered by date. Days without
// workouts are absent.
func (db *DB) FetchDailyAggregates(ctx context.Context, userID uuid.UUID, from time.Time) ([]types.DailyAggregate, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	iter := db.Session.Query(`
SELECT performed_at, total_volume
FROM workouts_by_user
WHERE user_id = ? AND performed_at >= ?
`, gocql.UUID(userID), from.UTC()).WithContext(ctx).Iter()

	entries := make([]volumeEntry, 0, 256)

	var e volumeEntry
	for iter.Scan(&e.PerformedAt, &e.Volume) {
		entries = append(entries, e)
	}

	if err := iter.Close(); err != nil {
		metrics.DbErrorsTotal.WithLabelValues("daily_aggregates").Inc()
		return nil, fmt.Errorf("failed to query workouts for %s: %w", userID, err)
	}
	metrics.DbReadLatencySeconds.WithLabelValues("daily_aggregates").Observe(time.Since(start).Seconds())

	return groupByDay(entries), nil
}

func groupByDay(entries []volumeEntry) []types.DailyAggregate {
	byDay := make(map[civil.Date]*types.DailyAggregate)
	for _, e := range entries {
		d := civil.DateOf(e.PerformedAt.UTC())
		row, ok := byDay[d]
		if !ok {
			row = &types.DailyAggregate{Date: d}
			byDay[d] = row
		}
		row.Count++
		row.Sum += e.Volume
	}

	out := make([]types.DailyAggregate, 0, len(byDay))
	for _, row := range byDay {
		avg := row.Sum / float64(row.Count)
		row.Avg = &avg
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	return out
}
