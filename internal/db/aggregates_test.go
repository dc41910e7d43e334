package db

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByDay(t *testing.T) {
	at := func(s string) time.Time {
		ts, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return ts
	}

	entries := []volumeEntry{
		{at("2026-01-03T09:00:00Z"), 1000},
		{at("2026-01-01T23:59:59Z"), 2400},
		{at("2026-01-03T18:30:00Z"), 3000},
		// late evening west of UTC belongs to the next UTC day
		{at("2026-01-01T20:00:00-05:00"), 600},
	}

	rows := groupByDay(entries)
	require.Len(t, rows, 3)

	assert.Equal(t, civil.Date{Year: 2026, Month: time.January, Day: 1}, rows[0].Date)
	assert.Equal(t, 1, rows[0].Count)
	assert.Equal(t, 2400.0, rows[0].Sum)
	require.NotNil(t, rows[0].Avg)
	assert.Equal(t, 2400.0, *rows[0].Avg)

	assert.Equal(t, civil.Date{Year: 2026, Month: time.January, Day: 2}, rows[1].Date)
	assert.Equal(t, 600.0, rows[1].Sum)

	assert.Equal(t, civil.Date{Year: 2026, Month: time.January, Day: 3}, rows[2].Date)
	assert.Equal(t, 2, rows[2].Count)
	assert.Equal(t, 4000.0, rows[2].Sum)
	assert.Equal(t, 2000.0, *rows[2].Avg)
}

func TestGroupByDay_Empty(t *testing.T) {
	assert.Empty(t, groupByDay(nil))
}
