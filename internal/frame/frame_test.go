package frame

import (
	"testing"
	"time"

	"github.com/stollenaar/numbercruncher/internal/orders"
	"github.com/stretchr/testify/require"
)

func eastern(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("US/Eastern")
	require.NoError(t, err)
	return loc
}

func TestBuildConvertsToLocation(t *testing.T) {
	loc := eastern(t)
	in := []orders.Order{
		// 02:30 UTC on a Tuesday is 21:30 Monday in winter (EST, UTC-5)
		{ID: 2, CreatedAt: time.Date(2025, 1, 7, 2, 30, 0, 0, time.UTC), Webhook: true},
		// 16:00 UTC in summer is 12:00 (EDT, UTC-4)
		{ID: 1, CreatedAt: time.Date(2025, 7, 4, 16, 0, 0, 0, time.UTC), Webhook: true},
	}

	f := Build(in, loc)
	require.Equal(t, 2, f.Len())

	first := f.Rows[0]
	require.Equal(t, 21, first.Hour)
	require.Equal(t, "Monday", first.Weekday)
	require.Equal(t, "2025-01-06", first.Day)
	require.Equal(t, loc, first.Timestamp.Location())

	second := f.Rows[1]
	require.Equal(t, 12, second.Hour)
	require.Equal(t, "Friday", second.Weekday)
	require.Equal(t, "2025-07-04", second.Day)
}

func TestBuildKeepsDuplicates(t *testing.T) {
	at := time.Date(2025, 2, 3, 15, 0, 0, 0, time.UTC)
	in := []orders.Order{{ID: 1, CreatedAt: at}, {ID: 1, CreatedAt: at}, {ID: 1, CreatedAt: at}}

	require.Equal(t, 3, Build(in, time.UTC).Len())
}

func TestBuildEmpty(t *testing.T) {
	f := Build(nil, time.UTC)
	require.Zero(t, f.Len())
	require.Equal(t, time.UTC, f.Location)
}

func TestWeekdayIndex(t *testing.T) {
	for i, day := range Weekdays {
		require.Equal(t, i, WeekdayIndex(day))
	}
	require.Equal(t, 6, WeekdayIndex(time.Sunday.String()))
	require.Equal(t, -1, WeekdayIndex("Caturday"))
}
