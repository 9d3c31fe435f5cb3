package analysis

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stollenaar/numbercruncher/internal/database"
	"github.com/stollenaar/numbercruncher/internal/frame"
	"github.com/stollenaar/numbercruncher/internal/orders"
	"github.com/stretchr/testify/require"
)

// frameCounter groups a frame in memory, returning buckets in arbitrary order.
type frameCounter struct {
	frame frame.Frame
	err   error
}

func (f frameCounter) CountBy(ctx context.Context, g database.Grouping) ([]database.CountRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	type key struct{ x, y string }
	counts := map[key]int64{}
	for _, row := range f.frame.Rows {
		switch g {
		case database.ByHour:
			counts[key{x: strconv.Itoa(row.Hour)}]++
		case database.ByWeekday:
			counts[key{x: row.Weekday}]++
		case database.ByWeekdayHour:
			counts[key{x: strconv.Itoa(row.Hour), y: row.Weekday}]++
		case database.ByDay:
			counts[key{x: row.Day}]++
		}
	}
	var rows []database.CountRow
	for k, v := range counts {
		rows = append(rows, database.CountRow{Xaxes: k.x, Yaxes: k.y, Value: v})
	}
	return rows, nil
}

func randomFrame(t *testing.T, n int, days int) frame.Frame {
	t.Helper()
	loc, err := time.LoadLocation("US/Eastern")
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	start := time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC)
	in := make([]orders.Order, n)
	for i := range in {
		offset := time.Duration(rng.Int63n(int64(days) * int64(24*time.Hour)))
		in[i] = orders.Order{ID: snowflake.ID(i + 1), CreatedAt: start.Add(offset), Webhook: true}
	}
	return frame.Build(in, loc)
}

func sum(values []int) int {
	var total int
	for _, v := range values {
		total += v
	}
	return total
}

func TestAggregateReconciles(t *testing.T) {
	f := randomFrame(t, 500, 30)

	result, err := Aggregate(context.Background(), frameCounter{frame: f})
	require.NoError(t, err)

	require.Equal(t, 500, result.Total)
	require.Equal(t, 500, sum(result.Hourly[:]))
	require.Equal(t, 500, sum(result.Weekly[:]))

	for day := range result.Heatmap {
		require.Equal(t, result.Weekly[day], sum(result.Heatmap[day][:]), "row %s", frame.Weekdays[day])
	}
	for hour := 0; hour < 24; hour++ {
		var column int
		for day := range result.Heatmap {
			column += result.Heatmap[day][hour]
		}
		require.Equal(t, result.Hourly[hour], column, "column %d", hour)
	}

	var daily int
	for _, day := range result.Daily {
		daily += day.Count
	}
	require.Equal(t, 500, daily)
}

func TestWeeklyIsMondayFirst(t *testing.T) {
	// a Sunday, then a Wednesday, then a Monday
	in := []orders.Order{
		{ID: 1, CreatedAt: time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)},
		{ID: 2, CreatedAt: time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)},
		{ID: 3, CreatedAt: time.Date(2025, 3, 5, 13, 0, 0, 0, time.UTC)},
		{ID: 4, CreatedAt: time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)},
	}

	result, err := Aggregate(context.Background(), frameCounter{frame: frame.Build(in, time.UTC)})
	require.NoError(t, err)
	require.Equal(t, [7]int{1, 0, 2, 0, 0, 0, 1}, result.Weekly)
	require.Equal(t, 3, result.Hourly[12])
	require.Equal(t, 1, result.Hourly[13])
}

func TestDailyFillsGaps(t *testing.T) {
	in := []orders.Order{
		{ID: 1, CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		{ID: 2, CreatedAt: time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)},
		{ID: 3, CreatedAt: time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)},
	}

	result, err := Aggregate(context.Background(), frameCounter{frame: frame.Build(in, time.UTC)})
	require.NoError(t, err)
	require.Len(t, result.Daily, 5)
	require.Equal(t, []int{2, 0, 0, 0, 1}, []int{
		result.Daily[0].Count, result.Daily[1].Count, result.Daily[2].Count, result.Daily[3].Count, result.Daily[4].Count,
	})
	require.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), result.Daily[2].Day)
	require.Nil(t, result.Decomposition)
}

func TestDecompositionThreshold(t *testing.T) {
	build := func(days int) frame.Frame {
		var in []orders.Order
		start := time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC)
		for d := 0; d < days; d++ {
			in = append(in, orders.Order{ID: snowflake.ID(d + 1), CreatedAt: start.AddDate(0, 0, d)})
		}
		return frame.Build(in, time.UTC)
	}

	result, err := Aggregate(context.Background(), frameCounter{frame: build(13)})
	require.NoError(t, err)
	require.Len(t, result.Daily, 13)
	require.Nil(t, result.Decomposition)

	result, err = Aggregate(context.Background(), frameCounter{frame: build(14)})
	require.NoError(t, err)
	require.Len(t, result.Daily, 14)
	require.NotNil(t, result.Decomposition)
	require.Len(t, result.Decomposition.Observed, 14)
}

func TestAggregateCounterError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Aggregate(context.Background(), frameCounter{err: boom})
	require.ErrorIs(t, err, boom)
}

func TestAggregateRejectsBadBuckets(t *testing.T) {
	_, err := parseHour("24")
	require.Error(t, err)
	_, err = parseWeekday("Funday")
	require.Error(t, err)
}

func TestAggregateWithDuckDB(t *testing.T) {
	ctx := context.Background()
	f := randomFrame(t, 300, 21)

	store, err := database.Open(ctx, false)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.LoadFrame(ctx, f))

	fromDB, err := Aggregate(ctx, store)
	require.NoError(t, err)
	inMemory, err := Aggregate(ctx, frameCounter{frame: f})
	require.NoError(t, err)

	require.Equal(t, inMemory.Hourly, fromDB.Hourly)
	require.Equal(t, inMemory.Weekly, fromDB.Weekly)
	require.Equal(t, inMemory.Heatmap, fromDB.Heatmap)
	require.Equal(t, inMemory.Daily, fromDB.Daily)
	require.NotNil(t, fromDB.Decomposition)
}

func TestDecomposeRecoversWeeklyPattern(t *testing.T) {
	pattern := []float64{3, -1, -1, 0, 2, -2, -1}
	values := make([]float64, 28)
	for i := range values {
		values[i] = 10 + pattern[i%7]
	}

	d, err := Decompose(values, 7)
	require.NoError(t, err)

	for i := range values {
		require.InDelta(t, pattern[i%7], d.Seasonal[i], 1e-9, "seasonal %d", i)
		if i < 3 || i >= len(values)-3 {
			require.True(t, math.IsNaN(d.Trend[i]), "trend %d should be undefined", i)
			require.True(t, math.IsNaN(d.Resid[i]), "resid %d should be undefined", i)
			continue
		}
		require.InDelta(t, 10, d.Trend[i], 1e-9)
		require.InDelta(t, 0, d.Resid[i], 1e-9)
		require.InDelta(t, values[i], d.Trend[i]+d.Seasonal[i]+d.Resid[i], 1e-9)
	}
}

func TestDecomposeSeasonalHasZeroMean(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i*i%11) + float64(i)
	}

	d, err := Decompose(values, 7)
	require.NoError(t, err)

	var total float64
	for _, v := range d.Seasonal[:7] {
		total += v
	}
	require.InDelta(t, 0, total, 1e-9)
}

func TestDecomposeEvenPeriod(t *testing.T) {
	values := make([]float64, 12)
	for i := range values {
		values[i] = float64(i)
	}

	d, err := Decompose(values, 4)
	require.NoError(t, err)
	// a linear series is its own 2x4 moving average
	require.True(t, math.IsNaN(d.Trend[1]))
	require.InDelta(t, 2, d.Trend[2], 1e-9)
	require.InDelta(t, 9, d.Trend[9], 1e-9)
	require.True(t, math.IsNaN(d.Trend[10]))
}

func TestDecomposeTooShort(t *testing.T) {
	_, err := Decompose(make([]float64, 13), 7)
	require.ErrorIs(t, err, ErrSeriesTooShort)

	_, err = Decompose(make([]float64, 14), 1)
	require.Error(t, err)
}
