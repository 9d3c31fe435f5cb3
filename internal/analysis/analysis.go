// Package analysis turns the grouped counts of the working table into the
// zero-filled series that are plotted.
package analysis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/stollenaar/numbercruncher/internal/database"
	"github.com/stollenaar/numbercruncher/internal/frame"
)

const (
	DecompositionPeriod  = 7
	MinDecompositionDays = 2 * DecompositionPeriod
)

// Counter runs a grouping over the working table.
type Counter interface {
	CountBy(ctx context.Context, g database.Grouping) ([]database.CountRow, error)
}

type DayCount struct {
	Day   time.Time // midnight UTC of the local calendar date
	Count int
}

type Result struct {
	Total   int
	Hourly  [24]int
	Weekly  [7]int
	Heatmap [7][24]int
	Daily   []DayCount

	// Decomposition is nil when Daily is shorter than MinDecompositionDays.
	Decomposition *Decomposition
}

// DailyValues returns the daily counts as a float series.
func (r Result) DailyValues() []float64 {
	values := make([]float64, len(r.Daily))
	for i, day := range r.Daily {
		values[i] = float64(day.Count)
	}
	return values
}

// Aggregate runs every grouping and reindexes the results onto their full ranges.
func Aggregate(ctx context.Context, c Counter) (Result, error) {
	var (
		result Result
		err    error
	)

	if result.Hourly, err = hourly(ctx, c); err != nil {
		return result, err
	}
	if result.Weekly, err = weekly(ctx, c); err != nil {
		return result, err
	}
	if result.Heatmap, err = heatmap(ctx, c); err != nil {
		return result, err
	}
	if result.Daily, err = daily(ctx, c); err != nil {
		return result, err
	}

	for _, count := range result.Hourly {
		result.Total += count
	}

	if len(result.Daily) >= MinDecompositionDays {
		decomposition, err := Decompose(result.DailyValues(), DecompositionPeriod)
		if err != nil {
			return result, err
		}
		result.Decomposition = &decomposition
	}
	return result, nil
}

func hourly(ctx context.Context, c Counter) (bins [24]int, err error) {
	rows, err := c.CountBy(ctx, database.ByHour)
	if err != nil {
		return bins, err
	}
	for _, row := range rows {
		hour, err := parseHour(row.Xaxes)
		if err != nil {
			return bins, err
		}
		bins[hour] += int(row.Value)
	}
	return bins, nil
}

func weekly(ctx context.Context, c Counter) (bins [7]int, err error) {
	rows, err := c.CountBy(ctx, database.ByWeekday)
	if err != nil {
		return bins, err
	}
	for _, row := range rows {
		day, err := parseWeekday(row.Xaxes)
		if err != nil {
			return bins, err
		}
		bins[day] += int(row.Value)
	}
	return bins, nil
}

func heatmap(ctx context.Context, c Counter) (matrix [7][24]int, err error) {
	rows, err := c.CountBy(ctx, database.ByWeekdayHour)
	if err != nil {
		return matrix, err
	}
	for _, row := range rows {
		day, err := parseWeekday(row.Yaxes)
		if err != nil {
			return matrix, err
		}
		hour, err := parseHour(row.Xaxes)
		if err != nil {
			return matrix, err
		}
		matrix[day][hour] += int(row.Value)
	}
	return matrix, nil
}

func daily(ctx context.Context, c Counter) ([]DayCount, error) {
	rows, err := c.CountBy(ctx, database.ByDay)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	counts := make(map[time.Time]int, len(rows))
	var first, last time.Time
	for i, row := range rows {
		day, err := time.Parse(frame.DayLayout, row.Xaxes)
		if err != nil {
			return nil, fmt.Errorf("invalid day %q: %w", row.Xaxes, err)
		}
		counts[day] += int(row.Value)
		if i == 0 || day.Before(first) {
			first = day
		}
		if i == 0 || day.After(last) {
			last = day
		}
	}

	var series []DayCount
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		series = append(series, DayCount{Day: day, Count: counts[day]})
	}
	return series, nil
}

func parseHour(raw string) (int, error) {
	hour, err := strconv.Atoi(raw)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour %q", raw)
	}
	return hour, nil
}

func parseWeekday(raw string) (int, error) {
	day := frame.WeekdayIndex(raw)
	if day < 0 {
		return 0, fmt.Errorf("invalid weekday %q", raw)
	}
	return day, nil
}
