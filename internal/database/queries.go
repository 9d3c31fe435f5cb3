package database

import (
	"context"
	"fmt"
)

type Grouping string

const (
	ByHour        Grouping = "hour"
	ByWeekday     Grouping = "weekday"
	ByWeekdayHour Grouping = "weekday_hour"
	ByDay         Grouping = "day"
)

// CountRow is one bucket of a grouping. Yaxes is only set for two-key groupings.
type CountRow struct {
	Xaxes string
	Yaxes string
	Value int64
}

const countQuery = `
	SELECT %s, COUNT(*) AS value
	FROM orders
	GROUP BY %s
	ORDER BY %s;
`

func buildQuery(g Grouping) (string, error) {
	var selectExpr, groupField string

	switch g {
	case ByHour:
		selectExpr = "CAST(hour AS VARCHAR) AS xaxes"
		groupField = "hour"
	case ByWeekday:
		selectExpr = "weekday AS xaxes"
		groupField = "weekday"
	case ByWeekdayHour:
		selectExpr = "weekday AS yaxes, CAST(hour AS VARCHAR) AS xaxes"
		groupField = "weekday, hour"
	case ByDay:
		selectExpr = "day AS xaxes"
		groupField = "day"
	default:
		return "", fmt.Errorf("unknown grouping %q", g)
	}

	return fmt.Sprintf(countQuery, selectExpr, groupField, groupField), nil
}

// CountBy counts the orders per bucket of g. Empty buckets are not returned.
func (s *Store) CountBy(ctx context.Context, g Grouping) ([]CountRow, error) {
	query, err := buildQuery(g)
	if err != nil {
		return nil, err
	}

	rows, err := s.QueryDuckDB(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error counting by %s: %w", g, err)
	}
	defer rows.Close()

	var result []CountRow
	for rows.Next() {
		var row CountRow
		if g == ByWeekdayHour {
			err = rows.Scan(&row.Yaxes, &row.Xaxes, &row.Value)
		} else {
			err = rows.Scan(&row.Xaxes, &row.Value)
		}
		if err != nil {
			return nil, fmt.Errorf("error scanning %s row: %w", g, err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Total is the number of orders in the working table.
func (s *Store) Total(ctx context.Context) (int64, error) {
	var total int64
	if err := s.duckdbClient.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&total); err != nil {
		return 0, fmt.Errorf("error counting orders: %w", err)
	}
	return total, nil
}
