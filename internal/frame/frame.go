// Package frame builds the working table of an analysis run: one row per
// order, with the capture time converted to a fixed civil timezone.
package frame

import (
	"sort"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stollenaar/numbercruncher/internal/orders"
)

const DayLayout = "2006-01-02"

// Weekdays is the fixed row order of every weekday grouping.
var Weekdays = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

type Row struct {
	ID        snowflake.ID
	Timestamp time.Time
	Hour      int
	Weekday   string
	Day       string
}

type Frame struct {
	Location *time.Location
	Rows     []Row
}

// Build converts every order into loc and derives the hour, weekday and day
// columns. Rows are ordered by timestamp.
func Build(in []orders.Order, loc *time.Location) Frame {
	rows := make([]Row, 0, len(in))
	for _, order := range in {
		local := order.CreatedAt.In(loc)
		rows = append(rows, Row{
			ID:        order.ID,
			Timestamp: local,
			Hour:      local.Hour(),
			Weekday:   local.Weekday().String(),
			Day:       local.Format(DayLayout),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})
	return Frame{Location: loc, Rows: rows}
}

func (f Frame) Len() int {
	return len(f.Rows)
}

// WeekdayIndex maps a weekday name onto its Monday-first position, -1 when unknown.
func WeekdayIndex(name string) int {
	for i, day := range Weekdays {
		if day == name {
			return i
		}
	}
	return -1
}
