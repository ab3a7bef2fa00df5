package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Default dataset layout.
const (
	DefaultStartYear    = 1984
	DefaultStartMonth   = 10
	DefaultColumnPrefix = "col_"
	DefaultLatColumn    = "col_1"
	DefaultLonColumn    = "col_2"
)

// Calendar maps calendar months to monthly rainfall columns.
type Calendar struct {
	StartYear  int
	StartMonth int
	Prefix     string
	LatColumn  string
	LonColumn  string
}

// DefaultCalendar returns the layout of the October 1984 dataset.
func DefaultCalendar() Calendar {
	return Calendar{
		StartYear:  DefaultStartYear,
		StartMonth: DefaultStartMonth,
		Prefix:     DefaultColumnPrefix,
		LatColumn:  DefaultLatColumn,
		LonColumn:  DefaultLonColumn,
	}
}

// ColumnIndex returns the offset of year/month from the dataset start.
// It may be negative; see Column for validation.
func (c Calendar) ColumnIndex(year, month int) int {
	return (year-c.StartYear)*12 + (month - c.StartMonth)
}

// ColumnName returns the rainfall column name for a column index.
func (c Calendar) ColumnName(index int) string {
	return c.Prefix + strconv.Itoa(index)
}

// Column validates year/month and returns the rainfall column to read.
// Months outside 1..12, months before the dataset start and columns that
// collide with the coordinate columns fail with ErrOutOfRange.
func (c Calendar) Column(year, month int) (string, error) {
	if month < 1 || month > 12 {
		return "", fmt.Errorf("%w: month %d is not between 1 and 12", ErrOutOfRange, month)
	}
	index := c.ColumnIndex(year, month)
	if index < 0 {
		return "", fmt.Errorf("%w: %04d-%02d is before the dataset start %04d-%02d",
			ErrOutOfRange, year, month, c.StartYear, c.StartMonth)
	}
	name := c.ColumnName(index)
	if name == c.LatColumn || name == c.LonColumn {
		return "", fmt.Errorf("%w: %04d-%02d maps to coordinate column %s", ErrOutOfRange, year, month, name)
	}
	return name, nil
}

// MonthOf is the inverse of ColumnIndex.
func (c Calendar) MonthOf(index int) (year, month int) {
	months := c.StartYear*12 + (c.StartMonth - 1) + index
	return months / 12, months%12 + 1
}

// Label formats a year/month for display, e.g. "October 1984".
func Label(year, month int) string {
	return fmt.Sprintf("%s %d", time.Month(month), year)
}

// MonthSpan describes the range of monthly columns present in a dataset.
type MonthSpan struct {
	First   int `json:"first_index"`
	Last    int `json:"last_index"`
	Columns int `json:"columns"`
}

// Span scans the dataset header for monthly rainfall columns. ok is false
// when the header has none.
func (c Calendar) Span(ds *Dataset) (span MonthSpan, ok bool) {
	for _, name := range ds.Columns {
		if name == c.LatColumn || name == c.LonColumn || !strings.HasPrefix(name, c.Prefix) {
			continue
		}
		index, err := strconv.Atoi(strings.TrimPrefix(name, c.Prefix))
		if err != nil || index < 0 {
			continue
		}
		if !ok || index < span.First {
			span.First = index
		}
		if !ok || index > span.Last {
			span.Last = index
		}
		span.Columns++
		ok = true
	}
	return span, ok
}

// DescribeSpan renders a span as "October 1984 to May 2020".
func (c Calendar) DescribeSpan(span MonthSpan) string {
	fy, fm := c.MonthOf(span.First)
	ly, lm := c.MonthOf(span.Last)
	return Label(fy, fm) + " to " + Label(ly, lm)
}
