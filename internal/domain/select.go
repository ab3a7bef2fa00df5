package domain

import "math"

// SelectRows returns the rows whose latitude, longitude and value columns
// all hold finite numbers. Input order is preserved and rows are not copied
// or mutated.
func SelectRows(rows []RawRow, latColumn, lonColumn, valueColumn string) []RawRow {
	valid := make([]RawRow, 0, len(rows))
	for _, row := range rows {
		if !isFinite(row.Value(latColumn)) || !isFinite(row.Value(lonColumn)) || !isFinite(row.Value(valueColumn)) {
			continue
		}
		valid = append(valid, row)
	}
	return valid
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
