// Package domain models the monthly rainfall dataset and the heatmap built
// from it.
//
// # Data Source
//
// The dataset is a single comma-separated file with one header line and one
// line per grid cell. There is no quoting. Every field is read as a float64;
// anything that does not parse (blank, "NA", text) becomes NaN, and rows are
// filtered on that later rather than rejected while parsing.
//
// # Column Conventions
//
// Columns are named positionally with a prefix, "col_<n>":
//
//	col_1  latitude (WGS-84)
//	col_2  longitude (WGS-84)
//	col_N  rainfall for one calendar month
//
// Monthly columns start at the dataset start month (October 1984) and advance
// one column per month:
//
//	index = (year - 1984) * 12 + (month - 10)
//	1984-10 -> col_0, 1985-01 -> col_3, 2000-06 -> col_188
//
// The coordinate columns share the naming scheme, so the indexes that collide
// with them (1984-11, 1984-12) can never be rendered. See [Calendar.Column].
//
// # Intensity
//
// Rainfall for the selected month is min-max scaled across all valid cells to
// [0, 1]. When every cell holds the same value the range is empty and every
// point gets [NeutralIntensity] instead of NaN.
package domain
