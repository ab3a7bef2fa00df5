package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
)

// LatLon is a WGS-84 coordinate pair.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NormalizedPoint is one heat layer input: a cell and its intensity in [0, 1].
type NormalizedPoint struct {
	Lat       float64
	Lon       float64
	Intensity float64
}

// MarshalJSON encodes the point as [lat, lon, intensity].
func (p NormalizedPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.Lat, p.Lon, p.Intensity})
}

// UnmarshalJSON decodes a [lat, lon, intensity] triple.
func (p *NormalizedPoint) UnmarshalJSON(data []byte) error {
	var v [3]float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode point: %w", err)
	}
	p.Lat, p.Lon, p.Intensity = v[0], v[1], v[2]
	return nil
}

// HeatStyle holds the heat layer drawing options.
type HeatStyle struct {
	MinOpacity float64 `json:"minOpacity"`
	Radius     int     `json:"radius"`
	Blur       int     `json:"blur"`
}

// DefaultHeatStyle returns the style the rainfall map is drawn with.
func DefaultHeatStyle() HeatStyle {
	return HeatStyle{MinOpacity: 0.5, Radius: 15, Blur: 10}
}

// Heatmap is the result of one pipeline run.
type Heatmap struct {
	Year        int               `json:"year"`
	Month       int               `json:"month"`
	Column      string            `json:"column"`
	Points      []NormalizedPoint `json:"points"`
	Min         float64           `json:"min"`
	Max         float64           `json:"max"`
	Degenerate  bool              `json:"degenerate"`
	Gradient    Gradient          `json:"gradient"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Label describes the heatmap's month, e.g. "October 1984".
func (h Heatmap) Label() string {
	return Label(h.Year, h.Month)
}

// BuildHeatmap selects the rows valid for year/month, normalizes their
// rainfall and pairs the result with gradient.
func BuildHeatmap(ds *Dataset, cal Calendar, year, month int, gradient Gradient) (Heatmap, error) {
	column, err := cal.Column(year, month)
	if err != nil {
		return Heatmap{}, err
	}
	if !ds.HasColumn(column) {
		if span, ok := cal.Span(ds); ok {
			return Heatmap{}, fmt.Errorf("%w: column %s for %s is not in the dataset (covers %s)",
				ErrNoValidData, column, Label(year, month), cal.DescribeSpan(span))
		}
		return Heatmap{}, fmt.Errorf("%w: column %s for %s is not in the dataset", ErrNoValidData, column, Label(year, month))
	}

	valid := SelectRows(ds.Rows, cal.LatColumn, cal.LonColumn, column)
	if len(valid) == 0 {
		return Heatmap{}, fmt.Errorf("%w: no row has coordinates and rainfall for %s (%s)",
			ErrNoValidData, Label(year, month), column)
	}

	values := make([]float64, len(valid))
	for i, row := range valid {
		values[i] = row.Value(column)
	}
	intensities, degenerate := Normalize(values)

	points := make([]NormalizedPoint, len(valid))
	for i, row := range valid {
		points[i] = NormalizedPoint{
			Lat:       row.Value(cal.LatColumn),
			Lon:       row.Value(cal.LonColumn),
			Intensity: intensities[i],
		}
	}

	return Heatmap{
		Year:        year,
		Month:       month,
		Column:      column,
		Points:      points,
		Min:         floats.Min(values),
		Max:         floats.Max(values),
		Degenerate:  degenerate,
		Gradient:    gradient,
		GeneratedAt: clock.Now().UTC(),
	}, nil
}
