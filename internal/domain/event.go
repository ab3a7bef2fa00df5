package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// HeatmapEvent announces a heatmap that was rendered for a session.
type HeatmapEvent struct {
	SessionID   string    `json:"session_id"`
	Generation  uint64    `json:"generation"`
	Layer       string    `json:"layer_id"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	Column      string    `json:"column"`
	Points      int       `json:"points"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	Degenerate  bool      `json:"degenerate"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NewHeatmapEvent summarizes a rendered heatmap.
func NewHeatmapEvent(sessionID string, generation uint64, layer LayerHandle, h Heatmap) HeatmapEvent {
	return HeatmapEvent{
		SessionID:   sessionID,
		Generation:  generation,
		Layer:       layer.ID,
		Year:        h.Year,
		Month:       h.Month,
		Column:      h.Column,
		Points:      len(h.Points),
		Min:         h.Min,
		Max:         h.Max,
		Degenerate:  h.Degenerate,
		GeneratedAt: h.GeneratedAt,
	}
}

// OutputEvent is the serialized form destined for the event topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// SerializeHeatmapEvent marshals an event keyed by session id.
func SerializeHeatmapEvent(e HeatmapEvent) (OutputEvent, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize heatmap event: %w", err)
	}
	return OutputEvent{
		Key:   []byte(e.SessionID),
		Value: data,
		Headers: map[string]string{
			"column":       e.Column,
			"generated_at": e.GeneratedAt.Format(time.RFC3339),
		},
	}, nil
}
