package domain

import "context"

// MapHandle identifies a basemap viewport owned by a Renderer.
type MapHandle struct {
	ID string `json:"id"`
}

// LayerHandle identifies a heat layer attached to a viewport.
type LayerHandle struct {
	ID    string `json:"id"`
	MapID string `json:"map_id"`
}

// Renderer draws heat layers onto basemaps.
type Renderer interface {
	// InitializeBasemap creates a viewport centered on center.
	InitializeBasemap(ctx context.Context, center LatLon, zoom int) (MapHandle, error)

	// RenderHeatLayer attaches a heat layer to the viewport.
	RenderHeatLayer(ctx context.Context, m MapHandle, points []NormalizedPoint, gradient Gradient, style HeatStyle) (LayerHandle, error)

	// RemoveLayer detaches a heat layer.
	RemoveLayer(ctx context.Context, layer LayerHandle) error
}
