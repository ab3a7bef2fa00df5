// Package scene implements domain.Renderer in memory. It keeps every basemap
// viewport and its heat layer so the browser page can be told exactly what
// to draw.
package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/couchcryptid/rainfall-heatmap-service/internal/domain"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/observability"
	"github.com/google/uuid"
)

var (
	// ErrUnknownMap indicates a map handle the renderer never issued or already dropped.
	ErrUnknownMap = errors.New("unknown map")

	// ErrUnknownLayer indicates a layer handle that is not attached to its map.
	ErrUnknownLayer = errors.New("unknown layer")

	// ErrLayerExists indicates a render onto a viewport that still shows a layer.
	ErrLayerExists = errors.New("viewport already has a heat layer")
)

// Tiles describes the raster tile source drawn under every heat layer.
type Tiles struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"max_zoom"`
}

// Basemap is the viewport part of a scene.
type Basemap struct {
	ID     string        `json:"id"`
	Center domain.LatLon `json:"center"`
	Zoom   int           `json:"zoom"`
	Tiles  Tiles         `json:"tiles"`
}

// Layer is a heat layer as the browser draws it.
type Layer struct {
	ID       string                   `json:"id"`
	Points   []domain.NormalizedPoint `json:"points"`
	Gradient map[string]string        `json:"gradient"`
	Style    domain.HeatStyle         `json:"style"`
}

// Scene is a snapshot of one viewport. Layer is nil when nothing is drawn.
type Scene struct {
	Map   Basemap `json:"map"`
	Layer *Layer  `json:"layer"`
}

// Renderer stores viewports and their single active heat layer.
type Renderer struct {
	tiles   Tiles
	metrics *observability.Metrics

	mu   sync.Mutex
	maps map[string]*Scene
}

// New creates an empty Renderer drawing tiles under each viewport.
func New(tiles Tiles, metrics *observability.Metrics) *Renderer {
	return &Renderer{
		tiles:   tiles,
		metrics: metrics,
		maps:    make(map[string]*Scene),
	}
}

// InitializeBasemap creates a new viewport.
func (r *Renderer) InitializeBasemap(ctx context.Context, center domain.LatLon, zoom int) (domain.MapHandle, error) {
	if err := ctx.Err(); err != nil {
		return domain.MapHandle{}, err
	}

	id := uuid.NewString()
	r.mu.Lock()
	r.maps[id] = &Scene{Map: Basemap{ID: id, Center: center, Zoom: zoom, Tiles: r.tiles}}
	r.mu.Unlock()
	return domain.MapHandle{ID: id}, nil
}

// RenderHeatLayer attaches a heat layer to m. The viewport must not already
// show one; remove it first.
func (r *Renderer) RenderHeatLayer(ctx context.Context, m domain.MapHandle, points []domain.NormalizedPoint, gradient domain.Gradient, style domain.HeatStyle) (domain.LayerHandle, error) {
	if err := ctx.Err(); err != nil {
		return domain.LayerHandle{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.maps[m.ID]
	if !ok {
		return domain.LayerHandle{}, fmt.Errorf("%w: %s", ErrUnknownMap, m.ID)
	}
	if s.Layer != nil {
		return domain.LayerHandle{}, fmt.Errorf("%w: map %s shows layer %s", ErrLayerExists, m.ID, s.Layer.ID)
	}

	s.Layer = &Layer{
		ID:       uuid.NewString(),
		Points:   points,
		Gradient: gradient.Positions(),
		Style:    style,
	}
	r.metrics.ActiveLayers.Inc()
	return domain.LayerHandle{ID: s.Layer.ID, MapID: m.ID}, nil
}

// RemoveLayer detaches layer from its viewport.
func (r *Renderer) RemoveLayer(_ context.Context, layer domain.LayerHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.maps[layer.MapID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMap, layer.MapID)
	}
	if s.Layer == nil || s.Layer.ID != layer.ID {
		return fmt.Errorf("%w: %s on map %s", ErrUnknownLayer, layer.ID, layer.MapID)
	}
	s.Layer = nil
	r.metrics.ActiveLayers.Dec()
	return nil
}

// DropMap discards a viewport together with its layer.
func (r *Renderer) DropMap(_ context.Context, m domain.MapHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.maps[m.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMap, m.ID)
	}
	if s.Layer != nil {
		r.metrics.ActiveLayers.Dec()
	}
	delete(r.maps, m.ID)
	return nil
}

// Snapshot returns a copy of the viewport's current scene.
func (r *Renderer) Snapshot(m domain.MapHandle) (Scene, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.maps[m.ID]
	if !ok {
		return Scene{}, fmt.Errorf("%w: %s", ErrUnknownMap, m.ID)
	}
	out := Scene{Map: s.Map}
	if s.Layer != nil {
		layer := *s.Layer
		out.Layer = &layer
	}
	return out, nil
}

// Maps returns the number of live viewports.
func (r *Renderer) Maps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.maps)
}
