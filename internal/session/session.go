// Package session handles heatmap requests for one browser viewport at a
// time. Each Session owns a basemap and at most one heat layer; a generation
// token makes sure only the newest request's result is ever drawn.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/rainfall-heatmap-service/internal/domain"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/observability"
)

// ErrNotFound indicates an unknown or closed session.
var ErrNotFound = errors.New("session not found")

// Pipeline produces the heatmap for a month.
type Pipeline interface {
	Generate(ctx context.Context, year, month int) (domain.Heatmap, error)
}

// Publisher announces rendered heatmaps.
type Publisher interface {
	Publish(ctx context.Context, e domain.HeatmapEvent) error
}

// Options control how a session's basemap and layer are drawn.
type Options struct {
	Center domain.LatLon
	Zoom   int
	Style  domain.HeatStyle
}

// DefaultPublishTimeout bounds how long a generation waits on its event.
const DefaultPublishTimeout = 2 * time.Second

// Deps are the collaborators shared by every session. Publisher may be nil.
// A zero PublishTimeout means DefaultPublishTimeout.
type Deps struct {
	Pipeline       Pipeline
	Renderer       domain.Renderer
	Publisher      Publisher
	PublishTimeout time.Duration
	Options        Options
	Logger         *slog.Logger
	Metrics        *observability.Metrics
}

// mapDropper is implemented by renderers that can discard a whole viewport.
type mapDropper interface {
	DropMap(ctx context.Context, m domain.MapHandle) error
}

// Result describes a rendered generation.
type Result struct {
	Generation uint64             `json:"generation"`
	Map        domain.MapHandle   `json:"map"`
	Layer      domain.LayerHandle `json:"layer"`
	Heatmap    domain.Heatmap     `json:"-"`
}

// State is a point-in-time view of a session.
type State struct {
	ID         string              `json:"id"`
	Generation uint64              `json:"generation"`
	Map        *domain.MapHandle   `json:"map,omitempty"`
	Layer      *domain.LayerHandle `json:"layer,omitempty"`
	Heatmap    *domain.Heatmap     `json:"-"`
	Notice     string              `json:"notice,omitempty"`
}

// Session is the trigger handler for one viewport.
type Session struct {
	id   string
	deps Deps

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	mapHandle  *domain.MapHandle
	layer      *domain.LayerHandle
	last       *domain.Heatmap
	notice     string
	closed     bool
}

// New creates a session. Nothing is drawn until the first Generate.
func New(id string, deps Deps) *Session {
	return &Session{id: id, deps: deps}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Generate runs the pipeline for year/month and swaps the session's heat
// layer for the result. A call that is overtaken by a newer one returns
// domain.ErrSuperseded and draws nothing; the older call's context is
// cancelled as soon as the newer one starts.
func (s *Session) Generate(ctx context.Context, year, month int) (Result, error) {
	start := time.Now()

	if month < 1 || month > 12 {
		err := fmt.Errorf("%w: month %d is not between 1 and 12", domain.ErrOutOfRange, month)
		s.mu.Lock()
		s.notice = err.Error()
		s.mu.Unlock()
		s.record(err)
		return Result{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, s.id)
	}
	s.generation++
	gen := s.generation
	if s.cancel != nil {
		s.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	h, err := s.deps.Pipeline.Generate(runCtx, year, month)

	s.mu.Lock()
	if latest := s.generation; gen != latest || s.closed {
		s.mu.Unlock()
		stale := fmt.Errorf("%w: request %d replaced by %d", domain.ErrSuperseded, gen, latest)
		s.record(stale)
		s.deps.Logger.Debug("discarding stale heatmap", "session", s.id, "generation", gen)
		return Result{}, stale
	}
	s.cancel = nil

	if err != nil {
		s.notice = err.Error()
		s.mu.Unlock()
		s.record(err)
		s.deps.Logger.Warn("heatmap generation failed",
			"session", s.id,
			"year", year,
			"month", month,
			"kind", domain.ErrorKind(err),
			"error", err,
		)
		return Result{}, err
	}

	res, err := s.draw(ctx, gen, h)
	if err != nil {
		s.notice = err.Error()
		s.mu.Unlock()
		s.record(err)
		s.deps.Logger.Error("render heat layer", "session", s.id, "error", err)
		return Result{}, err
	}
	s.notice = ""
	s.mu.Unlock()

	s.deps.Metrics.Generations.WithLabelValues("success").Inc()
	s.deps.Metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	s.deps.Metrics.PointsRendered.Observe(float64(len(h.Points)))
	s.deps.Logger.Info("heatmap rendered",
		"session", s.id,
		"generation", gen,
		"column", h.Column,
		"points", len(h.Points),
		"degenerate", h.Degenerate,
	)

	s.publish(ctx, domain.NewHeatmapEvent(s.id, gen, res.Layer, h))
	return res, nil
}

// draw swaps the heat layer. Callers hold s.mu.
func (s *Session) draw(ctx context.Context, gen uint64, h domain.Heatmap) (Result, error) {
	r := s.deps.Renderer

	if s.mapHandle == nil {
		m, err := r.InitializeBasemap(ctx, s.deps.Options.Center, s.deps.Options.Zoom)
		if err != nil {
			return Result{}, fmt.Errorf("initialize basemap: %w", err)
		}
		s.mapHandle = &m
	}

	if s.layer != nil {
		if err := r.RemoveLayer(ctx, *s.layer); err != nil {
			return Result{}, fmt.Errorf("remove layer %s: %w", s.layer.ID, err)
		}
		s.layer = nil
		s.last = nil
	}

	layer, err := r.RenderHeatLayer(ctx, *s.mapHandle, h.Points, h.Gradient, s.deps.Options.Style)
	if err != nil {
		return Result{}, fmt.Errorf("render heat layer: %w", err)
	}
	s.layer = &layer
	s.last = &h

	return Result{Generation: gen, Map: *s.mapHandle, Layer: layer, Heatmap: h}, nil
}

func (s *Session) record(err error) {
	s.deps.Metrics.Generations.WithLabelValues(domain.ErrorKind(err)).Inc()
}

func (s *Session) publish(ctx context.Context, e domain.HeatmapEvent) {
	if s.deps.Publisher == nil {
		return
	}
	timeout := s.deps.PublishTimeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	// The layer is already drawn; the event outlives a disconnected client.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := s.deps.Publisher.Publish(ctx, e); err != nil {
		s.deps.Metrics.EventsPublished.WithLabelValues("error").Inc()
		s.deps.Logger.Warn("publish heatmap event", "session", s.id, "error", err)
		return
	}
	s.deps.Metrics.EventsPublished.WithLabelValues("success").Inc()
}

// State returns the session's current handles, heatmap and notice.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{ID: s.id, Generation: s.generation, Heatmap: s.last, Notice: s.notice}
	if s.mapHandle != nil {
		m := *s.mapHandle
		st.Map = &m
	}
	if s.layer != nil {
		l := *s.layer
		st.Layer = &l
	}
	return st
}

// Close cancels any in-flight generation and tears down the viewport.
// Later calls to Generate fail with ErrNotFound.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	var errs []error
	if s.layer != nil {
		if err := s.deps.Renderer.RemoveLayer(ctx, *s.layer); err != nil {
			errs = append(errs, fmt.Errorf("remove layer: %w", err))
		}
		s.layer = nil
	}
	if s.mapHandle != nil {
		if d, ok := s.deps.Renderer.(mapDropper); ok {
			if err := d.DropMap(ctx, *s.mapHandle); err != nil {
				errs = append(errs, fmt.Errorf("drop map: %w", err))
			}
		}
		s.mapHandle = nil
	}
	s.last = nil
	return errors.Join(errs...)
}
