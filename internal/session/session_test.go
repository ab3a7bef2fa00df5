package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/rainfall-heatmap-service/internal/adapter/scene"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/domain"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type stubPipeline struct {
	calls    atomic.Int64
	generate func(ctx context.Context, year, month int) (domain.Heatmap, error)
}

func (p *stubPipeline) Generate(ctx context.Context, year, month int) (domain.Heatmap, error) {
	p.calls.Add(1)
	return p.generate(ctx, year, month)
}

// countingRenderer records calls made to the wrapped scene renderer.
type countingRenderer struct {
	*scene.Renderer
	basemaps atomic.Int64
	renders  atomic.Int64
	removes  atomic.Int64
}

func (r *countingRenderer) InitializeBasemap(ctx context.Context, center domain.LatLon, zoom int) (domain.MapHandle, error) {
	r.basemaps.Add(1)
	return r.Renderer.InitializeBasemap(ctx, center, zoom)
}

func (r *countingRenderer) RenderHeatLayer(ctx context.Context, m domain.MapHandle, points []domain.NormalizedPoint, g domain.Gradient, style domain.HeatStyle) (domain.LayerHandle, error) {
	r.renders.Add(1)
	return r.Renderer.RenderHeatLayer(ctx, m, points, g, style)
}

func (r *countingRenderer) RemoveLayer(ctx context.Context, layer domain.LayerHandle) error {
	r.removes.Add(1)
	return r.Renderer.RemoveLayer(ctx, layer)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.HeatmapEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.HeatmapEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func heatmapFor(month int, intensities ...float64) domain.Heatmap {
	points := make([]domain.NormalizedPoint, len(intensities))
	for i, v := range intensities {
		points[i] = domain.NormalizedPoint{Lat: 33.5 + float64(i)/10, Lon: -112, Intensity: v}
	}
	g, _ := domain.BuildGradient(domain.DefaultGradientEntries())
	return domain.Heatmap{
		Year:     1985,
		Month:    month,
		Column:   fmt.Sprintf("col_%d", month+2),
		Points:   points,
		Gradient: g,
	}
}

func fixedPipeline() *stubPipeline {
	return &stubPipeline{generate: func(_ context.Context, _, month int) (domain.Heatmap, error) {
		return heatmapFor(month, 0, 1), nil
	}}
}

type fixture struct {
	renderer *countingRenderer
	metrics  *observability.Metrics
	deps     Deps
}

func newFixture(p Pipeline, pub Publisher) *fixture {
	metrics := observability.NewMetricsForTesting()
	r := &countingRenderer{Renderer: scene.New(scene.Tiles{MaxZoom: 19}, metrics)}
	return &fixture{
		renderer: r,
		metrics:  metrics,
		deps: Deps{
			Pipeline:  p,
			Renderer:  r,
			Publisher: pub,
			Options: Options{
				Center: domain.LatLon{Lat: 33.75, Lon: -112.125},
				Zoom:   10,
				Style:  domain.DefaultHeatStyle(),
			},
			Logger:  discardLogger(),
			Metrics: metrics,
		},
	}
}

// --- tests ---

func TestSession_Generate(t *testing.T) {
	f := newFixture(fixedPipeline(), nil)
	s := New("s1", f.deps)

	res, err := s.Generate(context.Background(), 1985, 5)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), res.Generation)
	assert.Equal(t, "col_7", res.Heatmap.Column)
	assert.Equal(t, res.Map.ID, res.Layer.MapID)

	snap, err := f.renderer.Snapshot(res.Map)
	require.NoError(t, err)
	require.NotNil(t, snap.Layer)
	assert.Equal(t, res.Layer.ID, snap.Layer.ID)
	assert.Equal(t, res.Heatmap.Points, snap.Layer.Points)
	assert.Equal(t, domain.DefaultHeatStyle(), snap.Layer.Style)

	st := s.State()
	assert.Equal(t, "s1", st.ID)
	require.NotNil(t, st.Layer)
	assert.Equal(t, res.Layer, *st.Layer)
	require.NotNil(t, st.Heatmap)
	assert.Empty(t, st.Notice)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Generations.WithLabelValues("success")))
}

func TestSession_ReusesBasemapAndReplacesLayer(t *testing.T) {
	f := newFixture(fixedPipeline(), nil)
	s := New("s1", f.deps)
	ctx := context.Background()

	first, err := s.Generate(ctx, 1985, 5)
	require.NoError(t, err)
	second, err := s.Generate(ctx, 1985, 6)
	require.NoError(t, err)

	assert.Equal(t, first.Map, second.Map)
	assert.NotEqual(t, first.Layer.ID, second.Layer.ID)
	assert.Equal(t, int64(1), f.renderer.basemaps.Load())
	assert.Equal(t, int64(2), f.renderer.renders.Load())
	assert.Equal(t, int64(1), f.renderer.removes.Load())
	assert.Equal(t, 1, f.renderer.Maps())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActiveLayers))
}

func TestSession_NoValidDataRendersNothing(t *testing.T) {
	p := &stubPipeline{generate: func(context.Context, int, int) (domain.Heatmap, error) {
		return domain.Heatmap{}, fmt.Errorf("%w: column col_0 is not in the dataset", domain.ErrNoValidData)
	}}
	f := newFixture(p, nil)
	s := New("s1", f.deps)

	_, err := s.Generate(context.Background(), 1984, 10)
	require.ErrorIs(t, err, domain.ErrNoValidData)

	assert.Equal(t, int64(0), f.renderer.renders.Load())
	assert.Equal(t, int64(0), f.renderer.basemaps.Load())
	assert.Contains(t, s.State().Notice, "col_0")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Generations.WithLabelValues(domain.KindNoValidData)))
}

func TestSession_InvalidMonthSkipsPipeline(t *testing.T) {
	p := fixedPipeline()
	f := newFixture(p, nil)
	s := New("s1", f.deps)

	for _, month := range []int{0, 13, -1} {
		_, err := s.Generate(context.Background(), 1985, month)
		require.ErrorIs(t, err, domain.ErrOutOfRange)
	}
	assert.Equal(t, int64(0), p.calls.Load())
	assert.Equal(t, uint64(0), s.State().Generation)
}

func TestSession_RecoversAfterError(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	p := &stubPipeline{generate: func(_ context.Context, _, month int) (domain.Heatmap, error) {
		if fail.Load() {
			return domain.Heatmap{}, fmt.Errorf("load dataset: %w", domain.ErrFetch)
		}
		return heatmapFor(month, 0.25, 0.75), nil
	}}
	f := newFixture(p, nil)
	s := New("s1", f.deps)
	ctx := context.Background()

	_, err := s.Generate(ctx, 1985, 5)
	require.ErrorIs(t, err, domain.ErrFetch)
	assert.NotEmpty(t, s.State().Notice)

	fail.Store(false)
	_, err = s.Generate(ctx, 1985, 5)
	require.NoError(t, err)
	assert.Empty(t, s.State().Notice)
	assert.NotNil(t, s.State().Layer)
}

func TestSession_StaleGenerationDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var slowCtxErr atomic.Value

	p := &stubPipeline{generate: func(ctx context.Context, _, month int) (domain.Heatmap, error) {
		if month == 1 {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				slowCtxErr.Store(err)
			}
			return heatmapFor(1, 0, 0.5, 1), nil
		}
		return heatmapFor(month, 0, 1), nil
	}}
	f := newFixture(p, nil)
	s := New("s1", f.deps)
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() {
		_, err := s.Generate(ctx, 1985, 1)
		slow <- err
	}()
	<-started

	fast, err := s.Generate(ctx, 1985, 2)
	require.NoError(t, err)

	close(release)
	select {
	case err := <-slow:
		require.ErrorIs(t, err, domain.ErrSuperseded)
	case <-time.After(5 * time.Second):
		t.Fatal("slow generation did not return")
	}

	assert.Equal(t, context.Canceled, slowCtxErr.Load())
	assert.Equal(t, int64(1), f.renderer.renders.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActiveLayers))

	snap, err := f.renderer.Snapshot(fast.Map)
	require.NoError(t, err)
	require.NotNil(t, snap.Layer)
	assert.Equal(t, fast.Layer.ID, snap.Layer.ID)
	assert.Len(t, snap.Layer.Points, 2)
	assert.Equal(t, 2, s.State().Heatmap.Month)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Generations.WithLabelValues(domain.KindSuperseded)))
}

func TestSession_PublishesEvent(t *testing.T) {
	pub := &recordingPublisher{}
	f := newFixture(fixedPipeline(), pub)
	s := New("s1", f.deps)

	res, err := s.Generate(context.Background(), 1985, 5)
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	e := pub.events[0]
	assert.Equal(t, "s1", e.SessionID)
	assert.Equal(t, uint64(1), e.Generation)
	assert.Equal(t, res.Layer.ID, e.Layer)
	assert.Equal(t, "col_7", e.Column)
	assert.Equal(t, 2, e.Points)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsPublished.WithLabelValues("success")))
}

func TestSession_PublishFailureDoesNotFailGeneration(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	f := newFixture(fixedPipeline(), pub)
	s := New("s1", f.deps)

	_, err := s.Generate(context.Background(), 1985, 5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsPublished.WithLabelValues("error")))
}

// blockingPublisher waits until its context ends.
type blockingPublisher struct{}

func (blockingPublisher) Publish(ctx context.Context, _ domain.HeatmapEvent) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestSession_PublishIsBounded(t *testing.T) {
	f := newFixture(fixedPipeline(), blockingPublisher{})
	f.deps.PublishTimeout = 50 * time.Millisecond
	s := New("s1", f.deps)

	done := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background(), 1985, 5)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("generation blocked on a stalled publisher")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsPublished.WithLabelValues("error")))
	assert.NotNil(t, s.State().Layer)
}

func TestSession_Close(t *testing.T) {
	f := newFixture(fixedPipeline(), nil)
	s := New("s1", f.deps)
	ctx := context.Background()

	_, err := s.Generate(ctx, 1985, 5)
	require.NoError(t, err)

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 0, f.renderer.Maps())
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.ActiveLayers))
	assert.Nil(t, s.State().Map)

	_, err = s.Generate(ctx, 1985, 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Close(ctx))
}
