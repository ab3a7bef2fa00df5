package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/rainfall-heatmap-service/internal/domain"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// DatasetLoader retrieves and parses the rainfall dataset.
type DatasetLoader interface {
	LoadDataset(ctx context.Context) (*domain.Dataset, error)
}

// Pipeline turns a year/month into a normalized heatmap: it validates the
// month, loads the dataset, selects valid rows, normalizes rainfall and
// attaches the gradient.
type Pipeline struct {
	loader   DatasetLoader
	calendar domain.Calendar
	gradient domain.Gradient
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// New creates a Pipeline reading through loader.
func New(loader DatasetLoader, calendar domain.Calendar, gradient domain.Gradient, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		loader:   loader,
		calendar: calendar,
		gradient: gradient,
		logger:   logger,
		metrics:  metrics,
	}
}

// Calendar returns the dataset layout the pipeline reads with.
func (p *Pipeline) Calendar() domain.Calendar { return p.calendar }

// CheckReadiness returns nil once the dataset has been loaded successfully,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}

// Generate builds the heatmap for year/month. Errors wrap one of
// domain.ErrOutOfRange, domain.ErrFetch, domain.ErrParse or
// domain.ErrNoValidData.
func (p *Pipeline) Generate(ctx context.Context, year, month int) (domain.Heatmap, error) {
	// Reject impossible months before touching the dataset.
	if _, err := p.calendar.Column(year, month); err != nil {
		return domain.Heatmap{}, err
	}

	ds, err := p.loader.LoadDataset(ctx)
	if err != nil {
		return domain.Heatmap{}, fmt.Errorf("load dataset: %w", err)
	}
	p.ready.Store(true)

	h, err := domain.BuildHeatmap(ds, p.calendar, year, month, p.gradient)
	if err != nil {
		return domain.Heatmap{}, err
	}

	if h.Degenerate {
		p.metrics.DegenerateMonths.Inc()
		p.logger.Debug("uniform rainfall, using neutral intensity",
			"column", h.Column,
			"value", h.Min,
			"points", len(h.Points),
		)
	}
	return h, nil
}

// DatasetInfo summarizes the loaded dataset.
type DatasetInfo struct {
	Rows      int               `json:"rows"`
	Columns   int               `json:"columns"`
	LatColumn string            `json:"lat_column"`
	LonColumn string            `json:"lon_column"`
	Span      *domain.MonthSpan `json:"span,omitempty"`
	First     string            `json:"first_month,omitempty"`
	Last      string            `json:"last_month,omitempty"`
}

// Describe loads the dataset and reports its shape and month span.
func (p *Pipeline) Describe(ctx context.Context) (DatasetInfo, error) {
	ds, err := p.loader.LoadDataset(ctx)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("load dataset: %w", err)
	}
	p.ready.Store(true)

	info := DatasetInfo{
		Rows:      len(ds.Rows),
		Columns:   len(ds.Columns),
		LatColumn: p.calendar.LatColumn,
		LonColumn: p.calendar.LonColumn,
	}
	if span, ok := p.calendar.Span(ds); ok {
		info.Span = &span
		info.First = domain.Label(p.calendar.MonthOf(span.First))
		info.Last = domain.Label(p.calendar.MonthOf(span.Last))
	}
	return info, nil
}

// WarmUp loads the dataset until it succeeds or ctx is cancelled, marking the
// pipeline ready on success.
func (p *Pipeline) WarmUp(ctx context.Context) error {
	// Exponential backoff: start at 200ms, double each retry, cap at 30s.
	backoff := 200 * time.Millisecond
	maxBackoff := 30 * time.Second

	for {
		ds, err := p.loader.LoadDataset(ctx)
		if err == nil {
			p.ready.Store(true)
			p.logger.Info("dataset ready", "rows", len(ds.Rows), "columns", len(ds.Columns))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Warn("dataset load failed, retrying", "error", err, "backoff", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}
