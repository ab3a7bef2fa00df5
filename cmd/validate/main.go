// Command validate loads a rainfall dataset through the service's own loader
// and parser and checks that every month it covers can be rendered: the
// header carries the coordinate columns, coordinates are valid, the monthly
// columns have no gaps and each month has at least one valid cell.
//
// Dataset layout is read from the same environment variables as the service.
//
// Usage:
//
//	go run ./cmd/validate -source data/mock/Rainfall_Data.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/rainfall-heatmap-service/internal/adapter/source"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/config"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/domain"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/observability"
)

// maxListed caps the detail lines printed per phase.
const maxListed = 20

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: config: %v\n", err)
		os.Exit(1)
	}

	src := flag.String("source", cfg.DataSource, "dataset path or URL")
	timeout := flag.Duration("timeout", cfg.FetchTimeout, "fetch timeout")
	flag.Parse()

	cal := domain.Calendar{
		StartYear:  cfg.StartYear,
		StartMonth: cfg.StartMonth,
		Prefix:     cfg.ColumnPrefix,
		LatColumn:  cfg.LatColumn,
		LonColumn:  cfg.LonColumn,
	}
	os.Exit(run(*src, *timeout, cal))
}

func run(src string, timeout time.Duration, cal domain.Calendar) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loader := source.NewLoader(source.NewFetcher(src, timeout, logger), logger, observability.NewUnregisteredMetrics())

	fmt.Println("=== Rainfall Dataset Validation ===")
	fmt.Printf("Source: %s\n\n", src)

	ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Second)
	defer cancel()

	ds, err := loader.LoadDataset(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dataset (%s): %v\n", domain.ErrorKind(err), err)
		return 1
	}

	header := validateHeader(ds, cal)
	phases := []*phase{header}
	if header.passed() {
		span, ok := cal.Span(ds)
		coverage := validateCoverage(ds, cal, span, ok)
		phases = append(phases, validateCoordinates(ds, cal), coverage)
		if ok {
			phases = append(phases, validateMonths(ds, cal, span))
			fmt.Printf("Months: %s (%d columns)\n", cal.DescribeSpan(span), span.Columns)
		}
	}
	fmt.Printf("Rows: %d, columns: %d\n\n", len(ds.Rows), len(ds.Columns))

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-32s %s\n", p.name, status)
	}

	// Print detailed errors and notes.
	for _, p := range phases {
		if p.passed() && len(p.notes) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		printList("error", p.errors)
		printList("note", p.notes)
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func printList(label string, items []string) {
	for i, s := range items {
		if i == maxListed {
			fmt.Printf("  ... %d more\n", len(items)-maxListed)
			return
		}
		fmt.Printf("  [%s %d] %s\n", label, i+1, s)
	}
}

// validateHeader checks that both coordinate columns are declared.
func validateHeader(ds *domain.Dataset, cal domain.Calendar) *phase {
	p := &phase{name: "Header"}
	for _, col := range []string{cal.LatColumn, cal.LonColumn} {
		if !ds.HasColumn(col) {
			p.errorf("coordinate column %s is missing", col)
		}
	}
	if len(ds.Rows) == 0 {
		p.errorf("dataset has no data rows")
	}
	return p
}

// validateCoordinates checks every row for a usable WGS-84 position.
func validateCoordinates(ds *domain.Dataset, cal domain.Calendar) *phase {
	p := &phase{name: "Coordinates"}
	for i, row := range ds.Rows {
		lat, lon := row.Value(cal.LatColumn), row.Value(cal.LonColumn)
		switch {
		case math.IsNaN(lat) || math.IsNaN(lon):
			p.notef("row %d: missing coordinates, skipped for every month", i+1)
		case lat < -90 || lat > 90 || lon < -180 || lon > 180:
			p.errorf("row %d: (%g, %g) is not a valid coordinate", i+1, lat, lon)
		}
	}
	return p
}

// validateCoverage checks that the monthly columns form a contiguous run.
func validateCoverage(ds *domain.Dataset, cal domain.Calendar, span domain.MonthSpan, ok bool) *phase {
	p := &phase{name: "Month coverage"}
	if !ok {
		p.errorf("no %s<index> rainfall columns found", cal.Prefix)
		return p
	}
	for i := span.First; i <= span.Last; i++ {
		name := cal.ColumnName(i)
		if name == cal.LatColumn || name == cal.LonColumn {
			continue
		}
		if !ds.HasColumn(name) {
			p.errorf("%s (%s) is missing", name, domain.Label(cal.MonthOf(i)))
		}
	}
	return p
}

// validateMonths builds every month's heatmap the way the service does.
func validateMonths(ds *domain.Dataset, cal domain.Calendar, span domain.MonthSpan) *phase {
	p := &phase{name: "Monthly data"}
	g, err := domain.BuildGradient(domain.DefaultGradientEntries())
	if err != nil {
		p.errorf("default gradient: %v", err)
		return p
	}

	for i := span.First; i <= span.Last; i++ {
		year, month := cal.MonthOf(i)
		if !ds.HasColumn(cal.ColumnName(i)) {
			continue
		}
		h, err := domain.BuildHeatmap(ds, cal, year, month, g)
		switch {
		case errors.Is(err, domain.ErrOutOfRange):
			continue
		case err != nil:
			p.errorf("%s: %v", domain.Label(year, month), err)
		case h.Degenerate:
			p.notef("%s: every cell recorded %.2f", domain.Label(year, month), h.Min)
		case len(h.Points) < len(ds.Rows):
			p.notef("%s: %d of %d rows usable", domain.Label(year, month), len(h.Points), len(ds.Rows))
		}
	}
	return p
}
