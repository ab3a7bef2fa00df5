// Command genmock writes a deterministic synthetic rainfall CSV in the layout
// the heatmap service reads: latitude and longitude columns followed by one
// rainfall column per month. Cells are laid out on a grid around the default
// map center, and rainfall follows a seasonal curve with noise.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/Rainfall_Data.csv -months 36
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/rainfall-heatmap-service/internal/domain"
)

type options struct {
	out        string
	grid       int
	step       float64
	centerLat  float64
	centerLon  float64
	firstIndex int
	months     int
	missing    float64
	seed       uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var o options
	flag.StringVar(&o.out, "out", "", "output path for the generated CSV")
	flag.IntVar(&o.grid, "grid", 20, "cells per side of the square grid")
	flag.Float64Var(&o.step, "step", 0.0125, "grid spacing in degrees")
	flag.Float64Var(&o.centerLat, "center-lat", 33.75, "grid center latitude")
	flag.Float64Var(&o.centerLon, "center-lon", -112.125, "grid center longitude")
	flag.IntVar(&o.firstIndex, "first-index", 3, "column index of the first month written")
	flag.IntVar(&o.months, "months", 24, "number of monthly columns")
	flag.Float64Var(&o.missing, "missing", 0.02, "fraction of rainfall cells left blank")
	flag.Uint64Var(&o.seed, "seed", 1984, "random seed")
	flag.Parse()

	if o.out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if o.grid < 1 || o.months < 1 {
		return fmt.Errorf("-grid and -months must be positive")
	}

	cal := domain.DefaultCalendar()
	if name := cal.ColumnName(o.firstIndex); o.firstIndex < 0 || name == cal.LatColumn || name == cal.LonColumn {
		return fmt.Errorf("-first-index %d collides with a coordinate column", o.firstIndex)
	}

	if err := os.MkdirAll(filepath.Dir(o.out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(o.out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	rows, err := write(f, cal, o)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	fy, fm := cal.MonthOf(o.firstIndex)
	ly, lm := cal.MonthOf(o.firstIndex + o.months - 1)
	log.Printf("wrote %s: %d rows, %s to %s", o.out, rows, domain.Label(fy, fm), domain.Label(ly, lm))
	return nil
}

func write(f *os.File, cal domain.Calendar, o options) (int, error) {
	rng := rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))
	w := csv.NewWriter(f)

	header := []string{cal.LatColumn, cal.LonColumn}
	for i := 0; i < o.months; i++ {
		header = append(header, cal.ColumnName(o.firstIndex+i))
	}
	if err := w.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	half := float64(o.grid-1) / 2
	rows := 0
	record := make([]string, len(header))
	for r := 0; r < o.grid; r++ {
		for c := 0; c < o.grid; c++ {
			lat := o.centerLat + (float64(r)-half)*o.step
			lon := o.centerLon + (float64(c)-half)*o.step
			record[0] = strconv.FormatFloat(lat, 'f', 4, 64)
			record[1] = strconv.FormatFloat(lon, 'f', 4, 64)

			// Wetter toward the north-east corner.
			bias := 1 + 0.5*(float64(r)+float64(c))/float64(2*o.grid)
			for i := 0; i < o.months; i++ {
				if rng.Float64() < o.missing {
					record[2+i] = ""
					continue
				}
				_, month := cal.MonthOf(o.firstIndex + i)
				record[2+i] = strconv.FormatFloat(rainfall(month, bias, rng), 'f', 2, 64)
			}
			if err := w.Write(record); err != nil {
				return rows, fmt.Errorf("write row: %w", err)
			}
			rows++
		}
	}

	w.Flush()
	return rows, w.Error()
}

// rainfall returns a monthly total in inches: a late-summer monsoon peak and a
// smaller winter peak, scaled by bias, plus noise.
func rainfall(month int, bias float64, rng *rand.Rand) float64 {
	monsoon := 1.2 * math.Exp(-math.Pow(float64(month-8), 2)/2)
	winter := 0.6 * math.Exp(-math.Pow(math.Mod(float64(month+1), 12)-1, 2)/3)
	v := (0.15 + monsoon + winter) * bias * (0.7 + 0.6*rng.Float64())
	return math.Round(v*100) / 100
}
