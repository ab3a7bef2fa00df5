package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var hexColorRe = regexp.MustCompile(`^#(?:[0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

// GradientEntry is one caller-supplied color, optionally pinned to a position.
type GradientEntry struct {
	Color    string
	Position *float64
}

// At returns an entry pinned to position.
func At(position float64, color string) GradientEntry {
	return GradientEntry{Color: color, Position: &position}
}

// GradientStop is a (position, color) point on the color ramp.
type GradientStop struct {
	Position float64 `json:"position"`
	Color    string  `json:"color"`
}

// Gradient is an ordered color ramp with strictly increasing positions,
// starting at 0 and ending at 1.
type Gradient []GradientStop

// DefaultGradientEntries is the blue-to-red rainfall colormap.
func DefaultGradientEntries() []GradientEntry {
	return []GradientEntry{
		At(0.1, "#0000FF"),
		At(0.3, "#00FFFF"),
		At(0.5, "#00FF00"),
		At(0.7, "#FFFF00"),
		At(0.9, "#FF0000"),
	}
}

// BuildGradient turns entries into a renderer-ready gradient.
//
// Entries without a position are placed evenly: across [0, 1] when no entry
// has one, otherwise between their positioned neighbours. Positions are
// clamped into [0, 1] and must then be strictly increasing. Missing endpoints
// are filled with synthetic stops repeating the first and last colors.
func BuildGradient(entries []GradientEntry) (Gradient, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no colors", ErrInvalidGradient)
	}
	for _, e := range entries {
		if !hexColorRe.MatchString(e.Color) {
			return nil, fmt.Errorf("%w: color %q is not #RGB or #RRGGBB", ErrInvalidGradient, e.Color)
		}
		if e.Position != nil && math.IsNaN(*e.Position) {
			return nil, fmt.Errorf("%w: position of %s is NaN", ErrInvalidGradient, e.Color)
		}
	}

	positions := resolvePositions(entries)
	for i := 1; i < len(positions); i++ {
		if positions[i] <= positions[i-1] {
			return nil, fmt.Errorf("%w: position %g of %s does not follow %g",
				ErrInvalidGradient, positions[i], entries[i].Color, positions[i-1])
		}
	}

	g := make(Gradient, 0, len(entries)+2)
	if positions[0] > 0 {
		g = append(g, GradientStop{Position: 0, Color: strings.ToUpper(entries[0].Color)})
	}
	for i, e := range entries {
		g = append(g, GradientStop{Position: positions[i], Color: strings.ToUpper(e.Color)})
	}
	if last := positions[len(positions)-1]; last < 1 {
		g = append(g, GradientStop{Position: 1, Color: strings.ToUpper(entries[len(entries)-1].Color)})
	}
	return g, nil
}

func resolvePositions(entries []GradientEntry) []float64 {
	n := len(entries)
	positions := make([]float64, n)

	var known []int
	for i, e := range entries {
		if e.Position != nil {
			positions[i] = clamp01(*e.Position)
			known = append(known, i)
		}
	}

	if len(known) == 0 {
		if n == 1 {
			return positions
		}
		for i := range positions {
			positions[i] = float64(i) / float64(n-1)
		}
		return positions
	}

	// Leading gap spreads from 0 up to the first pinned entry.
	first := known[0]
	for i := 0; i < first; i++ {
		positions[i] = positions[first] * float64(i) / float64(first)
	}
	for k := 1; k < len(known); k++ {
		a, b := known[k-1], known[k]
		for i := a + 1; i < b; i++ {
			positions[i] = positions[a] + (positions[b]-positions[a])*float64(i-a)/float64(b-a)
		}
	}
	// Trailing gap spreads from the last pinned entry up to 1.
	last := known[len(known)-1]
	for i := last + 1; i < n; i++ {
		positions[i] = positions[last] + (1-positions[last])*float64(i-last)/float64(n-1-last)
	}
	if last < n-1 {
		positions[n-1] = 1
	}
	return positions
}

// ParseGradientSpec parses a comma-separated list of colors, each optionally
// prefixed by "position:", e.g. "0.1:#0000FF,0.9:#FF0000" or "#00F,#F00".
func ParseGradientSpec(spec string) ([]GradientEntry, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("%w: empty gradient", ErrInvalidGradient)
	}

	parts := strings.Split(spec, ",")
	entries := make([]GradientEntry, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		pos, color, pinned := strings.Cut(part, ":")
		if !pinned {
			entries = append(entries, GradientEntry{Color: part})
			continue
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(pos), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: position %q: %w", ErrInvalidGradient, pos, err)
		}
		entries = append(entries, At(p, strings.TrimSpace(color)))
	}
	return entries, nil
}

// Positions returns the gradient keyed by formatted position, the shape heat
// layer renderers take.
func (g Gradient) Positions() map[string]string {
	m := make(map[string]string, len(g))
	for _, s := range g {
		m[strconv.FormatFloat(s.Position, 'f', -1, 64)] = s.Color
	}
	return m
}

// CSS renders the gradient as a left-to-right CSS linear-gradient.
func (g Gradient) CSS() string {
	var b strings.Builder
	b.WriteString("linear-gradient(to right")
	for _, s := range g {
		fmt.Fprintf(&b, ", %s %s%%", s.Color, strconv.FormatFloat(math.Round(s.Position*10000)/100, 'f', -1, 64))
	}
	b.WriteString(")")
	return b.String()
}
