package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertWellFormed(t *testing.T, g Gradient) {
	t.Helper()
	require.NotEmpty(t, g)
	assert.Equal(t, 0.0, g[0].Position)
	assert.Equal(t, 1.0, g[len(g)-1].Position)
	for i := 1; i < len(g); i++ {
		assert.Greater(t, g[i].Position, g[i-1].Position, "stop %d", i)
	}
}

func TestBuildGradient_DefaultColormap(t *testing.T) {
	g, err := BuildGradient(DefaultGradientEntries())
	require.NoError(t, err)
	assertWellFormed(t, g)

	want := Gradient{
		{Position: 0, Color: "#0000FF"},
		{Position: 0.1, Color: "#0000FF"},
		{Position: 0.3, Color: "#00FFFF"},
		{Position: 0.5, Color: "#00FF00"},
		{Position: 0.7, Color: "#FFFF00"},
		{Position: 0.9, Color: "#FF0000"},
		{Position: 1, Color: "#FF0000"},
	}
	if diff := cmp.Diff(want, g); diff != "" {
		t.Fatalf("gradient mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildGradient_EvenlySpaced(t *testing.T) {
	g, err := BuildGradient([]GradientEntry{
		{Color: "#0000ff"}, {Color: "#00FF00"}, {Color: "#FFFF00"}, {Color: "#F00"}, {Color: "#FFFFFF"},
	})
	require.NoError(t, err)
	assertWellFormed(t, g)

	require.Len(t, g, 5)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, []float64{g[0].Position, g[1].Position, g[2].Position, g[3].Position, g[4].Position})
	assert.Equal(t, "#0000FF", g[0].Color)
	assert.Equal(t, "#F00", g[3].Color)
}

func TestBuildGradient_SingleColor(t *testing.T) {
	g, err := BuildGradient([]GradientEntry{{Color: "#123456"}})
	require.NoError(t, err)
	assertWellFormed(t, g)
	assert.Equal(t, Gradient{{0, "#123456"}, {1, "#123456"}}, g)
}

func TestBuildGradient_PartialPositions(t *testing.T) {
	g, err := BuildGradient([]GradientEntry{
		{Color: "#000000"},
		At(0.4, "#111111"),
		{Color: "#222222"},
		At(0.8, "#333333"),
		{Color: "#444444"},
	})
	require.NoError(t, err)
	assertWellFormed(t, g)

	got := make([]float64, len(g))
	for i, s := range g {
		got[i] = s.Position
	}
	assert.InDeltaSlice(t, []float64{0, 0.4, 0.6, 0.8, 1}, got, 1e-12)
}

func TestBuildGradient_ClampsPositions(t *testing.T) {
	g, err := BuildGradient([]GradientEntry{At(-0.5, "#000000"), At(0.5, "#777777"), At(1.5, "#FFFFFF")})
	require.NoError(t, err)
	assertWellFormed(t, g)
	assert.Len(t, g, 3)
}

func TestBuildGradient_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		entries []GradientEntry
	}{
		{"empty", nil},
		{"bad color", []GradientEntry{{Color: "blue"}}},
		{"descending", []GradientEntry{At(0.6, "#000000"), At(0.4, "#FFFFFF")}},
		{"duplicate", []GradientEntry{At(0.5, "#000000"), At(0.5, "#FFFFFF")}},
		{"both clamp to one", []GradientEntry{At(1.2, "#000000"), At(1.7, "#FFFFFF")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildGradient(tt.entries)
			require.ErrorIs(t, err, ErrInvalidGradient)
		})
	}
}

func TestParseGradientSpec(t *testing.T) {
	t.Run("pinned", func(t *testing.T) {
		entries, err := ParseGradientSpec("0.1:#0000FF, 0.9:#FF0000")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "#0000FF", entries[0].Color)
		require.NotNil(t, entries[0].Position)
		assert.Equal(t, 0.1, *entries[0].Position)
	})

	t.Run("bare colors", func(t *testing.T) {
		entries, err := ParseGradientSpec("#00F,#0F0,#F00")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Nil(t, entries[1].Position)
	})

	t.Run("bad position", func(t *testing.T) {
		_, err := ParseGradientSpec("x:#00F")
		require.ErrorIs(t, err, ErrInvalidGradient)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseGradientSpec("  ")
		require.ErrorIs(t, err, ErrInvalidGradient)
	})
}

func TestGradient_Renderings(t *testing.T) {
	g := Gradient{{0, "#0000FF"}, {0.5, "#00FF00"}, {1, "#FF0000"}}

	assert.Equal(t, map[string]string{"0": "#0000FF", "0.5": "#00FF00", "1": "#FF0000"}, g.Positions())
	assert.Equal(t, "linear-gradient(to right, #0000FF 0%, #00FF00 50%, #FF0000 100%)", g.CSS())
}
