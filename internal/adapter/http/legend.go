package http

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/couchcryptid/rainfall-heatmap-service/internal/domain"
)

var legendTmpl = template.Must(template.New("legend").Parse(`<div class="legend">
<div class="legend-title">Rainfall, {{.Title}}</div>
<div class="legend-bar" style="background: {{.Background}}"></div>
<div class="legend-labels"><span>{{printf "%.2f" .Min}}</span><span>{{printf "%.2f" .Max}}</span></div>
{{- if .Degenerate}}
<div class="legend-note">Every cell recorded {{printf "%.2f" .Min}}</div>
{{- end}}
</div>`))

type legendData struct {
	Title      string
	Background template.CSS
	Min        float64
	Max        float64
	Degenerate bool
}

// renderLegend builds the legend fragment for h: a color bar matching the
// heat layer's gradient, labelled with the raw rainfall range.
func renderLegend(h domain.Heatmap) (string, error) {
	var buf bytes.Buffer
	err := legendTmpl.Execute(&buf, legendData{
		Title:      h.Label(),
		Background: template.CSS(h.Gradient.CSS()), //nolint:gosec // built from validated hex colors
		Min:        h.Min,
		Max:        h.Max,
		Degenerate: h.Degenerate,
	})
	if err != nil {
		return "", fmt.Errorf("render legend: %w", err)
	}
	return buf.String(), nil
}
