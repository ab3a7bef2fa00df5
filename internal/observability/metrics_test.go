package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnregisteredMetrics(t *testing.T) {
	m := NewUnregisteredMetrics()
	m.DatasetLoads.WithLabelValues("success").Inc()
	m.DatasetRows.Set(12)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatasetLoads.WithLabelValues("success")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.DatasetRows))

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, f := range families {
		assert.False(t, strings.HasPrefix(f.GetName(), namespace+"_"), "%s leaked into the default registry", f.GetName())
	}
}
