package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New()

	m.RecordCache(CacheRender, true)
	m.RecordCache(CacheRender, false)
	m.RecordCache(CacheRender, false)
	m.RecordFallback()
	m.ObserveRender(PathCompose, 10*time.Millisecond)
	m.RecordExport("png", nil)
	m.RecordExport("svg", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues(CacheRender, "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues(CacheRender, "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RenderFallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exports.WithLabelValues("png", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exports.WithLabelValues("svg", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RenderDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCache(CacheResize, true)
		m.RecordFallback()
		m.ObserveRender(PathFast, time.Second)
		m.RecordExport("png", nil)
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RecordFallback()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "qrstudio_render_fallbacks_total 1")
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordFallback()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RenderFallbacks))
}
