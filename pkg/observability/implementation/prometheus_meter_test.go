package implementation_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jt828/users-api/pkg/observability"
	"github.com/jt828/users-api/pkg/observability/implementation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samples(t *testing.T, m observability.Meter) map[string]float64 {
	t.Helper()
	seq, err := m.Snapshot()
	require.NoError(t, err)

	out := make(map[string]float64)
	for s := range seq {
		line := s.String()
		name := line[:strings.LastIndexByte(line, ' ')]
		out[name] = s.Value
	}
	return out
}

func TestPrometheusMeter_DuplicateName(t *testing.T) {
	m := implementation.NewPrometheusMeter()

	_, err := m.Counter("requests_total")
	require.NoError(t, err)

	_, err = m.Counter("requests_total")
	assert.ErrorIs(t, err, observability.ErrDuplicateMetricName)

	_, err = m.Histogram("requests_total")
	assert.ErrorIs(t, err, observability.ErrDuplicateMetricName)

	_, err = m.Gauge("go_goroutines")
	assert.ErrorIs(t, err, observability.ErrDuplicateMetricName)
}

func TestPrometheusMeter_DefaultCollectors(t *testing.T) {
	m := implementation.NewPrometheusMeter()

	got := samples(t, m)
	assert.Contains(t, got, "go_goroutines")
	assert.Greater(t, got["go_goroutines"], float64(0))
}

func TestPrometheusMeter_ConcurrentCounter(t *testing.T) {
	m := implementation.NewPrometheusMeter()
	c, err := m.Counter("jobs_total", observability.MetricOpt{LabelKeys: []string{"kind"}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc(1, observability.Label{Key: "kind", Value: "a"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(5000), samples(t, m)[`jobs_total{kind="a"}`])
}

func TestPrometheusMeter_Gauge(t *testing.T) {
	m := implementation.NewPrometheusMeter()
	g, err := m.Gauge("queue_depth", observability.MetricOpt{LabelKeys: []string{"queue"}})
	require.NoError(t, err)

	q := observability.Label{Key: "queue", Value: "logs"}
	g.Set(10, q)
	g.Add(-3, q)

	assert.Equal(t, float64(7), samples(t, m)[`queue_depth{queue="logs"}`])
}

func TestPrometheusMeter_HistogramSnapshot(t *testing.T) {
	m := implementation.NewPrometheusMeter()
	h, err := m.Histogram("latency_seconds", observability.MetricOpt{Buckets: []float64{0.1, 1}})
	require.NoError(t, err)

	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(3)

	got := samples(t, m)
	assert.Equal(t, float64(1), got[`latency_seconds_bucket{le="0.1"}`])
	assert.Equal(t, float64(2), got[`latency_seconds_bucket{le="1"}`])
	assert.Equal(t, float64(3), got[`latency_seconds_bucket{le="+Inf"}`])
	assert.Equal(t, float64(3), got["latency_seconds_count"])
	assert.InDelta(t, 3.55, got["latency_seconds_sum"], 1e-9)
}

func TestPrometheusMeter_TimerRecordsOnce(t *testing.T) {
	m := implementation.NewPrometheusMeter()
	timer, err := m.Timer("op_duration_seconds", observability.MetricOpt{
		Buckets:   []float64{0.1, 0.5, 1, 1.5, 2, 5},
		LabelKeys: []string{"method", "route", "status_code"},
	})
	require.NoError(t, err)

	end := timer.Start()
	labels := []observability.Label{
		{Key: "method", Value: "GET"},
		{Key: "route", Value: "/users"},
		{Key: "status_code", Value: "200"},
	}
	end(labels...)
	end(labels...)

	got := samples(t, m)
	assert.Equal(t, float64(1), got[`op_duration_seconds_count{method="GET",route="/users",status_code="200"}`])
	assert.Equal(t, float64(1), got[`op_duration_seconds_bucket{le="0.1",method="GET",route="/users",status_code="200"}`])
}

func TestPrometheusMeter_SnapshotStopsEarly(t *testing.T) {
	m := implementation.NewPrometheusMeter()
	seq, err := m.Snapshot()
	require.NoError(t, err)

	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestMetricsHandler(t *testing.T) {
	m := implementation.NewPrometheusMeter()
	c, err := m.Counter("users_created_total", observability.MetricOpt{Help: "Users created"})
	require.NoError(t, err)
	c.Inc(2)

	rec := httptest.NewRecorder()
	implementation.MetricsHandler(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	body := rec.Body.String()
	assert.Contains(t, body, "# HELP users_created_total Users created")
	assert.Contains(t, body, "users_created_total 2")
	assert.Contains(t, body, "go_goroutines")
}

func TestSnapshot_MatchesExposition(t *testing.T) {
	m := implementation.NewPrometheusMeter()
	c, err := m.Counter("users_created_total", observability.MetricOpt{LabelKeys: []string{"route"}})
	require.NoError(t, err)
	h, err := m.Histogram("users_payload_bytes", observability.MetricOpt{Buckets: []float64{0.5, 1}})
	require.NoError(t, err)

	c.Inc(3, observability.Label{Key: "route", Value: "/users"})
	h.Observe(0.25)
	h.Observe(2)

	rec := httptest.NewRecorder()
	implementation.MetricsHandler(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	seq, err := m.Snapshot()
	require.NoError(t, err)
	n := 0
	for s := range seq {
		if !strings.HasPrefix(s.Name, "users_") {
			continue
		}
		n++
		assert.Contains(t, body, s.String()+"\n")
	}
	// counter + 3 buckets + sum + count
	assert.Equal(t, 6, n)
}
