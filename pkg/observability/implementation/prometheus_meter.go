package implementation

import (
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/jt828/users-api/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
)

type prometheusMeter struct {
	registry *prometheus.Registry

	mu    sync.Mutex
	names map[string]struct{}
}

func NewPrometheusMeter() observability.Meter {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &prometheusMeter{
		registry: reg,
		names:    make(map[string]struct{}),
	}
}

func (m *prometheusMeter) Registry() *prometheus.Registry {
	return m.registry
}

func PromRegistry(m observability.Meter) *prometheus.Registry {
	if pm, ok := m.(*prometheusMeter); ok {
		return pm.Registry()
	}
	return nil
}

func (m *prometheusMeter) register(name string, c prometheus.Collector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.names[name]; ok {
		return fmt.Errorf("metric %q: %w", name, observability.ErrDuplicateMetricName)
	}
	if err := m.registry.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return fmt.Errorf("metric %q: %w", name, observability.ErrDuplicateMetricName)
		}
		return fmt.Errorf("metric %q: %w", name, err)
	}
	m.names[name] = struct{}{}
	return nil
}

// -------------------- Counter --------------------

type promCounter struct {
	vec *prometheus.CounterVec
}

func (m *prometheusMeter) Counter(name string, opts ...observability.MetricOpt) (observability.Counter, error) {
	opt := firstOpt(opts)

	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        name,
			Help:        helpOrName(opt.Help, name),
			ConstLabels: toPromConstLabels(opt.ConstLabels),
		},
		opt.LabelKeys,
	)

	if err := m.register(name, vec); err != nil {
		return nil, err
	}
	return &promCounter{vec: vec}, nil
}

func (c *promCounter) Inc(v float64, labels ...observability.Label) {
	if len(labels) == 0 {
		c.vec.WithLabelValues().Add(v)
		return
	}
	c.vec.With(toPromLabelsMap(labels)).Add(v)
}

// -------------------- Histogram --------------------

type promHistogram struct {
	vec *prometheus.HistogramVec
}

func (m *prometheusMeter) Histogram(name string, opts ...observability.MetricOpt) (observability.Histogram, error) {
	opt := firstOpt(opts)

	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        name,
			Help:        helpOrName(opt.Help, name),
			Buckets:     opt.Buckets,
			ConstLabels: toPromConstLabels(opt.ConstLabels),
		},
		opt.LabelKeys,
	)

	if err := m.register(name, vec); err != nil {
		return nil, err
	}
	return &promHistogram{vec: vec}, nil
}

func (h *promHistogram) Observe(v float64, labels ...observability.Label) {
	if len(labels) == 0 {
		h.vec.WithLabelValues().Observe(v)
		return
	}
	h.vec.With(toPromLabelsMap(labels)).Observe(v)
}

// -------------------- Gauge --------------------

type promGauge struct {
	vec *prometheus.GaugeVec
}

func (m *prometheusMeter) Gauge(name string, opts ...observability.MetricOpt) (observability.Gauge, error) {
	opt := firstOpt(opts)

	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        name,
			Help:        helpOrName(opt.Help, name),
			ConstLabels: toPromConstLabels(opt.ConstLabels),
		},
		opt.LabelKeys,
	)

	if err := m.register(name, vec); err != nil {
		return nil, err
	}
	return &promGauge{vec: vec}, nil
}

func (g *promGauge) Set(v float64, labels ...observability.Label) {
	if len(labels) == 0 {
		g.vec.WithLabelValues().Set(v)
		return
	}
	g.vec.With(toPromLabelsMap(labels)).Set(v)
}

func (g *promGauge) Add(v float64, labels ...observability.Label) {
	if len(labels) == 0 {
		g.vec.WithLabelValues().Add(v)
		return
	}
	g.vec.With(toPromLabelsMap(labels)).Add(v)
}

// -------------------- Timer --------------------

type promTimer struct {
	histogram *prometheus.HistogramVec
}

func (m *prometheusMeter) Timer(name string, opts ...observability.MetricOpt) (observability.Timer, error) {
	opt := firstOpt(opts)

	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        name,
			Help:        helpOrName(opt.Help, name),
			Buckets:     opt.Buckets,
			ConstLabels: toPromConstLabels(opt.ConstLabels),
		},
		opt.LabelKeys,
	)

	if err := m.register(name, vec); err != nil {
		return nil, err
	}
	return &promTimer{histogram: vec}, nil
}

func (t *promTimer) Start() func(labels ...observability.Label) {
	start := time.Now()
	var once sync.Once
	return func(labels ...observability.Label) {
		once.Do(func() {
			t.histogram.With(toPromLabelsMap(labels)).Observe(time.Since(start).Seconds())
		})
	}
}

// -------------------- Snapshot --------------------

// Snapshot reads the same Registry.Gather() that MetricsHandler serves, so a
// sample seen here matches the /metrics exposition at that instant.
func (m *prometheusMeter) Snapshot() (iter.Seq[observability.MetricSample], error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	return func(yield func(observability.MetricSample) bool) {
		for _, mf := range families {
			for _, metric := range mf.GetMetric() {
				for _, s := range toSamples(mf, metric) {
					if !yield(s) {
						return
					}
				}
			}
		}
	}, nil
}

func toSamples(mf *dto.MetricFamily, metric *dto.Metric) []observability.MetricSample {
	name := mf.GetName()
	labels := make(map[string]string, len(metric.GetLabel()))
	for _, lp := range metric.GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}

	switch mf.GetType() {
	case dto.MetricType_COUNTER:
		return []observability.MetricSample{{Name: name, Labels: labels, Value: metric.GetCounter().GetValue(), Type: observability.MetricTypeCounter}}
	case dto.MetricType_GAUGE:
		return []observability.MetricSample{{Name: name, Labels: labels, Value: metric.GetGauge().GetValue(), Type: observability.MetricTypeGauge}}
	case dto.MetricType_HISTOGRAM:
		h := metric.GetHistogram()
		out := make([]observability.MetricSample, 0, len(h.GetBucket())+3)
		for _, b := range h.GetBucket() {
			out = append(out, observability.MetricSample{
				Name:   name + "_bucket",
				Labels: withLabel(labels, "le", observability.FormatValue(b.GetUpperBound())),
				Value:  float64(b.GetCumulativeCount()),
				Type:   observability.MetricTypeHistogram,
			})
		}
		out = append(out,
			observability.MetricSample{Name: name + "_bucket", Labels: withLabel(labels, "le", "+Inf"), Value: float64(h.GetSampleCount()), Type: observability.MetricTypeHistogram},
			observability.MetricSample{Name: name + "_sum", Labels: labels, Value: h.GetSampleSum(), Type: observability.MetricTypeHistogram},
			observability.MetricSample{Name: name + "_count", Labels: labels, Value: float64(h.GetSampleCount()), Type: observability.MetricTypeHistogram},
		)
		return out
	case dto.MetricType_SUMMARY:
		s := metric.GetSummary()
		out := make([]observability.MetricSample, 0, len(s.GetQuantile())+2)
		for _, q := range s.GetQuantile() {
			out = append(out, observability.MetricSample{
				Name:   name,
				Labels: withLabel(labels, "quantile", observability.FormatValue(q.GetQuantile())),
				Value:  q.GetValue(),
				Type:   observability.MetricTypeSummary,
			})
		}
		out = append(out,
			observability.MetricSample{Name: name + "_sum", Labels: labels, Value: s.GetSampleSum(), Type: observability.MetricTypeSummary},
			observability.MetricSample{Name: name + "_count", Labels: labels, Value: float64(s.GetSampleCount()), Type: observability.MetricTypeSummary},
		)
		return out
	default:
		return []observability.MetricSample{{Name: name, Labels: labels, Value: metric.GetUntyped().GetValue(), Type: observability.MetricTypeUntyped}}
	}
}

func withLabel(labels map[string]string, k, v string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for lk, lv := range labels {
		out[lk] = lv
	}
	out[k] = v
	return out
}

// -------------------- Helpers --------------------

func firstOpt(opts []observability.MetricOpt) observability.MetricOpt {
	if len(opts) == 0 {
		return observability.MetricOpt{}
	}
	return opts[0]
}

func helpOrName(help, name string) string {
	if help == "" {
		return name
	}
	return help
}

func toPromLabelsMap(labels []observability.Label) prometheus.Labels {
	m := make(prometheus.Labels, len(labels))
	for _, l := range labels {
		m[l.Key] = l.Value
	}
	return m
}

func toPromConstLabels(labels []observability.Label) prometheus.Labels {
	if len(labels) == 0 {
		return nil
	}
	return toPromLabelsMap(labels)
}
