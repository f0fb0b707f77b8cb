package observability

import (
	"errors"
	"iter"
)

var ErrDuplicateMetricName = errors.New("duplicate metric name")

// Meter registers instruments by name. Every constructor fails with
// ErrDuplicateMetricName when the name is already taken.
type Meter interface {
	Counter(name string, opts ...MetricOpt) (Counter, error)
	Histogram(name string, opts ...MetricOpt) (Histogram, error)
	Gauge(name string, opts ...MetricOpt) (Gauge, error)
	Timer(name string, opts ...MetricOpt) (Timer, error)
	Snapshot() (iter.Seq[MetricSample], error)
}

type Counter interface {
	Inc(v float64, labels ...Label)
}

type Histogram interface {
	Observe(v float64, labels ...Label)
}

type Gauge interface {
	Set(v float64, labels ...Label)
	Add(v float64, labels ...Label)
}

// Timer measures elapsed seconds into a histogram. The function returned by
// Start records one observation with the labels given at completion.
type Timer interface {
	Start() func(labels ...Label)
}
