package implementation

import (
	"github.com/jt828/users-api/pkg/circuitbreaker"
	"github.com/jt828/users-api/pkg/observability"
)

// CircuitStateGauge registers a gauge holding the breaker state
// (0 closed, 1 half-open, 2 open) and returns the listener that updates it.
func CircuitStateGauge(meter observability.Meter, metricName string) (circuitbreaker.StateChangeFunc, error) {
	g, err := meter.Gauge(metricName, observability.MetricOpt{
		Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open",
	})
	if err != nil {
		return nil, err
	}
	g.Set(float64(circuitbreaker.Closed))

	return func(_ string, _, to circuitbreaker.State) {
		g.Set(float64(to))
	}, nil
}
