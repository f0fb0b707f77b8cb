package interceptor

import (
	"net/http"
	"strconv"

	"github.com/jt828/users-api/pkg/observability"
)

var DefaultDurationBuckets = []float64{0.1, 0.5, 1, 1.5, 2, 5}

type durationInterceptor struct {
	timer    observability.Timer
	inFlight observability.Gauge
}

// DurationInterceptor records every request into http_request_duration_seconds
// labelled by method, route pattern and status code, and tracks in-flight
// requests.
func DurationInterceptor(meter observability.Meter, buckets ...float64) (Interceptor, error) {
	if len(buckets) == 0 {
		buckets = DefaultDurationBuckets
	}

	timer, err := meter.Timer("http_request_duration_seconds", observability.MetricOpt{
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   buckets,
		LabelKeys: []string{"method", "route", "status_code"},
		Unit:      "seconds",
	})
	if err != nil {
		return nil, err
	}

	inFlight, err := meter.Gauge("http_requests_in_flight", observability.MetricOpt{
		Help: "Number of HTTP requests currently being served",
	})
	if err != nil {
		return nil, err
	}

	return &durationInterceptor{timer: timer, inFlight: inFlight}, nil
}

func (d *durationInterceptor) Intercept(_ *http.Request) func(obs RequestObservation) {
	end := d.timer.Start()
	d.inFlight.Add(1)

	return func(obs RequestObservation) {
		d.inFlight.Add(-1)
		end(
			observability.Label{Key: "method", Value: obs.Method},
			observability.Label{Key: "route", Value: obs.Route},
			observability.Label{Key: "status_code", Value: strconv.Itoa(obs.StatusCode)},
		)
	}
}
