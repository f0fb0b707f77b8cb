package implementation

import (
	"net/http"

	"github.com/jt828/users-api/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the meter's registry in the Prometheus text
// exposition format. Meters not backed by Prometheus get a 404 handler.
func MetricsHandler(m observability.Meter) http.Handler {
	reg := PromRegistry(m)
	if reg == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry: reg,
	})
}
