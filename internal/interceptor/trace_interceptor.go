package interceptor

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type traceInterceptor struct{}

// TraceInterceptor renames the server span started by otelhttp to
// "METHOD route" once routing is done and records the outcome on it.
func TraceInterceptor() Interceptor {
	return traceInterceptor{}
}

func (traceInterceptor) Intercept(r *http.Request) func(obs RequestObservation) {
	span := trace.SpanFromContext(r.Context())
	if !span.IsRecording() {
		return nil
	}

	return func(obs RequestObservation) {
		span.SetName(obs.Method + " " + obs.Route)
		span.SetAttributes(
			attribute.String("http.route", obs.Route),
			attribute.Int("http.response.status_code", obs.StatusCode),
		)
		if obs.StatusCode >= http.StatusInternalServerError || obs.Panicked {
			span.SetStatus(codes.Error, http.StatusText(obs.StatusCode))
		}
	}
}
