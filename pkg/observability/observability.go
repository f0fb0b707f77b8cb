package observability

import "context"

// Observability owns the process-wide logger, meter and tracer. It is built
// once at startup, started before the listener is bound and closed after the
// HTTP server has drained.
type Observability interface {
	Close(ctx context.Context) error
	Logger() Logger
	Meter() Meter
	Start(ctx context.Context) error
	Tracer() Tracer
}
