package implementation

import (
	"context"

	"github.com/jt828/users-api/pkg/observability"
)

type observabilityImplementation struct {
	log    observability.Logger
	meter  observability.Meter
	tracer observability.Tracer

	sink       *LokiSink
	traceClose func(context.Context) error
}

// Close makes the final log flush and shuts the tracer down. Both are bounded
// by ctx; the first error is returned.
func (o *observabilityImplementation) Close(ctx context.Context) error {
	var err error
	if o.sink != nil {
		err = o.sink.Close(ctx)
	}
	if o.traceClose != nil {
		if e := o.traceClose(ctx); err == nil {
			err = e
		}
	}
	return err
}
func (o *observabilityImplementation) Logger() observability.Logger { return o.log }
func (o *observabilityImplementation) Meter() observability.Meter   { return o.meter }
func (o *observabilityImplementation) Start(ctx context.Context) error {
	if o.sink != nil {
		o.sink.Start()
	}
	return nil
}
func (o *observabilityImplementation) Tracer() observability.Tracer { return o.tracer }

// LokiSinkOf exposes the remote log sink, or nil when shipping is disabled.
func LokiSinkOf(o observability.Observability) *LokiSink {
	if oi, ok := o.(*observabilityImplementation); ok {
		return oi.sink
	}
	return nil
}

// CloseWithError logs msg at error level and closes o within ctx so the event
// is shipped before the caller exits. Use it instead of Logger().Fatal on exit
// paths: LokiSink.Sync does not deliver.
func CloseWithError(ctx context.Context, o observability.Observability, msg string, fields ...observability.Field) error {
	o.Logger().Error(msg, fields...)
	return o.Close(ctx)
}
