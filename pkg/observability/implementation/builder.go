package implementation

import (
	"context"

	"github.com/jt828/users-api/pkg/observability"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	ServiceName   string
	Environment   string
	LogLevel      string
	Console       bool
	Loki          LokiConfig
	TraceEndpoint string
}

func NewObservability(cfg Config) (observability.Observability, error) {
	meter := NewPrometheusMeter()

	// Shipping failures are reported on the console only; logging them
	// through the tee would feed them back into the sink that failed.
	console, err := NewZapLogger(LoggerConfig{Level: cfg.LogLevel, Console: cfg.Console})
	if err != nil {
		return nil, err
	}

	var (
		sink  *LokiSink
		sinks []zapcore.WriteSyncer
	)
	if cfg.Loki.URL != "" {
		lokiCfg := cfg.Loki
		if lokiCfg.Labels == nil {
			lokiCfg.Labels = map[string]string{"app": cfg.ServiceName, "env": cfg.Environment}
		}
		sink, err = NewLokiSink(lokiCfg, meter, func(err error) {
			console.Warn("log shipping failed", observability.Err(err))
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}

	log, err := NewZapLogger(LoggerConfig{Level: cfg.LogLevel, Console: cfg.Console}, sinks...)
	if err != nil {
		return nil, err
	}

	tracer, shutdown, err := NewOtelTracer(context.Background(), cfg.ServiceName, cfg.TraceEndpoint)
	if err != nil {
		return nil, err
	}

	return &observabilityImplementation{
		log:        log,
		meter:      meter,
		tracer:     tracer,
		sink:       sink,
		traceClose: shutdown,
	}, nil
}
