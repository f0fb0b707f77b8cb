package interceptor

import (
	"fmt"
	"net/http"

	"github.com/jt828/users-api/pkg/observability"
)

type accessLogInterceptor struct {
	log observability.Logger
}

// AccessLogInterceptor emits one info event per completed request.
func AccessLogInterceptor(log observability.Logger) Interceptor {
	return &accessLogInterceptor{log: log}
}

func (a *accessLogInterceptor) Intercept(_ *http.Request) func(obs RequestObservation) {
	return func(obs RequestObservation) {
		a.log.Info(fmt.Sprintf("HTTP %s %s %d", obs.Method, obs.URL, obs.StatusCode),
			observability.String("method", obs.Method),
			observability.String("url", obs.URL),
			observability.String("route", obs.Route),
			observability.Int("status_code", obs.StatusCode),
			observability.Duration("duration", obs.Duration),
			observability.Int("bytes", obs.Bytes),
			observability.String("remote_addr", obs.RemoteAddr),
		)
	}
}
