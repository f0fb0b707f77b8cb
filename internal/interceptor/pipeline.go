package interceptor

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RequestObservation is the per-request record handed to every interceptor
// once the response is complete. It is never shared between requests.
type RequestObservation struct {
	Method     string
	Path       string
	URL        string
	Route      string
	StatusCode int
	Bytes      int
	RemoteAddr string
	Start      time.Time
	Duration   time.Duration
	Panicked   bool
}

// Interceptor has a pre hook (Intercept, called when the request is
// received) and a post hook (the returned function, called exactly once when
// the response completes, including when the handler panics).
type Interceptor interface {
	Intercept(r *http.Request) func(obs RequestObservation)
}

type InterceptorFunc func(r *http.Request) func(obs RequestObservation)

func (f InterceptorFunc) Intercept(r *http.Request) func(obs RequestObservation) {
	return f(r)
}

// Observe runs interceptors in order around next. Pre hooks run first to
// last, post hooks last to first, so the first interceptor is the outermost.
// It must be installed on the router itself so the route pattern is resolved
// by the time post hooks run.
func Observe(interceptors ...Interceptor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			obs := RequestObservation{
				Method:     r.Method,
				Path:       r.URL.Path,
				URL:        r.URL.RequestURI(),
				RemoteAddr: r.RemoteAddr,
				Start:      time.Now(),
			}

			hooks := make([]func(RequestObservation), 0, len(interceptors))
			for _, i := range interceptors {
				if hook := i.Intercept(r); hook != nil {
					hooks = append(hooks, hook)
				}
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				p := recover()

				obs.Duration = time.Since(obs.Start)
				obs.Route = RouteOf(r)
				obs.Bytes = ww.BytesWritten()
				obs.StatusCode = ww.Status()
				obs.Panicked = p != nil
				if obs.StatusCode == 0 {
					if obs.Panicked {
						obs.StatusCode = http.StatusInternalServerError
					} else {
						obs.StatusCode = http.StatusOK
					}
				}

				for i := len(hooks) - 1; i >= 0; i-- {
					hooks[i](obs)
				}

				if p != nil {
					panic(p)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// RouteOf returns the matched route pattern, or the raw path when routing
// did not match anything.
func RouteOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
