package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jt828/users-api/internal/controller"
	"github.com/jt828/users-api/internal/interceptor"
	"github.com/jt828/users-api/pkg/observability"
	obsImpl "github.com/jt828/users-api/pkg/observability/implementation"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var untracedPaths = map[string]struct{}{
	"/metrics": {},
	"/healthz": {},
	"/ready":   {},
}

// NewRouter assembles the HTTP surface. Every request, including unmatched
// ones, passes through the access log and duration interceptors.
func NewRouter(
	serviceName string,
	obs observability.Observability,
	userCtrl *controller.UserController,
	healthCtrl *controller.HealthController,
) (http.Handler, error) {
	log := obs.Logger()

	duration, err := interceptor.DurationInterceptor(obs.Meter())
	if err != nil {
		return nil, err
	}
	handle := interceptor.ErrorInterceptor(log)

	router := chi.NewRouter()
	router.Use(interceptor.Observe(
		interceptor.AccessLogInterceptor(log),
		duration,
		interceptor.TraceInterceptor(),
	))

	// Unmatched requests are answered directly and appear in the access log only.
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "route "+r.Method+" "+r.URL.Path+": not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.Method(http.MethodGet, "/metrics", obsImpl.MetricsHandler(obs.Meter()))
	router.Get("/", handle(healthCtrl.Greeting))
	router.Get("/healthz", handle(healthCtrl.Liveness))
	router.Get("/ready", handle(healthCtrl.Readiness))

	router.Post("/users", handle(userCtrl.CreateUser))
	router.Get("/users", handle(userCtrl.ListUsers))
	router.Get("/users/{id}", handle(userCtrl.GetUserById))

	return otelhttp.NewHandler(router, serviceName,
		otelhttp.WithFilter(func(r *http.Request) bool {
			_, skip := untracedPaths[strings.TrimSuffix(r.URL.Path, "/")]
			return !skip
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method
		}),
	), nil
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(interceptor.ErrorResponse{Error: message})
}
