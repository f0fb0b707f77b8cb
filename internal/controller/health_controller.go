package controller

import (
	"net/http"

	"github.com/jt828/users-api/pkg/health"
	"github.com/jt828/users-api/pkg/observability"
)

type HealthController struct {
	checker health.Checker
	log     observability.Logger
}

func NewHealthController(checker health.Checker, log observability.Logger) *HealthController {
	return &HealthController{checker: checker, log: log}
}

func (ctrl *HealthController) Greeting(w http.ResponseWriter, _ *http.Request) error {
	writeText(w, http.StatusOK, "Hello, World!")
	return nil
}

// Liveness reports only that the process can answer; it never looks at dependencies.
func (ctrl *HealthController) Liveness(w http.ResponseWriter, _ *http.Request) error {
	writeText(w, http.StatusOK, "alive")
	return nil
}

// Readiness answers 503 while any dependency fails its check or the server
// is draining. Probers retry, so failures are logged at warn level.
func (ctrl *HealthController) Readiness(w http.ResponseWriter, r *http.Request) error {
	if err := ctrl.checker.Ready(r.Context()); err != nil {
		ctrl.log.Warn("readiness check failed", observability.Err(err))
		writeText(w, http.StatusServiceUnavailable, "not ready")
		return nil
	}
	writeText(w, http.StatusOK, "ready")
	return nil
}
