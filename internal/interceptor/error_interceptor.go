package interceptor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jt828/users-api/pkg/apperror"
	"github.com/jt828/users-api/pkg/observability"
)

// HandlerFunc is a route handler that forwards failures instead of writing
// them itself.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorInterceptor adapts HandlerFunc to http.Handler. Returned errors and
// panics are logged and translated to a JSON error response.
func ErrorInterceptor(log observability.Logger) func(HandlerFunc) http.HandlerFunc {
	return func(handler HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					log.Error("panic recovered",
						observability.String("panic", fmt.Sprintf("%v", p)),
						observability.String("route", RouteOf(r)),
						observability.String("method", r.Method),
					)
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			err := handler(w, r)
			if err == nil {
				return
			}
			respondError(log, w, r, err)
		}
	}
}

// respondError logs every forwarded error at error level, then maps it to a
// status. Only the 5xx bodies hide the error detail.
func respondError(log observability.Logger, w http.ResponseWriter, r *http.Request, err error) {
	fields := []observability.Field{
		observability.Err(err),
		observability.String("route", RouteOf(r)),
		observability.String("method", r.Method),
	}

	switch {
	case errors.Is(err, apperror.ErrNotFound):
		log.Error("not found", fields...)
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperror.ErrInvalidArgument):
		log.Error("invalid request", fields...)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperror.ErrUnavailable):
		log.Error("dependency unavailable", fields...)
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		log.Error("unhandled error", fields...)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
