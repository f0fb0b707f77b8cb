package interceptor_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jt828/users-api/internal/interceptor"
	"github.com/jt828/users-api/pkg/apperror"
	"github.com/jt828/users-api/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body interceptor.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestErrorInterceptor(t *testing.T) {
	failWith := func(err error) interceptor.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error { return err }
	}

	t.Run("no error passes through unchanged", func(t *testing.T) {
		log := &mockLogger{}
		h := interceptor.ErrorInterceptor(log)(func(w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return nil
		})

		rec := serve(h, http.MethodGet, "/")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
		assert.Empty(t, log.calls)
	})

	t.Run("forwarded client errors are logged at error level", func(t *testing.T) {
		tests := []struct {
			name     string
			method   string
			target   string
			err      error
			wantCode int
			wantMsg  string
			wantBody string
		}{
			{
				name:     "wrapped ErrNotFound",
				method:   http.MethodGet,
				target:   "/users/42",
				err:      fmt.Errorf("user 42: %w", apperror.ErrNotFound),
				wantCode: http.StatusNotFound,
				wantMsg:  "not found",
				wantBody: "user 42: not found",
			},
			{
				name:     "wrapped ErrInvalidArgument",
				method:   http.MethodPost,
				target:   "/users",
				err:      fmt.Errorf("name is required: %w", apperror.ErrInvalidArgument),
				wantCode: http.StatusBadRequest,
				wantMsg:  "invalid request",
				wantBody: "name is required: invalid argument",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				log := &mockLogger{}
				h := interceptor.ErrorInterceptor(log)(failWith(tt.err))

				rec := serve(h, tt.method, tt.target)
				assert.Equal(t, tt.wantCode, rec.Code)
				assert.Equal(t, tt.wantBody, errorBody(t, rec))

				calls := log.at(observability.ErrorLevel)
				require.Len(t, calls, 1)
				assert.Equal(t, tt.wantMsg, calls[0].msg)
				assert.Contains(t, calls[0].fields, observability.Err(tt.err))
				assert.Contains(t, calls[0].fields, observability.String("route", tt.target))
				assert.Contains(t, calls[0].fields, observability.String("method", tt.method))
				assert.Empty(t, log.at(observability.WarnLevel))
			})
		}
	})

	t.Run("ErrUnavailable maps to 503", func(t *testing.T) {
		log := &mockLogger{}
		h := interceptor.ErrorInterceptor(log)(failWith(fmt.Errorf("database: %w", apperror.ErrUnavailable)))

		rec := serve(h, http.MethodGet, "/users")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "service unavailable", errorBody(t, rec))
		require.Len(t, log.at(observability.ErrorLevel), 1)
		assert.Equal(t, "dependency unavailable", log.at(observability.ErrorLevel)[0].msg)
	})

	t.Run("unknown error maps to 500 with generic message", func(t *testing.T) {
		log := &mockLogger{}
		h := interceptor.ErrorInterceptor(log)(failWith(errors.New("database exploded")))

		rec := serve(h, http.MethodGet, "/users")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal server error", errorBody(t, rec))
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})

	t.Run("unknown error logs with error route and method fields", func(t *testing.T) {
		log := &mockLogger{}
		unknownErr := errors.New("some internal failure")
		h := interceptor.ErrorInterceptor(log)(failWith(unknownErr))

		serve(h, http.MethodPost, "/users")

		calls := log.at(observability.ErrorLevel)
		require.Len(t, calls, 1)
		assert.Equal(t, "unhandled error", calls[0].msg)
		assert.Contains(t, calls[0].fields, observability.Err(unknownErr))
		assert.Contains(t, calls[0].fields, observability.String("route", "/users"))
		assert.Contains(t, calls[0].fields, observability.String("method", http.MethodPost))
	})

	t.Run("panic is recovered into a 500", func(t *testing.T) {
		log := &mockLogger{}
		h := interceptor.ErrorInterceptor(log)(func(w http.ResponseWriter, r *http.Request) error {
			panic("nil map write")
		})

		rec := serve(h, http.MethodGet, "/boom")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		calls := log.at(observability.ErrorLevel)
		require.Len(t, calls, 1)
		assert.Equal(t, "panic recovered", calls[0].msg)
		assert.Contains(t, calls[0].fields, observability.String("panic", "nil map write"))
	})

	t.Run("ErrAbortHandler is re-panicked", func(t *testing.T) {
		h := interceptor.ErrorInterceptor(&mockLogger{})(func(w http.ResponseWriter, r *http.Request) error {
			panic(http.ErrAbortHandler)
		})

		assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
			serve(h, http.MethodGet, "/")
		})
	})
}
