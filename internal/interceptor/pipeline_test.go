package interceptor_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jt828/users-api/internal/interceptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	name   string
	events *[]string
	seen   *[]interceptor.RequestObservation
}

func (r recorder) Intercept(_ *http.Request) func(obs interceptor.RequestObservation) {
	*r.events = append(*r.events, "pre:"+r.name)
	return func(obs interceptor.RequestObservation) {
		*r.events = append(*r.events, "post:"+r.name)
		*r.seen = append(*r.seen, obs)
	}
}

func newRouter(interceptors ...interceptor.Interceptor) chi.Router {
	r := chi.NewRouter()
	r.Use(interceptor.Observe(interceptors...))
	return r
}

func TestObserve_HookOrder(t *testing.T) {
	var events []string
	var seen []interceptor.RequestObservation

	r := newRouter(
		recorder{name: "a", events: &events, seen: &seen},
		recorder{name: "b", events: &events, seen: &seen},
	)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		events = append(events, "handler")
		_, _ = w.Write([]byte("Hello, World!"))
	})

	rec := serve(r, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"pre:a", "pre:b", "handler", "post:b", "post:a"}, events)
}

func TestObserve_Observation(t *testing.T) {
	var events []string
	var seen []interceptor.RequestObservation

	r := newRouter(recorder{name: "a", events: &events, seen: &seen})
	r.Post("/users", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"name":"Ada"}`))
	})

	serve(r, http.MethodPost, "/users?trace=1")

	require.Len(t, seen, 1)
	obs := seen[0]
	assert.Equal(t, http.MethodPost, obs.Method)
	assert.Equal(t, "/users", obs.Path)
	assert.Equal(t, "/users?trace=1", obs.URL)
	assert.Equal(t, "/users", obs.Route)
	assert.Equal(t, http.StatusCreated, obs.StatusCode)
	assert.Equal(t, len(`{"name":"Ada"}`), obs.Bytes)
	assert.GreaterOrEqual(t, obs.Duration, 5*time.Millisecond)
	assert.False(t, obs.Panicked)
}

func TestObserve_RoutePatternNotRawPath(t *testing.T) {
	var events []string
	var seen []interceptor.RequestObservation

	r := newRouter(recorder{name: "a", events: &events, seen: &seen})
	r.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {})

	serve(r, http.MethodGet, "/users/1234")
	serve(r, http.MethodGet, "/users/5678")

	require.Len(t, seen, 2)
	assert.Equal(t, "/users/{id}", seen[0].Route)
	assert.Equal(t, "/users/{id}", seen[1].Route)
}

func TestObserve_UnmatchedRouteFallsBackToPath(t *testing.T) {
	var events []string
	var seen []interceptor.RequestObservation

	r := newRouter(recorder{name: "a", events: &events, seen: &seen})
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {})

	rec := serve(r, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.Len(t, seen, 1)
	assert.Equal(t, "/nope", seen[0].Route)
	assert.Equal(t, http.StatusNotFound, seen[0].StatusCode)
}

func TestObserve_DefaultsTo200WhenNothingWritten(t *testing.T) {
	var events []string
	var seen []interceptor.RequestObservation

	r := newRouter(recorder{name: "a", events: &events, seen: &seen})
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {})

	serve(r, http.MethodGet, "/")
	require.Len(t, seen, 1)
	assert.Equal(t, http.StatusOK, seen[0].StatusCode)
}

func TestObserve_PostHookRunsOnceOnPanic(t *testing.T) {
	var events []string
	var seen []interceptor.RequestObservation

	r := newRouter(recorder{name: "a", events: &events, seen: &seen})
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		panic("boom")
	})

	assert.PanicsWithValue(t, "boom", func() {
		serve(r, http.MethodGet, "/boom")
	})

	require.Len(t, seen, 1)
	assert.True(t, seen[0].Panicked)
	assert.Equal(t, http.StatusInternalServerError, seen[0].StatusCode)
	assert.Equal(t, "/boom", seen[0].Route)
	assert.Equal(t, 1, strings.Count(strings.Join(events, ","), "post:a"))
}

func TestObserve_NilHookIsSkipped(t *testing.T) {
	called := false
	r := newRouter(
		interceptor.InterceptorFunc(func(*http.Request) func(interceptor.RequestObservation) { return nil }),
		interceptor.InterceptorFunc(func(*http.Request) func(interceptor.RequestObservation) {
			return func(interceptor.RequestObservation) { called = true }
		}),
	)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {})

	serve(r, http.MethodGet, "/")
	assert.True(t, called)
}
