package implementation

import (
	"github.com/jt828/users-api/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
)

type gobreakerCircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

// NewCircuitBreaker wraps gobreaker. Listeners run after any OnStateChange
// already present in settings.
func NewCircuitBreaker(settings gobreaker.Settings, listeners ...circuitbreaker.StateChangeFunc) circuitbreaker.CircuitBreaker {
	if len(listeners) > 0 {
		prev := settings.OnStateChange
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			if prev != nil {
				prev(name, from, to)
			}
			for _, l := range listeners {
				l(name, toState(from), toState(to))
			}
		}
	}
	return &gobreakerCircuitBreaker{
		cb: gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (g *gobreakerCircuitBreaker) Execute(fn func() (any, error)) (any, error) {
	return g.cb.Execute(fn)
}

func (g *gobreakerCircuitBreaker) State() circuitbreaker.State {
	return toState(g.cb.State())
}

func toState(s gobreaker.State) circuitbreaker.State {
	switch s {
	case gobreaker.StateHalfOpen:
		return circuitbreaker.HalfOpen
	case gobreaker.StateOpen:
		return circuitbreaker.Open
	default:
		return circuitbreaker.Closed
	}
}
