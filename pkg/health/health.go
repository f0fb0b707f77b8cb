package health

import (
	"context"
	"errors"
)

var ErrDraining = errors.New("server is shutting down")

// Dependency is an external system that must answer before the process is ready.
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

type Checker interface {
	// Ready returns nil when every dependency answered within the check timeout.
	Ready(ctx context.Context) error
	// Drain marks the process as not ready for the rest of its life.
	Drain()
}
