package implementation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jt828/users-api/pkg/health"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type checker struct {
	timeout  time.Duration
	deps     []health.Dependency
	draining atomic.Bool
	group    singleflight.Group
}

func NewChecker(timeout time.Duration, deps ...health.Dependency) health.Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &checker{timeout: timeout, deps: deps}
}

func (c *checker) Drain() {
	c.draining.Store(true)
}

// Ready pings every dependency concurrently. Probes arriving while a check is
// running share its result.
func (c *checker) Ready(ctx context.Context) error {
	if c.draining.Load() {
		return health.ErrDraining
	}

	ch := c.group.DoChan("ready", func() (any, error) {
		return nil, c.check(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *checker) check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	errs := make([]error, len(c.deps))
	var g errgroup.Group
	for i, dep := range c.deps {
		g.Go(func() error {
			if err := ping(ctx, dep); err != nil {
				errs[i] = fmt.Errorf("%s: %w", dep.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// ping bounds a dependency check by ctx even when Ping ignores cancellation.
func ping(ctx context.Context, dep health.Dependency) error {
	done := make(chan error, 1)
	go func() { done <- dep.Ping(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
