package implementation

import (
	"context"

	"github.com/jt828/users-api/pkg/retry"
	goretry "github.com/sethvargo/go-retry"
)

type goRetry struct {
	maxRetries  uint64
	cfg         *retry.Config
	retryableFn func(err error) bool
}

func NewRetry(maxRetries uint64, opts ...retry.Option) retry.Retry {
	cfg := retry.ApplyOptions(opts...)

	return &goRetry{
		maxRetries:  maxRetries,
		cfg:         cfg,
		retryableFn: cfg.RetryableFn,
	}
}

// go-retry backoffs count attempts internally, so each call gets its own.
func (r *goRetry) backoff() goretry.Backoff {
	return goretry.WithMaxRetries(r.maxRetries, goretry.NewExponential(r.cfg.Interval))
}

func (r *goRetry) Execute(ctx context.Context, fn func() error) error {
	return goretry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		err := fn()
		if err == nil {
			return nil
		}

		if r.retryableFn != nil && !r.retryableFn(err) {
			return err
		}

		return goretry.RetryableError(err)
	})
}
