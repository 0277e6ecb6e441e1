// Package waitfor implements condition polling with escalating interval,
// per spec §4.10.
package waitfor

import (
	"context"
	"fmt"
	"time"
)

// Options configures WaitFor. Zero values take the spec defaults:
// 30s timeout, 1s initial interval, 10s max interval.
type Options struct {
	Timeout     time.Duration
	Interval    time.Duration
	MaxInterval time.Duration
}

// DefaultOptions returns the spec's default polling parameters.
func DefaultOptions() Options {
	return Options{Timeout: 30 * time.Second, Interval: time.Second, MaxInterval: 10 * time.Second}
}

// WaitFor polls check until it returns true, waiting interval between
// calls and multiplying interval by 1.5 (capped at MaxInterval) after
// each attempt. Returns an error if Timeout elapses or ctx is cancelled
// first.
func WaitFor(ctx context.Context, opts Options, check func() (bool, error)) error {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = DefaultOptions().MaxInterval
	}

	deadline := time.Now().Add(opts.Timeout)
	interval := opts.Interval

	for {
		ok, err := check()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if !time.Now().Before(deadline) {
			return fmt.Errorf("waitfor: timed out after %s", opts.Timeout)
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}

		interval = time.Duration(float64(interval) * 1.5)
		if interval > opts.MaxInterval {
			interval = opts.MaxInterval
		}
	}
}
