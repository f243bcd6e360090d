package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCount flags a goroutine leak once the count passes threshold.
func GoroutineCount(threshold int) Check {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("%d goroutines, threshold %d", n, threshold)
		}
		return nil
	}
}

// Ping adapts any pinger (such as a pgx pool) into a readiness Check.
func Ping(p interface {
	Ping(ctx context.Context) error
}) Check {
	return p.Ping
}
