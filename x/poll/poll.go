// Package poll waits for a condition by checking it on a fixed interval.
package poll

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidInterval = errors.New("poll interval must be positive")

// Until calls cond immediately and then once per interval until it returns
// true or ctx ends. onWait, if set, runs before each sleep, e.g. to print
// "Waiting for receiver".
func Until(ctx context.Context, interval time.Duration, cond func() bool, onWait func()) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if cond() {
			return nil
		}
		if onWait != nil {
			onWait()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
