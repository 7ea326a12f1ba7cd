package utils

import (
	"context"
	"time"
)

// WaitFor pauses between submissions. It returns early with ctx.Err() when the
// command is interrupted.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
