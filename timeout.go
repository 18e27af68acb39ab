package aiwire

import (
	"context"
	"time"
)

// applyTimeout wraps ctx with a deadline when d is positive. The returned
// cancel is always non-nil so callers can defer it unconditionally.
func applyTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return ctx, func() {}
}
