// Package ratelimit decides whether a caller may make another request.
//
// Two backends share the Limiter interface:
//
//	Memory → token bucket per key, in process (golang.org/x/time/rate)
//	Redis  → fixed window per key, shared by every instance
//
// Keys are opaque to the limiter; the HTTP middleware uses the client IP.
package ratelimit

import (
	"context"
	"time"
)

// Limiter answers "may key make one more request now?".
//
// When allowed is false, retryAfter is how long the caller should wait. A
// non-nil error means the backend could not answer at all.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RetryAfterSeconds rounds d up to whole seconds for the Retry-After header.
// Never returns less than 1, so a client told to wait always waits.
func RetryAfterSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	return sec
}
