package repository

import (
	"context"
	"time"
)

// Locker is a best-effort distributed lock, used to serialize submit and
// redirect-finalize per session across processes. The in-process idempotency
// guard is the session status check; this covers duplicate callbacks landing
// on different instances.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
