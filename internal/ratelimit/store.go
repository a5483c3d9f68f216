package ratelimit

import (
	"context"
	"time"
)

// Store keeps one fixed-window counter per key.
//
// Allow admits and records a call, or reports that the window's quota is
// spent. ResetIn reports how long until the key's window ends, zero when the
// key is unknown or its window has elapsed. Neither method fails: stores
// that depend on a remote backend degrade to admitting calls.
type Store interface {
	Allow(ctx context.Context, key string, p Policy) bool
	ResetIn(ctx context.Context, key string) time.Duration
}
