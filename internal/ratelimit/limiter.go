package ratelimit

import (
	"context"
	"strings"
	"time"
)

// Limiter resolves an action's policy and checks it against a Store. Keys are
// scoped by caller so that two sessions never share a bucket.
type Limiter struct {
	store    Store
	policies map[string]Policy
	fallback Policy
}

// NewLimiter builds a Limiter; nil policies means DefaultPolicies.
func NewLimiter(store Store, policies map[string]Policy, fallback Policy) *Limiter {
	if policies == nil {
		policies = DefaultPolicies()
	}
	if fallback.MaxRequests <= 0 || fallback.Window <= 0 {
		fallback = DefaultPolicy
	}
	normalized := make(map[string]Policy, len(policies))
	for k, p := range policies {
		normalized[strings.ToLower(k)] = p
	}
	return &Limiter{store: store, policies: normalized, fallback: fallback}
}

// Policy returns the quota that applies to action.
func (l *Limiter) Policy(action string) Policy {
	if p, ok := l.policies[strings.ToLower(action)]; ok {
		return p
	}
	return l.fallback
}

// Check admits and records one call of action for scope.
func (l *Limiter) Check(ctx context.Context, scope, action string) bool {
	return l.store.Allow(ctx, Key(scope, action), l.Policy(action))
}

// CheckWith admits against an explicit policy instead of the configured one.
func (l *Limiter) CheckWith(ctx context.Context, scope, action string, p Policy) bool {
	return l.store.Allow(ctx, Key(scope, action), p)
}

// ResetTime is the time left in the current window, or zero.
func (l *Limiter) ResetTime(ctx context.Context, scope, action string) time.Duration {
	return l.store.ResetIn(ctx, Key(scope, action))
}

// Key joins scope and action.
func Key(scope, action string) string {
	return scope + ":" + action
}
