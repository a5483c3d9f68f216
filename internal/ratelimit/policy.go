// Package ratelimit implements the fixed-window quotas that gate
// client-initiated actions (messages, comments, searches, notifications,
// group creation).
//
// A window starts on the first admitted call for a key and lasts Window.
// Because counters reset at window boundaries rather than sliding, a caller
// can be admitted up to 2×MaxRequests times in a span shorter than Window
// when the calls straddle a boundary.
package ratelimit

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/chatsync/config"
)

// Policy is the quota for one action.
type Policy struct {
	MaxRequests int           `validate:"gt=0"`
	Window      time.Duration `validate:"gt=0"`
}

// Action names.
const (
	ActionMessage      = "message"
	ActionComment      = "comment"
	ActionGroupCreate  = "groupCreate"
	ActionSearch       = "search"
	ActionNotification = "notification"
)

// DefaultPolicy applies to actions without an explicit policy.
var DefaultPolicy = Policy{MaxRequests: 5, Window: 5 * time.Second}

// DefaultPolicies returns a fresh copy of the built-in per-action policies.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		ActionMessage:      {MaxRequests: 3, Window: 2 * time.Second},
		ActionComment:      {MaxRequests: 5, Window: 10 * time.Second},
		ActionGroupCreate:  {MaxRequests: 1, Window: 30 * time.Second},
		ActionSearch:       {MaxRequests: 10, Window: 10 * time.Second},
		ActionNotification: {MaxRequests: 5, Window: 5 * time.Second},
	}
}

// PoliciesFromConfig merges configured policies over the defaults. Viper
// lower-cases map keys, so lookups are case-insensitive.
func PoliciesFromConfig(cfg config.RateLimitConfig) (map[string]Policy, Policy, error) {
	v := validator.New()

	policies := DefaultPolicies()
	for action, pc := range cfg.Policies {
		p := Policy{MaxRequests: pc.MaxRequests, Window: pc.Window}
		if err := v.Struct(p); err != nil {
			return nil, Policy{}, err
		}
		for known := range policies {
			if strings.EqualFold(known, action) {
				delete(policies, known)
			}
		}
		policies[action] = p
	}

	def := DefaultPolicy
	if cfg.Default.MaxRequests > 0 || cfg.Default.Window > 0 {
		def = Policy{MaxRequests: cfg.Default.MaxRequests, Window: cfg.Default.Window}
		if err := v.Struct(def); err != nil {
			return nil, Policy{}, err
		}
	}
	return policies, def, nil
}
