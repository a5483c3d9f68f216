package middleware

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/chatsync/internal/ratelimit"
	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
	"github.com/d60-Lab/chatsync/pkg/logger"
	"github.com/d60-Lab/chatsync/pkg/response"
)

// RequireQuota 按当前用户检查某个动作的固定窗口配额，超限返回 429
func RequireQuota(limiter *ratelimit.Limiter, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := UserID(c)
		if scope == "" {
			scope = "ip:" + c.ClientIP()
		}
		if limiter.Check(c.Request.Context(), scope, action) {
			c.Next()
			return
		}
		reset := limiter.ResetTime(c.Request.Context(), scope, action)
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(reset.Seconds()))))
		logger.Debug("quota exceeded", zap.String("scope", scope), zap.String("action", action), zap.Duration("reset", reset))
		response.TooManyRequests(c, apperrors.ErrRateLimitExceeded.Error(), gin.H{
			"action":   action,
			"reset_ms": reset.Milliseconds(),
		})
		c.Abort()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter 每个客户端 IP 一个令牌桶，保护整个 API
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
}

func NewIPRateLimiter(ctx context.Context, perSecond float64, burst int) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	rl := &IPRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idle:     3 * time.Minute,
	}
	go rl.cleanup(ctx)
	return rl
}

func (rl *IPRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()
	return v.limiter.Allow()
}

func (rl *IPRateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastSeen) > rl.idle {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware 超限直接 429
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			response.TooManyRequests(c, apperrors.ErrRateLimitExceeded.Error(), nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
