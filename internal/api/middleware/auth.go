package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
	"github.com/d60-Lab/chatsync/pkg/response"
	"github.com/d60-Lab/chatsync/pkg/utils"
)

const (
	ctxUserID        = "user_id"
	ctxEmailVerified = "email_verified"
)

// Auth 校验 Bearer 令牌；websocket 握手无法带头部，额外接受 access_token 查询参数
func Auth(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			response.Error(c, apperrors.ErrMissingToken)
			c.Abort()
			return
		}
		claims, err := utils.ValidateToken(token, secret, issuer)
		if err != nil {
			response.Error(c, apperrors.ErrInvalidToken)
			c.Abort()
			return
		}
		c.Set(ctxUserID, claims.Subject)
		c.Set(ctxEmailVerified, claims.EmailVerified)
		c.Next()
	}
}

// RequireVerifiedEmail 写操作要求邮箱已验证
func RequireVerifiedEmail() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ctxEmailVerified) {
			response.Error(c, apperrors.ErrEmailNotVerified)
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID 当前登录用户
func UserID(c *gin.Context) string { return c.GetString(ctxUserID) }

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
