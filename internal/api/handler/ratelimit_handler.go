package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/chatsync/internal/api/middleware"
	"github.com/d60-Lab/chatsync/pkg/response"
)

// QuotaReset 某个动作当前窗口剩余时间
// @Summary 查询限流重置时间
// @Tags 限流
// @Produce json
// @Security BearerAuth
// @Param action path string true "message / comment / groupCreate / search / notification"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/ratelimit/{action} [get]
func (h *Handler) QuotaReset(c *gin.Context) {
	action := c.Param("action")
	reset := h.limiter.ResetTime(c.Request.Context(), middleware.UserID(c), action)
	p := h.limiter.Policy(action)
	response.Success(c, gin.H{
		"action":       action,
		"reset_ms":     reset.Milliseconds(),
		"max_requests": p.MaxRequests,
		"window_ms":    p.Window.Milliseconds(),
	})
}
