package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/chatsync/internal/api/middleware"
	"github.com/d60-Lab/chatsync/internal/service"
	"github.com/d60-Lab/chatsync/pkg/response"
)

type profileRequest struct {
	Username    string `json:"username" binding:"required"`
	CustomID    string `json:"custom_id"`
	DisplayName string `json:"display_name" binding:"max=64"`
	AvatarURL   string `json:"avatar_url" binding:"omitempty,url"`
	Email       string `json:"email" binding:"omitempty,email"`
}

// UpsertProfile 创建或更新自己的资料
// @Summary 更新个人资料
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body profileRequest true "资料"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/users/me [put]
func (h *Handler) UpsertProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.userService.UpsertProfile(c.Request.Context(), middleware.UserID(c), req.Email, service.ProfileInput{
		Username:    req.Username,
		CustomID:    req.CustomID,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, u)
}

// GetProfile 查询用户资料
// @Summary 查询用户资料
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "用户ID"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{user_id} [get]
func (h *Handler) GetProfile(c *gin.Context) {
	u, err := h.userService.GetProfile(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, u)
}

// SearchUsers 按用户名或自定义 ID 前缀搜索
// @Summary 搜索用户
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param q query string true "搜索词（前缀，不区分大小写）"
// @Success 200 {object} response.Response{data=[]model.User}
// @Failure 429 {object} response.Response
// @Router /api/v1/users/search [get]
func (h *Handler) SearchUsers(c *gin.Context) {
	users, err := h.searchService.SearchUsers(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, users)
}
