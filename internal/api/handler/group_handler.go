package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/chatsync/internal/api/middleware"
	"github.com/d60-Lab/chatsync/internal/service"
	"github.com/d60-Lab/chatsync/pkg/response"
)

type createGroupRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=1000"`
	Private     bool   `json:"private"`
}

type inviteRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// CreateGroup 建群
// @Summary 创建群组
// @Tags 群组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createGroupRequest true "群信息"
// @Success 201 {object} response.Response{data=model.Group}
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/groups [post]
func (h *Handler) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	g, err := h.groupService.Create(c.Request.Context(), middleware.UserID(c), service.GroupInput{
		Name:        req.Name,
		Description: req.Description,
		Private:     req.Private,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, g)
}

// GetGroup 群详情
// @Summary 群组详情
// @Tags 群组
// @Produce json
// @Security BearerAuth
// @Param group_id path string true "群ID"
// @Success 200 {object} response.Response{data=model.Group}
// @Failure 404 {object} response.Response
// @Router /api/v1/groups/{group_id} [get]
func (h *Handler) GetGroup(c *gin.Context) {
	g, err := h.groupService.Get(c.Request.Context(), c.Param("group_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, g)
}

// ListGroupMembers 群成员
// @Summary 群成员列表
// @Tags 群组
// @Produce json
// @Security BearerAuth
// @Param group_id path string true "群ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/groups/{group_id}/members [get]
func (h *Handler) ListGroupMembers(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, err := h.groupService.ListMembers(c.Request.Context(), c.Param("group_id"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// InviteToGroup 群主邀请
// @Summary 邀请入群
// @Tags 群组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param group_id path string true "群ID"
// @Param request body inviteRequest true "被邀请人"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/groups/{group_id}/invite [post]
func (h *Handler) InviteToGroup(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.groupService.Invite(c.Request.Context(), c.Param("group_id"), middleware.UserID(c), req.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// JoinGroup 加群
// @Summary 加入群组
// @Tags 群组
// @Produce json
// @Security BearerAuth
// @Param group_id path string true "群ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/groups/{group_id}/join [post]
func (h *Handler) JoinGroup(c *gin.Context) {
	if err := h.groupService.Join(c.Request.Context(), c.Param("group_id"), middleware.UserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// LeaveGroup 退群
// @Summary 退出群组
// @Tags 群组
// @Produce json
// @Security BearerAuth
// @Param group_id path string true "群ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/groups/{group_id}/leave [post]
func (h *Handler) LeaveGroup(c *gin.Context) {
	if err := h.groupService.Leave(c.Request.Context(), c.Param("group_id"), middleware.UserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
