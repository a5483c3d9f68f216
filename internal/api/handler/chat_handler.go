package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/chatsync/internal/api/middleware"
	"github.com/d60-Lab/chatsync/pkg/response"
)

type createChatRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type sendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// CreateChat 查找或创建与某人的会话
// @Summary 打开会话（不存在则创建）
// @Tags 会话
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createChatRequest true "对方用户"
// @Success 200 {object} response.Response{data=model.Chat}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/chats [post]
func (h *Handler) CreateChat(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	chat, err := h.chatService.FindOrCreateChat(c.Request.Context(), middleware.UserID(c), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, chat)
}

// ListChats 我的会话列表
// @Summary 会话列表
// @Tags 会话
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.Chat}
// @Router /api/v1/chats [get]
func (h *Handler) ListChats(c *gin.Context) {
	chats, err := h.chatService.ListChats(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, chats)
}

// ListMessages 会话消息（时间升序）
// @Summary 消息列表
// @Tags 会话
// @Produce json
// @Security BearerAuth
// @Param chat_id path string true "会话ID"
// @Success 200 {object} response.Response{data=[]model.Message}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/chats/{chat_id}/messages [get]
func (h *Handler) ListMessages(c *gin.Context) {
	msgs, err := h.chatService.ListMessages(c.Request.Context(), c.Param("chat_id"), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msgs)
}

// SendMessage 发送消息
// @Summary 发送消息
// @Tags 会话
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param chat_id path string true "会话ID"
// @Param request body sendMessageRequest true "消息内容"
// @Success 201 {object} response.Response{data=model.Message}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/chats/{chat_id}/messages [post]
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msg, err := h.chatService.SendMessage(c.Request.Context(), c.Param("chat_id"), middleware.UserID(c), req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// MarkAsRead 标记会话已读
// @Summary 标记已读
// @Tags 会话
// @Produce json
// @Security BearerAuth
// @Param chat_id path string true "会话ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/chats/{chat_id}/read [post]
func (h *Handler) MarkAsRead(c *gin.Context) {
	if err := h.chatService.MarkAsRead(c.Request.Context(), c.Param("chat_id"), middleware.UserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
