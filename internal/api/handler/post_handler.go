package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/chatsync/internal/api/middleware"
	"github.com/d60-Lab/chatsync/internal/service"
	"github.com/d60-Lab/chatsync/pkg/response"
)

type publishRequest struct {
	Kind     string `json:"kind" binding:"required,oneof=video reel"`
	Caption  string `json:"caption" binding:"max=2200"`
	MediaURL string `json:"media_url" binding:"required,url"`
	AssetID  string `json:"asset_id"`
}

type commentRequest struct {
	Text string `json:"text" binding:"required"`
}

// PublishPost 发布视频 / reel
// @Summary 发布内容
// @Tags 内容
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body publishRequest true "内容"
// @Success 201 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) PublishPost(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.postService.Publish(c.Request.Context(), middleware.UserID(c), service.PostInput{
		Kind:     req.Kind,
		Caption:  req.Caption,
		MediaURL: req.MediaURL,
		AssetID:  req.AssetID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

// GetPost 内容详情
// @Summary 内容详情
// @Tags 内容
// @Produce json
// @Security BearerAuth
// @Param post_id path string true "内容ID"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	p, err := h.postService.Get(c.Request.Context(), c.Param("post_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// ListUserPosts 某用户发布的内容
// @Summary 用户内容列表
// @Tags 内容
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users/{user_id}/posts [get]
func (h *Handler) ListUserPosts(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, err := h.postService.ListByAuthor(c.Request.Context(), c.Param("user_id"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// CommentPost 评论
// @Summary 发表评论
// @Tags 内容
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param post_id path string true "内容ID"
// @Param request body commentRequest true "评论"
// @Success 201 {object} response.Response{data=model.Comment}
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/posts/{post_id}/comments [post]
func (h *Handler) CommentPost(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cm, err := h.postService.Comment(c.Request.Context(), c.Param("post_id"), middleware.UserID(c), req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cm)
}

// ListComments 评论列表
// @Summary 评论列表
// @Tags 内容
// @Produce json
// @Security BearerAuth
// @Param post_id path string true "内容ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/posts/{post_id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, err := h.postService.ListComments(c.Request.Context(), c.Param("post_id"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// LikePost 点赞（幂等）
// @Summary 点赞
// @Tags 内容
// @Produce json
// @Security BearerAuth
// @Param post_id path string true "内容ID"
// @Success 200 {object} response.Response{data=map[string]bool}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/like [post]
func (h *Handler) LikePost(c *gin.Context) {
	first, err := h.postService.Like(c.Request.Context(), c.Param("post_id"), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"liked": true, "first": first})
}
