package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/chatsync/internal/media"
	"github.com/d60-Lab/chatsync/pkg/response"
)

const (
	defaultMaxUploadBytes = 100 << 20

	// 表单字段与 multipart 边界的余量
	multipartOverhead = 64 << 10
)

// UploadMedia 上传媒体文件，返回可用于发布的地址
// @Summary 上传媒体
// @Tags 内容
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "文件"
// @Param resource_type formData string false "image 或 video，缺省按文件类型推断"
// @Success 201 {object} response.Response{data=media.Asset}
// @Failure 400 {object} response.Response
// @Failure 413 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/media [post]
func (h *Handler) UploadMedia(c *gin.Context) {
	// 解析表单之前先限制请求体大小
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.PayloadTooLarge(c, "file is too large")
			return
		}
		response.BadRequest(c, "file is required")
		return
	}
	if fh.Size > h.maxUploadBytes {
		response.PayloadTooLarge(c, "file is too large")
		return
	}
	resourceType := c.PostForm("resource_type")
	if resourceType == "" {
		resourceType = media.ResourceImage
		if strings.HasPrefix(fh.Header.Get("Content-Type"), "video/") {
			resourceType = media.ResourceVideo
		}
	}
	if resourceType != media.ResourceImage && resourceType != media.ResourceVideo {
		response.BadRequest(c, "resource_type must be image or video")
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer f.Close()

	asset, err := h.uploader.Upload(c.Request.Context(), f, fh.Filename, resourceType)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, asset)
}
