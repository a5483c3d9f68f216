package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/chatsync/internal/media"
	"github.com/d60-Lab/chatsync/internal/ratelimit"
	"github.com/d60-Lab/chatsync/internal/service"
)

// Services 处理器依赖的业务服务
type Services struct {
	Chats         *service.ChatService
	Users         *service.UserService
	Search        *service.SearchService
	Notifications *service.NotificationService
	Groups        *service.GroupService
	Posts         *service.PostService
	Uploader      media.Uploader
	Limiter       *ratelimit.Limiter

	// MaxUploadBytes 单个媒体文件上限，0 表示 100MB
	MaxUploadBytes int64
}

// Handler HTTP / websocket 入口
type Handler struct {
	chatService         *service.ChatService
	userService         *service.UserService
	searchService       *service.SearchService
	notificationService *service.NotificationService
	groupService        *service.GroupService
	postService         *service.PostService
	uploader            media.Uploader
	limiter             *ratelimit.Limiter
	allowedOrigins      []string
	maxUploadBytes      int64
}

func NewHandler(s Services, allowedOrigins []string) *Handler {
	if s.MaxUploadBytes <= 0 {
		s.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		chatService:         s.Chats,
		userService:         s.Users,
		searchService:       s.Search,
		notificationService: s.Notifications,
		groupService:        s.Groups,
		postService:         s.Posts,
		uploader:            s.Uploader,
		limiter:             s.Limiter,
		allowedOrigins:      allowedOrigins,
		maxUploadBytes:      s.MaxUploadBytes,
	}
}

// pageParams 读取 page / page_size，非法值交给 service 兜底
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}
