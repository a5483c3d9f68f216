package router

import (
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/chatsync/config"
	_ "github.com/d60-Lab/chatsync/docs"
	"github.com/d60-Lab/chatsync/internal/api/handler"
	"github.com/d60-Lab/chatsync/internal/api/middleware"
	"github.com/d60-Lab/chatsync/internal/ratelimit"
)

const wsPrefix = "/api/v1/ws/"

// Setup 注册全部路由；ipLimiter 可为 nil
func Setup(cfg *config.Config, h *handler.Handler, limiter *ratelimit.Limiter, ipLimiter *middleware.IPRateLimiter) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(middleware.Logger())
	// websocket 需要 Hijack，不能经过 gzip writer
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{wsPrefix})))
	if ipLimiter != nil {
		r.Use(ipLimiter.Middleware())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Server.EnableSwagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	verified := middleware.RequireVerifiedEmail()
	quota := func(action string) gin.HandlerFunc { return middleware.RequireQuota(limiter, action) }

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWT.Secret, cfg.JWT.Issuer))
	{
		users := v1.Group("/users")
		users.PUT("/me", verified, h.UpsertProfile)
		users.GET("/search", quota(ratelimit.ActionSearch), h.SearchUsers)
		users.GET("/:user_id", h.GetProfile)
		users.GET("/:user_id/posts", h.ListUserPosts)

		chats := v1.Group("/chats")
		chats.POST("", verified, h.CreateChat)
		chats.GET("", h.ListChats)
		chats.GET("/:chat_id/messages", h.ListMessages)
		chats.POST("/:chat_id/messages", verified, quota(ratelimit.ActionMessage), h.SendMessage)
		chats.POST("/:chat_id/read", h.MarkAsRead)

		ws := v1.Group("/ws")
		ws.GET("/chats", h.ChatsSocket)
		ws.GET("/chats/:chat_id/messages", h.MessagesSocket)
		ws.GET("/notifications", h.NotificationsSocket)

		notifications := v1.Group("/notifications")
		notifications.GET("", h.ListNotifications)
		notifications.POST("/read-all", h.MarkAllNotificationsRead)
		notifications.POST("/:id/read", h.MarkNotificationRead)

		groups := v1.Group("/groups")
		groups.POST("", verified, quota(ratelimit.ActionGroupCreate), h.CreateGroup)
		groups.GET("/:group_id", h.GetGroup)
		groups.GET("/:group_id/members", h.ListGroupMembers)
		groups.POST("/:group_id/invite", verified, quota(ratelimit.ActionNotification), h.InviteToGroup)
		groups.POST("/:group_id/join", verified, h.JoinGroup)
		groups.POST("/:group_id/leave", h.LeaveGroup)

		posts := v1.Group("/posts")
		posts.POST("", verified, h.PublishPost)
		posts.GET("/:post_id", h.GetPost)
		posts.GET("/:post_id/comments", h.ListComments)
		posts.POST("/:post_id/comments", verified, quota(ratelimit.ActionComment), h.CommentPost)
		posts.POST("/:post_id/like", verified, h.LikePost)

		v1.POST("/media", verified, h.UploadMedia)
		v1.GET("/ratelimit/:action", h.QuotaReset)
	}
	return r
}
