package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/d60-Lab/chatsync/internal/api/middleware"
	"github.com/d60-Lab/chatsync/internal/model"
	"github.com/d60-Lab/chatsync/internal/realtime"
	"github.com/d60-Lab/chatsync/pkg/logger"
	"github.com/d60-Lab/chatsync/pkg/response"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// snapshotFrame 每次变更推送一次完整结果集
type snapshotFrame[T any] struct {
	Type string `json:"type"`
	Data []T    `json:"data"`
}

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
}

// checkOrigin 未配置白名单时放行；非浏览器客户端不带 Origin
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	normalized := strings.ToLower(u.Scheme + "://" + u.Host)
	for _, allowed := range h.allowedOrigins {
		if strings.EqualFold(strings.TrimRight(strings.TrimSpace(allowed), "/"), normalized) {
			return true
		}
	}
	return false
}

// ChatsSocket 会话列表实时快照
// @Summary 订阅会话列表（websocket）
// @Description 每次变更推送 {"type":"snapshot","data":[...]}；浏览器可用 access_token 查询参数鉴权
// @Tags 实时
// @Security BearerAuth
// @Param access_token query string false "访问令牌"
// @Success 101
// @Router /api/v1/ws/chats [get]
func (h *Handler) ChatsSocket(c *gin.Context) {
	uid := middleware.UserID(c)
	serveSnapshots(c, h.upgrader(), func(ctx context.Context) (*realtime.Subscription[model.Chat], error) {
		return h.chatService.SubscribeChats(ctx, uid)
	})
}

// MessagesSocket 单个会话的消息实时快照
// @Summary 订阅会话消息（websocket）
// @Tags 实时
// @Security BearerAuth
// @Param chat_id path string true "会话ID"
// @Param access_token query string false "访问令牌"
// @Success 101
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/ws/chats/{chat_id}/messages [get]
func (h *Handler) MessagesSocket(c *gin.Context) {
	uid, chatID := middleware.UserID(c), c.Param("chat_id")
	serveSnapshots(c, h.upgrader(), func(ctx context.Context) (*realtime.Subscription[model.Message], error) {
		return h.chatService.SubscribeMessages(ctx, chatID, uid)
	})
}

// NotificationsSocket 通知实时快照
// @Summary 订阅通知（websocket）
// @Tags 实时
// @Security BearerAuth
// @Param access_token query string false "访问令牌"
// @Success 101
// @Router /api/v1/ws/notifications [get]
func (h *Handler) NotificationsSocket(c *gin.Context) {
	uid := middleware.UserID(c)
	serveSnapshots(c, h.upgrader(), func(ctx context.Context) (*realtime.Subscription[model.Notification], error) {
		return h.notificationService.Subscribe(ctx, uid)
	})
}

// serveSnapshots 先订阅再升级，订阅失败仍能返回普通 HTTP 错误
func serveSnapshots[T any](c *gin.Context, upgrader *websocket.Upgrader, subscribe func(context.Context) (*realtime.Subscription[T], error)) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub, err := subscribe(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.String("path", c.FullPath()), zap.Error(err))
		return
	}
	defer conn.Close()
	logger.Debug("websocket connected", zap.String("topic", sub.Topic()), zap.String("user", middleware.UserID(c)))

	// 读循环只处理 pong 与关闭
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case snap, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if snap == nil {
				snap = []T{}
			}
			if err := conn.WriteJSON(snapshotFrame[T]{Type: "snapshot", Data: snap}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			logger.Debug("websocket closed", zap.String("topic", sub.Topic()))
			return
		}
	}
}
