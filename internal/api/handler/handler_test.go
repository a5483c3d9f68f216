package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/chatsync/config"
	"github.com/d60-Lab/chatsync/internal/api/handler"
	"github.com/d60-Lab/chatsync/internal/api/router"
	"github.com/d60-Lab/chatsync/internal/cache"
	"github.com/d60-Lab/chatsync/internal/media"
	"github.com/d60-Lab/chatsync/internal/model"
	"github.com/d60-Lab/chatsync/internal/ratelimit"
	"github.com/d60-Lab/chatsync/internal/realtime"
	"github.com/d60-Lab/chatsync/internal/repository"
	"github.com/d60-Lab/chatsync/internal/service"
	"github.com/d60-Lab/chatsync/internal/testutil"
	"github.com/d60-Lab/chatsync/pkg/utils"
)

const secret = "handler-test-secret-0123456789"

type stubUploader struct{ got string }

func (s *stubUploader) Upload(_ context.Context, r io.Reader, filename, resourceType string) (*media.Asset, error) {
	data, _ := io.ReadAll(r)
	s.got = string(data)
	return &media.Asset{URL: "https://cdn.example.com/" + filename, PublicID: "p/" + filename, ResourceType: resourceType}, nil
}

type apiEnv struct {
	t        *testing.T
	engine   *gin.Engine
	uploader *stubUploader
}

func newAPI(t *testing.T, users ...string) *apiEnv {
	t.Helper()
	return newAPIWith(t, nil, users...)
}

func newAPIWith(t *testing.T, tweak func(*handler.Services), users ...string) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	testutil.SeedUsers(t, db, users...)

	broker := realtime.NewBroker(rdb)
	limiter := ratelimit.NewLimiter(ratelimit.NewRedisStore(rdb, ""), nil, ratelimit.Policy{})
	profiles := cache.NewProfileCache(repository.NewUserRepository(db), rdb, time.Minute)
	notifications := service.NewNotificationService(db, broker)
	dispatcher := service.NewDispatcher(notifications, limiter, 64)
	stop := dispatcher.Start(1)
	t.Cleanup(func() { _ = stop(context.Background()) })

	uploader := &stubUploader{}
	services := handler.Services{
		Chats:         service.NewChatService(db, profiles, broker, dispatcher),
		Users:         service.NewUserService(db, profiles),
		Search:        service.NewSearchService(db),
		Notifications: notifications,
		Groups:        service.NewGroupService(db, dispatcher),
		Posts:         service.NewPostService(db, dispatcher),
		Uploader:      uploader,
		Limiter:       limiter,
	}
	if tweak != nil {
		tweak(&services)
	}
	h := handler.NewHandler(services, nil)

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode},
		JWT:    config.JWTConfig{Secret: secret},
	}
	return &apiEnv{t: t, engine: router.Setup(cfg, h, limiter, nil), uploader: uploader}
}

func (e *apiEnv) token(uid string, verified bool) string {
	tok, err := utils.GenerateToken(uid, verified, secret, "", time.Hour)
	require.NoError(e.t, err)
	return tok
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *apiEnv) do(method, path, tok string, body interface{}) (int, envelope) {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestChatFlow(t *testing.T) {
	api := newAPI(t, "alice", "bob")
	alice, bob := api.token("alice", true), api.token("bob", true)

	code, _ := api.do(http.MethodGet, "/api/v1/chats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := api.do(http.MethodPost, "/api/v1/chats", alice, gin.H{"user_id": "bob"})
	require.Equal(t, http.StatusOK, code, env.Message)
	chat := decode[map[string]interface{}](t, env.Data)
	assert.Equal(t, "alice_bob", chat["id"])

	code, env = api.do(http.MethodPost, "/api/v1/chats", bob, gin.H{"user_id": "alice"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice_bob", decode[map[string]interface{}](t, env.Data)["id"])

	code, _ = api.do(http.MethodPost, "/api/v1/chats", alice, gin.H{"user_id": "alice"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.do(http.MethodPost, "/api/v1/chats/alice_bob/messages", alice, gin.H{"text": "hi bob"})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = api.do(http.MethodGet, "/api/v1/chats", bob, nil)
	require.Equal(t, http.StatusOK, code)
	chats := decode[[]map[string]interface{}](t, env.Data)
	require.Len(t, chats, 1)
	assert.Equal(t, "hi bob", chats[0]["last_message"])
	assert.Equal(t, map[string]interface{}{"alice": 0.0, "bob": 1.0}, chats[0]["unread_count"])

	code, _ = api.do(http.MethodPost, "/api/v1/chats/alice_bob/read", bob, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, "/api/v1/chats/alice_bob/messages", bob, nil)
	require.Equal(t, http.StatusOK, code)
	msgs := decode[[]model.Message](t, env.Data)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read)

	code, _ = api.do(http.MethodGet, "/api/v1/chats/alice_bob/messages", api.token("mallory", true), nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = api.do(http.MethodGet, "/api/v1/chats/nope/messages", bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSendMessageQuota(t *testing.T) {
	api := newAPI(t, "alice", "bob")
	alice := api.token("alice", true)
	code, _ := api.do(http.MethodPost, "/api/v1/chats", alice, gin.H{"user_id": "bob"})
	require.Equal(t, http.StatusOK, code)

	for i := 0; i < 3; i++ {
		code, env := api.do(http.MethodPost, "/api/v1/chats/alice_bob/messages", alice, gin.H{"text": "spam"})
		require.Equal(t, http.StatusCreated, code, env.Message)
	}
	code, env := api.do(http.MethodPost, "/api/v1/chats/alice_bob/messages", alice, gin.H{"text": "spam"})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, http.StatusTooManyRequests, env.Code)

	code, env = api.do(http.MethodGet, "/api/v1/ratelimit/message", alice, nil)
	require.Equal(t, http.StatusOK, code)
	info := decode[map[string]interface{}](t, env.Data)
	assert.Greater(t, info["reset_ms"].(float64), 0.0)
	assert.LessOrEqual(t, info["reset_ms"].(float64), 2000.0)
	assert.Equal(t, 3.0, info["max_requests"])
}

func TestUnverifiedEmailCannotWrite(t *testing.T) {
	api := newAPI(t, "alice", "bob")
	code, _ := api.do(http.MethodPost, "/api/v1/chats", api.token("alice", false), gin.H{"user_id": "bob"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(http.MethodGet, "/api/v1/chats", api.token("alice", false), nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestProfileAndSearch(t *testing.T) {
	api := newAPI(t)
	alice := api.token("uid-alice", true)

	code, env := api.do(http.MethodPut, "/api/v1/users/me", alice, gin.H{"username": "Alice", "custom_id": "1234", "display_name": "Alice A."})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = api.do(http.MethodPut, "/api/v1/users/me", api.token("uid-other", true), gin.H{"username": "ALICE"})
	assert.Equal(t, http.StatusConflict, code)

	code, env = api.do(http.MethodGet, "/api/v1/users/uid-alice", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Alice A.", decode[model.User](t, env.Data).DisplayName)

	code, env = api.do(http.MethodGet, "/api/v1/users/search?q=ali", alice, nil)
	require.Equal(t, http.StatusOK, code)
	found := decode[[]model.User](t, env.Data)
	require.Len(t, found, 1)
	assert.Equal(t, "uid-alice", found[0].ID)

	code, env = api.do(http.MethodGet, "/api/v1/users/search?q=12", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]model.User](t, env.Data), 1)

	code, _ = api.do(http.MethodGet, "/api/v1/users/ghost", alice, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGroupsAndNotifications(t *testing.T) {
	api := newAPI(t, "owner", "guest")
	owner, guest := api.token("owner", true), api.token("guest", true)

	code, env := api.do(http.MethodPost, "/api/v1/groups", owner, gin.H{"name": "Gophers", "private": true})
	require.Equal(t, http.StatusCreated, code, env.Message)
	groupID := decode[model.Group](t, env.Data).ID

	code, _ = api.do(http.MethodPost, "/api/v1/groups", owner, gin.H{"name": "Again"})
	assert.Equal(t, http.StatusTooManyRequests, code)

	code, _ = api.do(http.MethodPost, "/api/v1/groups/"+groupID+"/join", guest, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(http.MethodPost, "/api/v1/groups/"+groupID+"/invite", owner, gin.H{"user_id": "guest"})
	require.Equal(t, http.StatusOK, code)

	var list struct {
		List   []model.Notification `json:"list"`
		Unread int64                `json:"unread"`
	}
	require.Eventually(t, func() bool {
		code, env := api.do(http.MethodGet, "/api/v1/notifications", guest, nil)
		if code != http.StatusOK {
			return false
		}
		list = decode[struct {
			List   []model.Notification `json:"list"`
			Unread int64                `json:"unread"`
		}](t, env.Data)
		return list.Unread == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, model.NotificationGroupInvite, list.List[0].Type)

	code, _ = api.do(http.MethodPost, "/api/v1/notifications/"+list.List[0].ID+"/read", owner, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = api.do(http.MethodPost, "/api/v1/notifications/read-all", guest, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = api.do(http.MethodPost, "/api/v1/groups/"+groupID+"/join", guest, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = api.do(http.MethodGet, "/api/v1/groups/"+groupID+"/members", guest, nil)
	require.Equal(t, http.StatusOK, code)
	members := decode[struct {
		List []model.GroupMember `json:"list"`
	}](t, env.Data)
	assert.Len(t, members.List, 2)

	code, _ = api.do(http.MethodPost, "/api/v1/groups/"+groupID+"/leave", owner, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestPostsAndMedia(t *testing.T) {
	api := newAPI(t, "author", "fan")
	author, fan := api.token("author", true), api.token("fan", true)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "clip.mp4")
	require.NoError(t, err)
	_, _ = part.Write([]byte("video-bytes"))
	require.NoError(t, mw.WriteField("resource_type", "video"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+author)
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	asset := decode[media.Asset](t, env.Data)
	assert.Equal(t, "video-bytes", api.uploader.got)
	assert.Equal(t, media.ResourceVideo, asset.ResourceType)

	code, env := api.do(http.MethodPost, "/api/v1/posts", author, gin.H{"kind": "reel", "media_url": asset.URL, "asset_id": asset.PublicID})
	require.Equal(t, http.StatusCreated, code, env.Message)
	postID := decode[model.Post](t, env.Data).ID

	code, _ = api.do(http.MethodPost, "/api/v1/posts/"+postID+"/comments", fan, gin.H{"text": "wow"})
	require.Equal(t, http.StatusCreated, code)
	for i := 0; i < 2; i++ {
		code, _ = api.do(http.MethodPost, "/api/v1/posts/"+postID+"/like", fan, nil)
		require.Equal(t, http.StatusOK, code)
	}

	code, env = api.do(http.MethodGet, "/api/v1/posts/"+postID, fan, nil)
	require.Equal(t, http.StatusOK, code)
	post := decode[model.Post](t, env.Data)
	assert.Equal(t, int64(1), post.LikesCount)
	assert.Equal(t, int64(1), post.CommentsCount)

	code, env = api.do(http.MethodGet, "/api/v1/users/author/posts", fan, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), postID)
}

func TestMessagesSocketStreamsSnapshots(t *testing.T) {
	api := newAPI(t, "alice", "bob")
	alice, bob := api.token("alice", true), api.token("bob", true)
	code, _ := api.do(http.MethodPost, "/api/v1/chats", alice, gin.H{"user_id": "bob"})
	require.Equal(t, http.StatusOK, code)

	srv := httptest.NewServer(api.engine)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/chats/alice_bob/messages?access_token=" + bob

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	type frame struct {
		Type string          `json:"type"`
		Data []model.Message `json:"data"`
	}
	read := func() frame {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		return f
	}

	first := read()
	assert.Equal(t, "snapshot", first.Type)
	assert.Empty(t, first.Data)

	code, _ = api.do(http.MethodPost, "/api/v1/chats/alice_bob/messages", alice, gin.H{"text": "live!"})
	require.Equal(t, http.StatusCreated, code)

	next := read()
	require.Len(t, next.Data, 1)
	assert.Equal(t, "live!", next.Data[0].Text)

	_, resp, err = websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws/chats/alice_bob/messages?access_token="+api.token("mallory", true), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func uploadRequest(t *testing.T, tok string, size int) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "big.png")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), size))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	return req
}

func TestUploadMediaRejectsOversizedBody(t *testing.T) {
	api := newAPIWith(t, func(s *handler.Services) { s.MaxUploadBytes = 1 << 10 }, "author")
	tok := api.token("author", true)

	// 超过 MaxBytesReader 上限，解析表单时就失败
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, uploadRequest(t, tok, 256<<10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, api.uploader.got)

	// 在余量以内但文件本身超限
	w = httptest.NewRecorder()
	api.engine.ServeHTTP(w, uploadRequest(t, tok, 4<<10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, api.uploader.got)

	w = httptest.NewRecorder()
	api.engine.ServeHTTP(w, uploadRequest(t, tok, 512))
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, api.uploader.got, 512)
}
