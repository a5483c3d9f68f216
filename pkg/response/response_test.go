package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
	"github.com/d60-Lab/chatsync/pkg/logger"
)

func serve(t *testing.T, err error) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/chats", func(c *gin.Context) { Error(c, err) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chats", nil))
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestErrorHidesInternalCause(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	prev := logger.L()
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(prev) })

	cause := pkgerrors.Wrap(pkgerrors.New("UNIQUE constraint failed: chats.id"), "chatRepo.Create")
	w, body := serve(t, cause)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body.Message)
	assert.NotContains(t, w.Body.String(), "chatRepo")
	assert.NotContains(t, w.Body.String(), "UNIQUE")

	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/chats", entries[0].ContextMap()["path"])
	assert.Contains(t, entries[0].ContextMap()["error"], "chatRepo.Create")
}

func TestErrorMapsDomainCodes(t *testing.T) {
	cases := map[error]int{
		apperrors.ErrChatNotFound:      http.StatusNotFound,
		apperrors.ErrNotChatMember:     http.StatusForbidden,
		apperrors.ErrEmptyMessage:      http.StatusBadRequest,
		apperrors.ErrUsernameTaken:     http.StatusConflict,
		apperrors.ErrInvalidToken:      http.StatusUnauthorized,
		apperrors.ErrRateLimitExceeded: http.StatusTooManyRequests,
	}
	for err, status := range cases {
		w, body := serve(t, err)
		assert.Equal(t, status, w.Code, err.Error())
		assert.Equal(t, err.Error(), body.Message)
	}

	w, body := serve(t, apperrors.ErrChatIDConflict)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body.Message)
}
