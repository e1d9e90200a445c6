package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/projecthub-api/internal/auth"
	"github.com/yukikurage/projecthub-api/internal/constants"
	"github.com/yukikurage/projecthub-api/internal/notify"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"github.com/yukikurage/projecthub-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	store  *repository.Store
	tokens *auth.JWTService
	queue  *notify.ChannelQueue
	router *gin.Engine
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	log := zap.NewNop()
	store := repository.NewStore(db, time.Second)
	tokens := auth.NewJWTService("test-secret", time.Hour, auth.NewMemoryRevocationStore())
	queue := notify.NewChannelQueue(256, 1, time.Millisecond, log)
	t.Cleanup(queue.Close)

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	NewRoutes(store, tokens, notify.NewDispatcher(queue, log), log).Register(r.Group("/api"))

	return &testEnv{
		t:      t,
		db:     db,
		store:  store,
		tokens: tokens,
		queue:  queue,
		router: r,
	}
}

// token issues a bearer token for a fixture user.
func (e *testEnv) token(userID uint64) string {
	e.t.Helper()
	token, _, err := e.tokens.Issue(userID)
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	decode(t, w, &body)
	return body.Code
}
