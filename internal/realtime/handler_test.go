package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/projecthub-api/internal/auth"
	"go.uber.org/zap"
)

func TestHandler_ConnectAndPush(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := auth.NewJWTService("secret", time.Hour, nil)
	registry := newTestRegistry()
	h := NewHandler(registry, jwtSvc, zap.NewNop())

	router := gin.New()
	router.GET("/api/ws", h.Connect)
	server := httptest.NewServer(router)
	defer server.Close()

	token, _, err := jwtSvc.Issue(9)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello map[string]interface{}
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello["type"])
	assert.Equal(t, float64(9), hello["user_id"])

	assert.Equal(t, Delivered, registry.Push(9, map[string]string{"type": "notification"}))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "notification", msg["type"])

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return !registry.IsConnected(9) }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_RejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(newTestRegistry(), auth.NewJWTService("secret", time.Hour, nil), zap.NewNop())

	router := gin.New()
	router.GET("/api/ws", h.Connect)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ws?token=garbage", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
