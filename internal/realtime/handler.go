package realtime

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yukikurage/projecthub-api/internal/auth"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"go.uber.org/zap"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 4096
)

// Handler upgrades authenticated requests to websocket connections and
// registers them. Clients only receive; anything they send is discarded.
type Handler struct {
	registry *Registry
	authn    auth.Authenticator
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHandler(registry *Registry, authn auth.Authenticator, log *zap.Logger) *Handler {
	return &Handler{
		registry: registry,
		authn:    authn,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.Named("realtime"),
	}
}

// Connect handles GET /api/ws?token=...
// Browsers cannot set headers on websocket requests, so the token also
// comes as a query parameter.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = auth.ExtractBearer(c.Request)
	}
	principal, err := h.authn.Authenticate(c.Request.Context(), token)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	userID := principal.UserID
	h.registry.Register(userID, conn)
	h.log.Debug("connected", zap.Uint64("user_id", userID))

	if h.registry.Push(userID, gin.H{"type": "connected", "user_id": userID}) != Delivered {
		return
	}

	done := make(chan struct{})
	go h.keepAlive(userID, conn, done)
	h.readLoop(conn)
	close(done)

	if h.registry.Unregister(userID, conn) {
		_ = conn.Close()
	}
	h.log.Debug("disconnected", zap.Uint64("user_id", userID))
}

func (h *Handler) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) keepAlive(userID uint64, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			// WriteControl may run alongside WriteJSON.
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				if h.registry.Unregister(userID, conn) {
					_ = conn.Close()
				}
				return
			}
		}
	}
}
