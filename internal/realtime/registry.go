// Package realtime keeps one live push connection per user.
package realtime

import (
	"sort"
	"sync"
	"time"

	"github.com/yukikurage/projecthub-api/internal/metrics"
	"go.uber.org/zap"
)

// Conn is the part of a websocket connection the registry writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type PushResult int

const (
	Delivered PushResult = iota
	NotConnected
	Failed
)

func (r PushResult) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case NotConnected:
		return "not_connected"
	default:
		return "failed"
	}
}

type client struct {
	conn Conn
	// gorilla connections allow one concurrent writer.
	mu sync.Mutex
}

func (c *client) write(v interface{}, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteJSON(v)
}

// Registry maps user ids to their current connection. The last connection
// registered for a user wins and the previous one is closed.
type Registry struct {
	mu           sync.RWMutex
	clients      map[uint64]*client
	writeTimeout time.Duration
	log          *zap.Logger
}

func NewRegistry(log *zap.Logger, writeTimeout time.Duration) *Registry {
	return &Registry{
		clients:      make(map[uint64]*client),
		writeTimeout: writeTimeout,
		log:          log.Named("realtime"),
	}
}

func (r *Registry) Register(userID uint64, conn Conn) {
	r.mu.Lock()
	prev := r.clients[userID]
	r.clients[userID] = &client{conn: conn}
	metrics.RealtimeConnections.Set(float64(len(r.clients)))
	r.mu.Unlock()

	if prev != nil && prev.conn != conn {
		r.log.Debug("replacing connection", zap.Uint64("user_id", userID))
		_ = prev.conn.Close()
	}
}

// Unregister removes conn if it is still the user's current connection.
// It reports whether anything was removed.
func (r *Registry) Unregister(userID uint64, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[userID]
	if !ok || c.conn != conn {
		return false
	}
	delete(r.clients, userID)
	metrics.RealtimeConnections.Set(float64(len(r.clients)))
	return true
}

// Push writes payload to the user's connection. A failed write drops and
// closes the connection.
func (r *Registry) Push(userID uint64, payload interface{}) PushResult {
	r.mu.RLock()
	c := r.clients[userID]
	r.mu.RUnlock()

	if c == nil {
		metrics.RecordRealtimePush(NotConnected.String())
		return NotConnected
	}

	if err := c.write(payload, r.writeTimeout); err != nil {
		r.log.Debug("push failed, dropping connection", zap.Uint64("user_id", userID), zap.Error(err))
		if r.Unregister(userID, c.conn) {
			_ = c.conn.Close()
		}
		metrics.RecordRealtimePush(Failed.String())
		return Failed
	}
	metrics.RecordRealtimePush(Delivered.String())
	return Delivered
}

// Send is Push without a result.
func (r *Registry) Send(userID uint64, payload interface{}) {
	_ = r.Push(userID, payload)
}

func (r *Registry) IsConnected(userID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[userID]
	return ok
}

// ConnectedUserIDs returns the registered user ids in ascending order.
func (r *Registry) ConnectedUserIDs() []uint64 {
	r.mu.RLock()
	ids := make([]uint64, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Close closes every connection and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[uint64]*client)
	metrics.RealtimeConnections.Set(0)
	r.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
}
