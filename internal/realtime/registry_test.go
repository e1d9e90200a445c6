package realtime

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeConn struct {
	mu       sync.Mutex
	messages []interface{}
	writeErr error
	closed   bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.messages = append(f.messages, v)
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestRegistry() *Registry {
	return NewRegistry(zap.NewNop(), time.Second)
}

func TestRegistry_PushNotConnected(t *testing.T) {
	r := newTestRegistry()
	assert.Equal(t, NotConnected, r.Push(1, "hello"))
	r.Send(1, "hello")
}

func TestRegistry_LastConnectWins(t *testing.T) {
	r := newTestRegistry()
	first := &fakeConn{}
	second := &fakeConn{}

	r.Register(1, first)
	r.Register(1, second)

	assert.True(t, first.isClosed())
	assert.Equal(t, Delivered, r.Push(1, "hi"))
	assert.Equal(t, 0, first.count())
	assert.Equal(t, 1, second.count())

	// The replaced connection's disconnect must not drop the new one.
	assert.False(t, r.Unregister(1, first))
	assert.True(t, r.IsConnected(1))
	assert.True(t, r.Unregister(1, second))
	assert.False(t, r.IsConnected(1))
}

func TestRegistry_FailedSendRemovesConnection(t *testing.T) {
	r := newTestRegistry()
	conn := &fakeConn{writeErr: errors.New("broken pipe")}
	r.Register(7, conn)

	assert.Equal(t, Failed, r.Push(7, "x"))
	assert.True(t, conn.isClosed())
	assert.False(t, r.IsConnected(7))
	assert.Equal(t, NotConnected, r.Push(7, "x"))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := newTestRegistry()
	var wg sync.WaitGroup
	for i := uint64(1); i <= 50; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			conn := &fakeConn{}
			r.Register(id%5, conn)
			r.Send(id%5, id)
			r.Unregister(id%5, conn)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, len(r.ConnectedUserIDs()), 5)
}

func TestRegistry_CloseAndList(t *testing.T) {
	r := newTestRegistry()
	a, b := &fakeConn{}, &fakeConn{}
	r.Register(3, a)
	r.Register(2, b)
	assert.Equal(t, []uint64{2, 3}, r.ConnectedUserIDs())

	r.Close()
	assert.True(t, a.isClosed())
	assert.True(t, b.isClosed())
	assert.Empty(t, r.ConnectedUserIDs())
}

func TestPushResultString(t *testing.T) {
	assert.Equal(t, "delivered", Delivered.String())
	assert.Equal(t, "not_connected", NotConnected.String())
	assert.Equal(t, "failed", Failed.String())
}
