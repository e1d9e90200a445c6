package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestChannelQueue_RedeliversOnError(t *testing.T) {
	q := NewChannelQueue(8, 3, time.Millisecond, zap.NewNop())
	defer q.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		_ = q.Consume(ctx, func(ctx context.Context, msg Message) error {
			if calls.Add(1) < 3 {
				return errors.New("transient")
			}
			close(done)
			return nil
		})
	}()

	require.NoError(t, q.Publish(ctx, Message{DispatchKey: "a"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("message was not redelivered")
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestChannelQueue_GivesUpAfterMaxRedeliver(t *testing.T) {
	q := NewChannelQueue(8, 2, time.Millisecond, zap.NewNop())
	defer q.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go func() {
		_ = q.Consume(ctx, func(ctx context.Context, msg Message) error {
			calls.Add(1)
			return errors.New("permanent")
		})
	}()

	require.NoError(t, q.Publish(ctx, Message{DispatchKey: "a"}))
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestChannelQueue_PublishAfterClose(t *testing.T) {
	q := NewChannelQueue(1, 1, time.Millisecond, zap.NewNop())
	q.Close()
	assert.ErrorIs(t, q.Publish(context.Background(), Message{}), ErrQueueClosed)
}

func TestDispatcher_Enqueue(t *testing.T) {
	q := NewChannelQueue(4, 1, time.Millisecond, zap.NewNop())
	defer q.Close()
	d := NewDispatcher(q, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// A cancelled request context must not drop the message.
	d.Enqueue(ctx, Message{DispatchKey: "a"}, Message{DispatchKey: "b"})
	assert.Len(t, q.ch, 2)

	var nilDispatcher *Dispatcher
	nilDispatcher.Enqueue(context.Background(), Message{DispatchKey: "c"})
}
