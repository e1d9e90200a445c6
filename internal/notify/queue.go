package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrQueueClosed = errors.New("notify: queue closed")

// HandlerFunc processes one message. A non-nil error asks the queue to
// deliver the message again.
type HandlerFunc func(ctx context.Context, msg Message) error

// Queue carries messages from the Dispatcher to Workers with at-least-once
// delivery: a message may be handled more than once, never silently zero
// times while the queue is running.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	// Consume blocks, handling messages until ctx is done.
	Consume(ctx context.Context, handle HandlerFunc) error
	Close()
}

type envelope struct {
	msg     Message
	attempt int
}

// ChannelQueue is an in-process Queue. Messages do not survive a restart.
type ChannelQueue struct {
	ch             chan envelope
	closed         chan struct{}
	closeOnce      sync.Once
	maxRedeliver   int
	redeliverDelay time.Duration
	log            *zap.Logger
}

func NewChannelQueue(buffer, maxRedeliver int, redeliverDelay time.Duration, log *zap.Logger) *ChannelQueue {
	return &ChannelQueue{
		ch:             make(chan envelope, buffer),
		closed:         make(chan struct{}),
		maxRedeliver:   maxRedeliver,
		redeliverDelay: redeliverDelay,
		log:            log.Named("queue"),
	}
}

func (q *ChannelQueue) Publish(ctx context.Context, msg Message) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- envelope{msg: msg, attempt: 1}:
		return nil
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume may be called from several goroutines to run workers in parallel.
func (q *ChannelQueue) Consume(ctx context.Context, handle HandlerFunc) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-q.closed:
			return nil
		case env := <-q.ch:
			if err := handle(ctx, env.msg); err != nil {
				q.redeliver(env, err)
			}
		}
	}
}

func (q *ChannelQueue) redeliver(env envelope, cause error) {
	if env.attempt >= q.maxRedeliver {
		q.log.Error("dropping message after repeated failures",
			zap.String("dispatch_key", env.msg.DispatchKey),
			zap.Int("attempts", env.attempt),
			zap.Error(cause),
		)
		return
	}
	q.log.Warn("handler failed, redelivering",
		zap.String("dispatch_key", env.msg.DispatchKey),
		zap.Int("attempt", env.attempt),
		zap.Error(cause),
	)
	env.attempt++
	go func() {
		timer := time.NewTimer(q.redeliverDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-q.closed:
			return
		}
		select {
		case q.ch <- env:
		case <-q.closed:
		}
	}()
}

func (q *ChannelQueue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}
