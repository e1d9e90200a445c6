package mq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingAcknowledger struct {
	mu      sync.Mutex
	acks    int
	nacks   int
	requeue bool
	nackAt  time.Time
}

func (a *recordingAcknowledger) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *recordingAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	a.requeue = requeue
	a.nackAt = time.Now()
	return nil
}

func (a *recordingAcknowledger) Reject(uint64, bool) error { return nil }

func newTestConsumer(handler MessageHandler, delay time.Duration) *Consumer {
	c := &Consumer{routingKey: "test.key", logger: zap.NewNop()}
	c.SetHandler(handler)
	c.SetRedeliverDelay(delay)
	return c
}

func TestConsumer_FailedMessageWaitsBeforeRequeue(t *testing.T) {
	c := newTestConsumer(func(context.Context, json.RawMessage) error {
		return errors.New("boom")
	}, 50*time.Millisecond)
	ack := &recordingAcknowledger{}

	start := time.Now()
	c.handle(context.Background(), amqp091.Delivery{Acknowledger: ack, Body: []byte(`{}`)})

	require.Equal(t, 1, ack.nacks)
	assert.True(t, ack.requeue)
	assert.GreaterOrEqual(t, ack.nackAt.Sub(start), 50*time.Millisecond)
}

func TestConsumer_CancelledContextSkipsDelay(t *testing.T) {
	c := newTestConsumer(func(context.Context, json.RawMessage) error {
		return errors.New("boom")
	}, time.Hour)
	ack := &recordingAcknowledger{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		c.handle(ctx, amqp091.Delivery{Acknowledger: ack})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handle blocked on a cancelled context")
	}
	assert.Equal(t, 1, ack.nacks)
}

func TestConsumer_PanicIsRequeued(t *testing.T) {
	c := newTestConsumer(func(context.Context, json.RawMessage) error {
		panic("bad handler")
	}, 0)
	ack := &recordingAcknowledger{}

	c.handle(context.Background(), amqp091.Delivery{Acknowledger: ack})
	assert.Equal(t, 1, ack.nacks)
	assert.True(t, ack.requeue)
}

func TestConsumer_SuccessAcksWithoutDelay(t *testing.T) {
	c := newTestConsumer(func(context.Context, json.RawMessage) error { return nil }, time.Hour)
	ack := &recordingAcknowledger{}

	c.handle(context.Background(), amqp091.Delivery{Acknowledger: ack})
	assert.Equal(t, 1, ack.acks)
	assert.Zero(t, ack.nacks)
}
