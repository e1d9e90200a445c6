package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yukikurage/projecthub-api/internal/mq"
	"go.uber.org/zap"
)

const queueName = "projecthub.notifications"

// RedeliveryCounter counts failed deliveries per message key.
type RedeliveryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// DeadLetterPublisher parks messages that cannot be delivered.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, routingKey string, body []byte, originalError string) error
}

// AMQPQueue delivers messages through RabbitMQ. Redeliveries are counted in
// Redis; a message that keeps failing is moved to the dead letter queue.
type AMQPQueue struct {
	publisher    *mq.Publisher
	consumer     *mq.Consumer
	retries      RedeliveryCounter
	dlq          DeadLetterPublisher
	maxRedeliver int64
	log          *zap.Logger
}

// NewAMQPQueue connects to url. retries may be nil, in which case failing
// messages are requeued without limit. Each requeue waits redeliverDelay.
func NewAMQPQueue(url string, prefetch int, retries RedeliveryCounter, maxRedeliver int64, redeliverDelay time.Duration, log *zap.Logger) (*AMQPQueue, error) {
	publisher, err := mq.NewPublisher(url)
	if err != nil {
		return nil, err
	}
	consumer, err := mq.NewConsumer(url, queueName, RoutingKey, prefetch, log.Named("consumer"))
	if err != nil {
		publisher.Close()
		return nil, err
	}
	consumer.SetRedeliverDelay(redeliverDelay)
	return &AMQPQueue{
		publisher:    publisher,
		consumer:     consumer,
		retries:      retries,
		dlq:          publisher,
		maxRedeliver: maxRedeliver,
		log:          log.Named("queue"),
	}, nil
}

func (q *AMQPQueue) Publish(ctx context.Context, msg Message) error {
	if err := q.publisher.Publish(ctx, RoutingKey, msg); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (q *AMQPQueue) Consume(ctx context.Context, handle HandlerFunc) error {
	q.consumer.SetHandler(func(ctx context.Context, data json.RawMessage) error {
		return q.deliver(ctx, data, handle)
	})
	return q.consumer.StartConsuming(ctx)
}

// deliver runs handle on one raw delivery. A nil return acks it; an error
// requeues it. Messages that cannot be decoded, or that failed
// maxRedeliver times, are parked in the dead letter queue and acked.
func (q *AMQPQueue) deliver(ctx context.Context, data json.RawMessage, handle HandlerFunc) error {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		q.log.Error("undecodable notification message", zap.Error(err))
		return q.deadLetter(ctx, data, err)
	}
	key := mq.FormatRetryKey("notification", msg.DispatchKey)

	err := handle(ctx, msg)
	if err == nil {
		q.resetCount(ctx, key)
		return nil
	}
	if q.retries == nil {
		return err
	}

	count, cerr := q.retries.IncrementAndGet(ctx, key)
	if cerr != nil {
		q.log.Warn("retry counter unavailable", zap.Error(cerr))
		return err
	}
	if count < q.maxRedeliver {
		return err
	}
	q.log.Error("notification exhausted redeliveries",
		zap.String("dispatch_key", msg.DispatchKey),
		zap.Int64("attempts", count),
		zap.Error(err),
	)
	if derr := q.deadLetter(ctx, data, err); derr != nil {
		return derr
	}
	q.resetCount(ctx, key)
	return nil
}

func (q *AMQPQueue) resetCount(ctx context.Context, key string) {
	if q.retries == nil {
		return
	}
	if err := q.retries.Reset(ctx, key); err != nil {
		q.log.Warn("failed to reset retry counter", zap.String("key", key), zap.Error(err))
	}
}

// deadLetter parks data and acks the original. If parking fails the
// original is requeued instead.
func (q *AMQPQueue) deadLetter(ctx context.Context, data []byte, cause error) error {
	if err := q.dlq.PublishToDLQ(ctx, RoutingKey, data, cause.Error()); err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}
	return nil
}

func (q *AMQPQueue) Close() {
	q.consumer.Close()
	q.publisher.Close()
}
