package notify

import (
	"context"

	"github.com/yukikurage/projecthub-api/internal/metrics"
	"go.uber.org/zap"
)

type Dispatcher struct {
	queue Queue
	log   *zap.Logger
}

func NewDispatcher(queue Queue, log *zap.Logger) *Dispatcher {
	return &Dispatcher{queue: queue, log: log.Named("dispatcher")}
}

// Enqueue hands msgs to the queue. Call it after the triggering transaction
// has committed. A publish failure is logged and does not undo the change
// that caused it.
func (d *Dispatcher) Enqueue(ctx context.Context, msgs ...Message) {
	if d == nil || len(msgs) == 0 {
		return
	}
	// The request may finish before the queue accepts the message.
	ctx = context.WithoutCancel(ctx)
	for _, msg := range msgs {
		if err := d.queue.Publish(ctx, msg); err != nil {
			d.log.Error("failed to enqueue notification",
				zap.String("dispatch_key", msg.DispatchKey),
				zap.String("type", string(msg.Type)),
				zap.Uint64("recipient_id", msg.RecipientID),
				zap.Error(err),
			)
			continue
		}
		metrics.RecordNotificationEnqueued(string(msg.Type))
	}
}
