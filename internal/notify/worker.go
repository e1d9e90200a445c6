package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/projecthub-api/internal/metrics"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/realtime"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"go.uber.org/zap"
)

// Pusher sends an event to a user's live connection.
type Pusher interface {
	Push(userID uint64, payload interface{}) realtime.PushResult
}

// Event is the realtime payload for a stored notification. Clients
// de-duplicate by notification id.
type Event struct {
	Type         string               `json:"type"`
	Notification *models.Notification `json:"notification"`
}

type Worker struct {
	notifications repository.NotificationRepository
	pusher        Pusher
	maxAttempts   int
	backoff       time.Duration
	log           *zap.Logger
	sleep         func(ctx context.Context, d time.Duration) error
}

func NewWorker(notifications repository.NotificationRepository, pusher Pusher, maxAttempts int, backoff time.Duration, log *zap.Logger) *Worker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Worker{
		notifications: notifications,
		pusher:        pusher,
		maxAttempts:   maxAttempts,
		backoff:       backoff,
		log:           log.Named("worker"),
		sleep:         sleepContext,
	}
}

// Run consumes queue until ctx is done.
func (w *Worker) Run(ctx context.Context, queue Queue) error {
	return queue.Consume(ctx, w.Handle)
}

// Handle stores msg once and then pushes it. Only a storage failure is
// returned; push failures are retried here and then given up on, since the
// stored row stays visible to polling clients.
func (w *Worker) Handle(ctx context.Context, msg Message) error {
	if msg.DispatchKey == "" || msg.RecipientID == 0 {
		w.log.Warn("discarding malformed notification message", zap.String("dispatch_key", msg.DispatchKey))
		return nil
	}

	n, created, err := w.notifications.CreateOnce(ctx, msg.notification())
	if err != nil {
		return fmt.Errorf("failed to persist notification: %w", err)
	}
	if created {
		metrics.RecordNotificationPersisted(string(msg.Type))
	}

	w.deliver(ctx, n)
	return nil
}

func (w *Worker) deliver(ctx context.Context, n *models.Notification) {
	event := Event{Type: "notification", Notification: n}
	for attempt := 1; ; attempt++ {
		result := w.pusher.Push(n.UserID, event)
		if result != realtime.Failed {
			return
		}
		if attempt >= w.maxAttempts {
			w.log.Warn("abandoning realtime delivery",
				zap.Uint64("notification_id", n.ID),
				zap.Uint64("user_id", n.UserID),
				zap.Int("attempts", attempt),
			)
			metrics.RecordDeliveryAbandoned()
			return
		}
		if err := w.sleep(ctx, w.backoff); err != nil {
			return
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
