package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/realtime"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"github.com/yukikurage/projecthub-api/internal/testutil"
	"go.uber.org/zap"
)

type scriptedPusher struct {
	mu      sync.Mutex
	results []realtime.PushResult
	calls   []uint64
}

func (p *scriptedPusher) Push(userID uint64, _ interface{}) realtime.PushResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, userID)
	if len(p.results) == 0 {
		return realtime.Delivered
	}
	r := p.results[0]
	p.results = p.results[1:]
	return r
}

func (p *scriptedPusher) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type failingRepo struct {
	repository.NotificationRepository
}

func (failingRepo) CreateOnce(context.Context, *models.Notification) (*models.Notification, bool, error) {
	return nil, false, errors.New("db down")
}

func newTestWorker(t *testing.T, repo repository.NotificationRepository, pusher Pusher, attempts int) *Worker {
	t.Helper()
	w := NewWorker(repo, pusher, attempts, time.Millisecond, zap.NewNop())
	w.sleep = func(context.Context, time.Duration) error { return nil }
	return w
}

func setupRecipient(t *testing.T) (repository.NotificationRepository, Message) {
	t.Helper()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "bob@example.com", "Bob")
	org := testutil.CreateOrganization(t, db, "acme")
	msg, ok := AssignmentNotice(999, TaskRef{OrganizationID: org.ID, TaskID: 1, ProjectKey: "ENG", Number: 1, Title: "t"}, nil, &user.ID)
	require.True(t, ok)
	return repository.NewNotificationRepository(db), msg
}

func TestWorker_PersistsOnceAcrossRedelivery(t *testing.T) {
	repo, msg := setupRecipient(t)
	pusher := &scriptedPusher{}
	w := newTestWorker(t, repo, pusher, 3)
	ctx := context.Background()

	require.NoError(t, w.Handle(ctx, msg))
	require.NoError(t, w.Handle(ctx, msg))

	list, total, err := repo.List(ctx, repository.NotificationFilter{OrganizationID: msg.OrganizationID, UserID: msg.RecipientID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "You were assigned ENG-1", list[0].Title)
	assert.Equal(t, 2, pusher.callCount())
}

func TestWorker_RetriesFailedPushThenAbandons(t *testing.T) {
	repo, msg := setupRecipient(t)
	pusher := &scriptedPusher{results: []realtime.PushResult{realtime.Failed, realtime.Failed, realtime.Failed, realtime.Failed}}
	w := newTestWorker(t, repo, pusher, 3)

	require.NoError(t, w.Handle(context.Background(), msg))
	assert.Equal(t, 3, pusher.callCount())

	count, err := repo.CountUnread(context.Background(), msg.OrganizationID, msg.RecipientID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "row stays for polling")
}

func TestWorker_StopsRetryingOnceDelivered(t *testing.T) {
	repo, msg := setupRecipient(t)
	pusher := &scriptedPusher{results: []realtime.PushResult{realtime.Failed, realtime.Delivered}}
	w := newTestWorker(t, repo, pusher, 5)

	require.NoError(t, w.Handle(context.Background(), msg))
	assert.Equal(t, 2, pusher.callCount())
}

func TestWorker_NotConnectedIsNotRetried(t *testing.T) {
	repo, msg := setupRecipient(t)
	pusher := &scriptedPusher{results: []realtime.PushResult{realtime.NotConnected}}
	w := newTestWorker(t, repo, pusher, 5)

	require.NoError(t, w.Handle(context.Background(), msg))
	assert.Equal(t, 1, pusher.callCount())
}

func TestWorker_PersistenceErrorIsReturned(t *testing.T) {
	pusher := &scriptedPusher{}
	w := newTestWorker(t, failingRepo{}, pusher, 3)
	msg := Message{DispatchKey: "k", RecipientID: 1, OrganizationID: 1, Type: models.NotificationMention}

	err := w.Handle(context.Background(), msg)
	assert.Error(t, err)
	assert.Zero(t, pusher.callCount())
}

func TestWorker_DiscardsMalformed(t *testing.T) {
	pusher := &scriptedPusher{}
	w := newTestWorker(t, failingRepo{}, pusher, 3)
	assert.NoError(t, w.Handle(context.Background(), Message{}))
	assert.Zero(t, pusher.callCount())
}
