package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/events"
)

type publishedMessage struct {
	channel string
	body    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []publishedMessage
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.mu.Lock()
	defer p.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	if p.err != nil {
		cmd.SetErr(p.err)
		return cmd
	}
	body, _ := message.([]byte)
	p.sent = append(p.sent, publishedMessage{channel: channel, body: body})
	cmd.SetVal(1)
	return cmd
}

func TestNotificationCreateRelaysToEmployeeChannel(t *testing.T) {
	repo := &fakeNotificationRepo{}
	dispatcher := events.NewInMemoryDispatcher()
	publisher := &fakePublisher{}
	NewRealtimeRelay(publisher, "notifications:", nil).Register(dispatcher)
	svc := NewNotificationService(repo, dispatcher, nil)

	record := &domain.NotificationRecord{RecipientID: "emp-1", Message: "hi", Type: domain.NotificationRolePromoted, Read: true}
	require.NoError(t, svc.Create(context.Background(), record))

	assert.NotEmpty(t, record.ID)
	assert.False(t, record.Read, "new notifications start unread")
	require.Len(t, publisher.sent, 1)
	assert.Equal(t, "notifications:emp-1", publisher.sent[0].channel)

	var event map[string]any
	require.NoError(t, json.Unmarshal(publisher.sent[0].body, &event))
	assert.Equal(t, string(events.EventNotificationCreated), event["type"])
	assert.Equal(t, "emp-1", event["employee_id"])
}

func TestNotificationCreateSurvivesRelayFailure(t *testing.T) {
	repo := &fakeNotificationRepo{}
	dispatcher := events.NewInMemoryDispatcher()
	NewRealtimeRelay(&fakePublisher{err: errors.New("redis down")}, "", nil).Register(dispatcher)
	svc := NewNotificationService(repo, dispatcher, nil)

	require.NoError(t, svc.Create(context.Background(), &domain.NotificationRecord{RecipientID: "emp-1", Message: "hi"}))
	assert.Len(t, repo.records, 1)
}

func TestNotificationListAndMarkRead(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, nil, nil)
	ctx := context.Background()

	first := &domain.NotificationRecord{RecipientID: "a", Message: "one"}
	require.NoError(t, svc.Create(ctx, first))
	require.NoError(t, svc.Create(ctx, &domain.NotificationRecord{RecipientID: "a", Message: "two"}))
	require.NoError(t, svc.Create(ctx, &domain.NotificationRecord{RecipientID: "b", Message: "other"}))

	list, err := svc.List(ctx, "a", false, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].Message)

	require.NoError(t, svc.MarkRead(ctx, "a", first.ID))
	unread, err := svc.List(ctx, "a", true, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "two", unread[0].Message)

	err = svc.MarkRead(ctx, "b", first.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(err), "recipients only mark their own notifications")

	empty, err := svc.List(ctx, "nobody", false, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
}
