package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wizone/it-support-api/internal/events"
	"github.com/wizone/it-support-api/internal/models"
)

type recordingPublisher struct {
	channel  string
	messages [][]byte
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	if b, ok := message.([]byte); ok {
		p.messages = append(p.messages, b)
	}
	return redis.NewIntResult(1, p.err)
}

func TestNotifier_PublishesEventJSON(t *testing.T) {
	pub := &recordingPublisher{}
	dispatcher := events.NewInMemoryDispatcher(nil)
	NewNotifier(pub, "wizone:notifications", nil).Register(dispatcher)

	task := &models.Task{ID: 12, TicketNumber: "WZ-20240101-000001"}
	event := events.New(events.EventTaskStatusChanged, task, events.Actor{Type: models.ActorUser}, events.TaskStatusChangedPayload{
		OldStatus: models.TaskStatusPending,
		NewStatus: models.TaskStatusInProgress,
	})
	require.NoError(t, dispatcher.Publish(context.Background(), event))

	require.Len(t, pub.messages, 1)
	assert.Equal(t, "wizone:notifications", pub.channel)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.messages[0], &decoded))
	assert.Equal(t, "task_status_changed", decoded["type"])
	assert.Equal(t, float64(12), decoded["task_id"])
}

func TestNotifier_ReportsPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	n := NewNotifier(pub, "ch", nil)

	err := n.Handle(context.Background(), events.Event{Type: events.EventTaskCreated})
	assert.ErrorContains(t, err, "redis down")
}

func TestNotifier_LogOnlyWithoutPublisher(t *testing.T) {
	n := NewNotifier(nil, "ch", nil)
	assert.NoError(t, n.Handle(context.Background(), events.Event{Type: events.EventTaskCreated}))
}
