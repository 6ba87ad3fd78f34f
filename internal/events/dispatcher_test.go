package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wizone/it-support-api/internal/models"
)

func TestDispatcher_PublishInvokesSubscribersInOrder(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var calls []string
	d.Subscribe(EventTaskCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.TicketNumber)
		return errors.New("boom")
	})
	d.Subscribe(EventTaskCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.TicketNumber)
		return nil
	})
	d.Subscribe(EventTaskCompleted, func(_ context.Context, _ Event) error {
		calls = append(calls, "completed")
		return nil
	})

	task := &models.Task{ID: 3, TicketNumber: "WZ-1"}
	require.NoError(t, d.Publish(context.Background(), New(EventTaskCreated, task, Actor{Type: models.ActorUser}, nil)))

	assert.Equal(t, []string{"first:WZ-1", "second:WZ-1"}, calls)
}

func TestNew_AssignsIdentity(t *testing.T) {
	task := &models.Task{ID: 7, TicketNumber: "WZ-20240101-ABCDEF"}

	a := New(EventTaskAssigned, task, Actor{Type: models.ActorSystem}, TaskAssignedPayload{})
	b := New(EventTaskAssigned, task, Actor{Type: models.ActorSystem}, TaskAssignedPayload{})

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, uint64(7), a.TaskID)
	assert.False(t, a.Timestamp.IsZero())
}
