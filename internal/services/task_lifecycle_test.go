package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wizone/it-support-api/internal/events"
	"github.com/wizone/it-support-api/internal/models"
)

// resolvedByField walks a task to resolved through the field workflow.
func resolvedByField(t *testing.T, env serviceTestEnv) (*models.Task, Actor, Actor) {
	t.Helper()
	ctx := context.Background()
	manager := env.createUser(t, "manager", models.RoleManager)
	field := env.createUser(t, "field", models.RoleFieldEngineer)

	task := env.createTask(t, manager, "Fiber cut")
	_, err := env.assign.AssignFieldEngineer(ctx, task.ID, field.UserID, manager)
	require.NoError(t, err)
	_, err = env.tasks.UpdateFieldStatus(ctx, task.ID, "start_task", "", field)
	require.NoError(t, err)
	task, err = env.tasks.UpdateFieldStatus(ctx, task.ID, "resolved", "spliced cable", field)
	require.NoError(t, err)

	return task, manager, field
}

func TestUpdateFieldStatus_WaitingRecordsReason(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	manager := env.createUser(t, "manager", models.RoleManager)
	field := env.createUser(t, "field", models.RoleFieldEngineer)
	task := env.createTask(t, manager, "Install modem")

	_, err := env.assign.AssignFieldEngineer(ctx, task.ID, field.UserID, manager)
	require.NoError(t, err)

	task, err = env.tasks.UpdateFieldStatus(ctx, task.ID, "waiting_for_customer", "gate locked", field)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusWaitingForCustomer, task.Status)
	assert.Equal(t, "gate locked", task.FieldWaitingReason)
	require.NotNil(t, task.FieldWaitingTime)
	assert.True(t, env.clock.Now().Equal(*task.FieldWaitingTime))

	_, err = env.tasks.UpdateFieldStatus(ctx, task.ID, "bogus", "", field)
	assert.ErrorIs(t, err, models.ErrUnknownStatus)
}

func TestUpdateFieldStatus_OtherFieldEngineerCannotTouchTask(t *testing.T) {
	env := setupServiceTestEnv(t)
	task, _, _ := resolvedByField(t, env)
	other := env.createUser(t, "other", models.RoleFieldEngineer)

	_, err := env.tasks.UpdateFieldStatus(context.Background(), task.ID, "in_progress", "", other)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestFieldResolveSchedulesAutoComplete(t *testing.T) {
	env := setupServiceTestEnv(t)
	task, _, field := resolvedByField(t, env)

	assert.Equal(t, models.TaskStatusResolved, task.Status)
	require.NotNil(t, task.AutoCompleteAt)
	assert.True(t, env.clock.Now().Add(5*time.Minute).Equal(*task.AutoCompleteAt))
	require.NotNil(t, task.ResolvedBy)
	assert.Equal(t, field.UserID, *task.ResolvedBy)
	assert.Equal(t, "spliced cable", task.Resolution)
}

func TestCompleteIfDue_SurvivesRestartAndIsIdempotent(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	task, manager, _ := resolvedByField(t, env)

	done, err := env.tasks.CompleteIfDue(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, done, "not due yet")

	env.clock.Advance(5 * time.Minute)

	// A fresh service instance stands in for a restarted process.
	restarted := NewTaskService(env.deps)

	var completed []events.Event
	env.dispatcher.Subscribe(events.EventTaskCompleted, func(_ context.Context, e events.Event) error {
		completed = append(completed, e)
		return nil
	})

	done, err = restarted.CompleteIfDue(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = restarted.CompleteIfDue(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, done)

	stored, err := restarted.GetTask(ctx, task.ID, manager)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, stored.Status)
	assert.Nil(t, stored.AutoCompleteAt)
	assert.Equal(t, autoCompleteNote, stored.CompletionNote)
	require.NotNil(t, stored.ActualTime)

	auto := env.updatesOfType(t, task.ID, models.UpdateTypeAutoCompleted)
	require.Len(t, auto, 1)
	assert.Equal(t, models.ActorSystem, auto[0].ActorType)
	assert.Nil(t, auto[0].UpdatedBy)

	require.Len(t, completed, 1)
	assert.True(t, completed[0].Payload.(events.TaskCompletedPayload).Automatic)
}

func TestGetTask_AppliesDueAutoCompleteLazily(t *testing.T) {
	env := setupServiceTestEnv(t)
	task, manager, _ := resolvedByField(t, env)

	env.clock.Advance(6 * time.Minute)

	stored, err := env.tasks.GetTask(context.Background(), task.ID, manager)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, stored.Status)
	assert.Len(t, env.updatesOfType(t, task.ID, models.UpdateTypeAutoCompleted), 1)
}

func TestReopenCancelsAutoComplete(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	task, manager, _ := resolvedByField(t, env)

	task, err := env.tasks.UpdateTask(ctx, task.ID, UpdateTaskInput{Status: strp("in_progress"), Note: "customer still offline"}, manager)
	require.NoError(t, err)
	assert.Nil(t, task.AutoCompleteAt)

	env.clock.Advance(time.Hour)

	done, err := env.tasks.CompleteIfDue(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, done)

	closed, err := env.tasks.SweepAutoComplete(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, closed)
}

func TestSweepAutoComplete_ClosesOnlyDueTasks(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	task, manager, field := resolvedByField(t, env)

	env.clock.Advance(3 * time.Minute)

	later := env.createTask(t, manager, "Second visit")
	_, err := env.assign.AssignFieldEngineer(ctx, later.ID, field.UserID, manager)
	require.NoError(t, err)
	_, err = env.tasks.UpdateFieldStatus(ctx, later.ID, "resolved", "", field)
	require.NoError(t, err)

	env.clock.Advance(3 * time.Minute)

	closed, err := env.tasks.SweepAutoComplete(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	first, err := env.tasks.GetTask(ctx, task.ID, manager)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, first.Status)

	var second models.Task
	require.NoError(t, env.db.First(&second, later.ID).Error)
	assert.Equal(t, models.TaskStatusResolved, second.Status)
}

func TestCompleteTask(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin", models.RoleAdmin)
	task := env.createTask(t, admin, "Replace router")

	_, err := env.tasks.CompleteTask(ctx, task.ID, "", nil, admin)
	assert.ErrorIs(t, err, models.ErrCompletionNoteMissing)

	done, err := env.tasks.CompleteTask(ctx, task.ID, "swapped unit", []string{"photo.jpg"}, admin)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, done.Status)
	assert.Nil(t, done.ActualTime, "never started")
	require.NotNil(t, done.ResolvedBy)
	assert.Equal(t, admin.UserID, *done.ResolvedBy)

	assert.Len(t, env.updatesOfType(t, task.ID, models.UpdateTypeFileUploaded), 1)

	_, err = env.tasks.CompleteTask(ctx, task.ID, "again", nil, admin)
	assert.ErrorIs(t, err, ErrTaskAlreadyCompleted)
}
