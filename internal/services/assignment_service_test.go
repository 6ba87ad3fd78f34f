package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wizone/it-support-api/internal/models"
)

func TestAssignFieldEngineer_AppendsOneAssignmentPerCall(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	manager := env.createUser(t, "manager", models.RoleManager)
	field := env.createUser(t, "jane", models.RoleFieldEngineer)
	task := env.createTask(t, manager, "Antenna alignment")

	for i := 1; i <= 2; i++ {
		updated, err := env.assign.AssignFieldEngineer(ctx, task.ID, field.UserID, manager)
		require.NoError(t, err)
		require.NotNil(t, updated.FieldEngineerID)
		assert.Equal(t, field.UserID, *updated.FieldEngineerID)
		assert.Equal(t, models.TaskStatusAssignedToField, updated.Status)

		rows := env.updatesOfType(t, task.ID, models.UpdateTypeAssignment)
		require.Len(t, rows, i)
		assert.Equal(t, "Assigned to field engineer jane Tester", rows[i-1].Note)
	}

	// Only the first call moved the status.
	assert.Len(t, env.updatesOfType(t, task.ID, models.UpdateTypeStatusChange), 1)
}

func TestAssignFieldEngineer_Validation(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	manager := env.createUser(t, "manager", models.RoleManager)
	office := env.createUser(t, "office", models.RoleEngineer)
	field := env.createUser(t, "field", models.RoleFieldEngineer)
	task := env.createTask(t, manager, "Tower check")

	_, err := env.assign.AssignFieldEngineer(ctx, task.ID, 9999, manager)
	assert.ErrorIs(t, err, ErrEngineerNotFound)

	_, err = env.assign.AssignFieldEngineer(ctx, task.ID, office.UserID, manager)
	assert.ErrorIs(t, err, ErrNotFieldEngineer)

	_, err = env.assign.AssignFieldEngineer(ctx, 9999, field.UserID, manager)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = env.tasks.UpdateTask(ctx, task.ID, UpdateTaskInput{Status: strp("cancelled")}, manager)
	require.NoError(t, err)

	_, err = env.assign.AssignFieldEngineer(ctx, task.ID, field.UserID, manager)
	assert.ErrorIs(t, err, ErrTaskClosed)
	assert.Empty(t, env.updatesOfType(t, task.ID, models.UpdateTypeAssignment))
}

func TestVisible(t *testing.T) {
	me := uint64(1)
	other := uint64(2)

	cases := []struct {
		name    string
		role    models.UserRole
		task    models.Task
		visible bool
	}{
		{"admin sees all", models.RoleAdmin, models.Task{AssignedTo: &other}, true},
		{"manager sees all", models.RoleManager, models.Task{FieldEngineerID: &other}, true},
		{"field engineer own", models.RoleFieldEngineer, models.Task{FieldEngineerID: &me}, true},
		{"field engineer unassigned", models.RoleFieldEngineer, models.Task{}, false},
		{"field engineer other", models.RoleFieldEngineer, models.Task{FieldEngineerID: &other}, false},
		{"engineer assigned", models.RoleEngineer, models.Task{AssignedTo: &me}, true},
		{"engineer as field", models.RoleEngineer, models.Task{FieldEngineerID: &me}, true},
		{"engineer unassigned pool", models.RoleEngineer, models.Task{}, true},
		{"engineer other", models.RoleEngineer, models.Task{AssignedTo: &other}, false},
		{"backend engineer pool", models.RoleBackendEngineer, models.Task{}, true},
		{"unknown role", models.UserRole("intern"), models.Task{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := tc.task
			assert.Equal(t, tc.visible, Visible(Actor{UserID: me, Role: tc.role}, &task))
		})
	}
}
