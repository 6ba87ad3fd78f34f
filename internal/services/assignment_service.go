package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/wizone/it-support-api/internal/events"
	"github.com/wizone/it-support-api/internal/models"
)

var (
	ErrEngineerNotFound = errors.New("field engineer not found")
	ErrNotFieldEngineer = errors.New("user is not an active field engineer")
)

// AssignmentService binds engineers to tasks and records why.
type AssignmentService struct {
	tasks *TaskService
}

// NewAssignmentService creates the service on top of the task store.
func NewAssignmentService(tasks *TaskService) *AssignmentService {
	return &AssignmentService{tasks: tasks}
}

// AssignFieldEngineer dispatches a field engineer to the task and moves it
// to assigned_to_field. Every call appends one assignment entry, even when
// the same engineer is assigned again.
func (s *AssignmentService) AssignFieldEngineer(ctx context.Context, taskID, engineerID uint64, actor Actor) (*models.Task, error) {
	engineer, err := s.tasks.users.FindByID(ctx, engineerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEngineerNotFound
		}
		return nil, fmt.Errorf("failed to find field engineer: %w", err)
	}
	if engineer.Role != models.RoleFieldEngineer || !engineer.IsActive {
		return nil, ErrNotFieldEngineer
	}

	var (
		oldStatus     models.TaskStatus
		statusChanged bool
	)

	task, err := s.tasks.tasks.UpdateLocked(ctx, taskID, nil, func(task *models.Task) ([]models.TaskUpdate, error) {
		if !Visible(actor, task) {
			return nil, ErrTaskNotFound
		}
		if task.Status.IsTerminal() {
			return nil, ErrTaskClosed
		}

		previous := task.FieldEngineerID
		id := engineer.ID
		task.FieldEngineerID = &id

		oldStatus = task.Status
		changed, err := models.ApplyTransition(task, models.Transition{
			To:        models.TaskStatusAssignedToField,
			ActorID:   actor.id(),
			ActorRole: actor.Role,
			Now:       s.tasks.now(),
		})
		if err != nil {
			return nil, err
		}
		statusChanged = changed

		entries := []models.TaskUpdate{
			userEntry(actor, models.UpdateTypeAssignment, idPtrString(previous), idPtrString(task.FieldEngineerID),
				"Assigned to field engineer "+engineer.DisplayName()),
		}
		if changed {
			entries = append(entries, statusEntry(actor, oldStatus, task.Status, ""))
		}
		return entries, nil
	})
	if err != nil {
		return nil, s.tasks.mutationError(err)
	}

	userActor := events.Actor{Type: models.ActorUser, UserID: actor.id()}
	s.tasks.publish(ctx, events.New(events.EventTaskAssigned, task, userActor,
		events.TaskAssignedPayload{AssignedTo: task.AssignedTo, FieldEngineerID: task.FieldEngineerID}))
	if statusChanged {
		s.tasks.publishStatusChange(ctx, task, userActor, oldStatus, "", false)
	}

	return s.tasks.reload(ctx, task.ID)
}

// AssignEngineer sets or clears the office engineer of a task.
func (s *AssignmentService) AssignEngineer(ctx context.Context, taskID uint64, engineerID *uint64, actor Actor) (*models.Task, error) {
	input := UpdateTaskInput{AssignedTo: engineerID, Unassign: engineerID == nil}
	return s.tasks.UpdateTask(ctx, taskID, input, actor)
}
