package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wizone/it-support-api/internal/events"
	"github.com/wizone/it-support-api/internal/models"
)

const autoCompleteNote = "Automatically completed after field resolution"

// errNotDue aborts a locked auto-complete that no longer applies.
var errNotDue = errors.New("auto-complete not due")

// UpdateFieldStatus moves a task through the field workflow.
func (s *TaskService) UpdateFieldStatus(ctx context.Context, taskID uint64, status, note string, actor Actor) (*models.Task, error) {
	target, err := models.ParseTaskStatus(status)
	if err != nil {
		return nil, err
	}
	note, err = validateNote(note, nil)
	if err != nil {
		return nil, err
	}

	var (
		oldStatus models.TaskStatus
		changed   bool
	)

	task, err := s.tasks.UpdateLocked(ctx, taskID, nil, func(task *models.Task) ([]models.TaskUpdate, error) {
		if !Visible(actor, task) {
			return nil, ErrTaskNotFound
		}

		oldStatus = task.Status
		moved, err := models.ApplyTransition(task, models.Transition{
			To:                target,
			Note:              note,
			ActorID:           actor.id(),
			ActorRole:         actor.Role,
			Now:               s.now(),
			AutoCompleteDelay: s.autoCompleteDelay,
		})
		if err != nil {
			return nil, err
		}
		changed = moved

		if changed {
			return []models.TaskUpdate{statusEntry(actor, oldStatus, task.Status, note)}, nil
		}
		msg := note
		if msg == "" {
			msg = "Status confirmed as " + string(task.Status)
		}
		return []models.TaskUpdate{userEntry(actor, models.UpdateTypeNoteAdded, nil, nil, msg)}, nil
	})
	if err != nil {
		return nil, s.mutationError(err)
	}

	if changed {
		s.publishStatusChange(ctx, task, events.Actor{Type: models.ActorUser, UserID: actor.id()}, oldStatus, note, false)
	}
	return s.reload(ctx, task.ID)
}

// CompleteTask closes a task with a mandatory completion note.
func (s *TaskService) CompleteTask(ctx context.Context, taskID uint64, note string, attachments []string, actor Actor) (*models.Task, error) {
	note, err := validateNote(note, attachments)
	if err != nil {
		return nil, err
	}

	var oldStatus models.TaskStatus

	task, err := s.tasks.UpdateLocked(ctx, taskID, nil, func(task *models.Task) ([]models.TaskUpdate, error) {
		if !Visible(actor, task) {
			return nil, ErrTaskNotFound
		}
		if task.Status == models.TaskStatusCompleted {
			return nil, ErrTaskAlreadyCompleted
		}

		oldStatus = task.Status
		if _, err := models.ApplyTransition(task, models.Transition{
			To:        models.TaskStatusCompleted,
			Note:      note,
			ActorID:   actor.id(),
			ActorRole: actor.Role,
			Now:       s.now(),
		}); err != nil {
			return nil, err
		}

		entries := []models.TaskUpdate{
			statusEntry(actor, oldStatus, task.Status, note),
			userEntry(actor, models.UpdateTypeCompletion, nil, nil, note),
		}
		if len(attachments) > 0 {
			entry, err := attachmentEntry(actor, attachments)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		return entries, nil
	})
	if err != nil {
		return nil, s.mutationError(err)
	}

	s.publishStatusChange(ctx, task, events.Actor{Type: models.ActorUser, UserID: actor.id()}, oldStatus, note, false)
	return s.reload(ctx, task.ID)
}

// CompleteIfDue applies the deferred auto-close of a task resolved by a
// field engineer. It reports whether the task was closed by this call;
// evaluating it again after the close is a no-op.
func (s *TaskService) CompleteIfDue(ctx context.Context, taskID uint64) (bool, error) {
	now := s.now()

	task, err := s.tasks.UpdateLocked(ctx, taskID, nil, func(task *models.Task) ([]models.TaskUpdate, error) {
		if !task.AutoCompleteDue(now) {
			return nil, errNotDue
		}

		if _, err := models.ApplyTransition(task, models.Transition{
			To:      models.TaskStatusCompleted,
			Note:    autoCompleteNote,
			ActorID: task.ResolvedBy,
			Now:     now,
		}); err != nil {
			return nil, err
		}

		from := strPtr(string(models.TaskStatusResolved))
		to := strPtr(string(models.TaskStatusCompleted))
		return []models.TaskUpdate{
			systemEntry(models.UpdateTypeStatusChange, from, to, autoCompleteNote),
			systemEntry(models.UpdateTypeAutoCompleted, from, to, autoCompleteNote),
		}, nil
	})
	if err != nil {
		if errors.Is(err, errNotDue) {
			return false, nil
		}
		return false, s.mutationError(err)
	}

	s.logger.Info("task auto-completed", zap.Uint64("task_id", task.ID), zap.String("ticket_number", task.TicketNumber))
	s.publishStatusChange(ctx, task, events.Actor{Type: models.ActorSystem}, models.TaskStatusResolved, autoCompleteNote, true)
	return true, nil
}

// SweepAutoComplete closes every task whose deferred close is due and
// returns how many were closed.
func (s *TaskService) SweepAutoComplete(ctx context.Context, limit int) (int, error) {
	ids, err := s.tasks.ListAutoCompleteDue(ctx, s.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list due tasks: %w", err)
	}

	closed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return closed, err
		}
		done, err := s.CompleteIfDue(ctx, id)
		if err != nil {
			s.logger.Error("auto-complete failed", zap.Uint64("task_id", id), zap.Error(err))
			continue
		}
		if done {
			closed++
		}
	}
	return closed, nil
}
