package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskStatusPending            TaskStatus = "pending"
	TaskStatusOpen               TaskStatus = "open"
	TaskStatusInProgress         TaskStatus = "in_progress"
	TaskStatusAssignedToField    TaskStatus = "assigned_to_field"
	TaskStatusStartTask          TaskStatus = "start_task"
	TaskStatusWaitingForCustomer TaskStatus = "waiting_for_customer"
	TaskStatusResolved           TaskStatus = "resolved"
	TaskStatusCompleted          TaskStatus = "completed"
	TaskStatusCancelled          TaskStatus = "cancelled"
)

var (
	ErrUnknownStatus         = errors.New("unknown task status")
	ErrTransitionNotAllowed  = errors.New("status transition not allowed")
	ErrCompletionNoteMissing = errors.New("a completion note is required to complete a task")
)

// activeTargets are reachable from every state that is neither resolved nor terminal.
var activeTargets = []TaskStatus{
	TaskStatusInProgress,
	TaskStatusAssignedToField,
	TaskStatusWaitingForCustomer,
	TaskStatusResolved,
	TaskStatusCompleted,
	TaskStatusCancelled,
}

// start_task is on-site work and is entered only from the field states.
// resolved may only be closed or reopened.
var transitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:            append([]TaskStatus{TaskStatusOpen}, activeTargets...),
	TaskStatusOpen:               append([]TaskStatus{TaskStatusPending}, activeTargets...),
	TaskStatusInProgress:         append([]TaskStatus{TaskStatusPending}, activeTargets...),
	TaskStatusAssignedToField:    append([]TaskStatus{TaskStatusStartTask}, activeTargets...),
	TaskStatusStartTask:          activeTargets,
	TaskStatusWaitingForCustomer: append([]TaskStatus{TaskStatusStartTask}, activeTargets...),
	TaskStatusResolved:           {TaskStatusCompleted, TaskStatusInProgress, TaskStatusAssignedToField},
	TaskStatusCompleted:          nil,
	TaskStatusCancelled:          nil,
}

// ParseTaskStatus validates free text coming from a client.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transitions[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return status, nil
}

// IsTerminal reports whether no further transitions leave s.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// CanTransition reports whether the allow-list permits from -> to.
// Staying in the same state is always permitted.
func CanTransition(from, to TaskStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition describes a requested status change.
type Transition struct {
	To        TaskStatus
	Note      string
	ActorID   *uint64
	ActorRole UserRole
	Now       time.Time

	// AutoCompleteDelay is applied when a field engineer resolves a task.
	AutoCompleteDelay time.Duration
}

// ApplyTransition validates tr against the allow-list and sets every
// timestamp that depends on the new status. It returns whether the status
// actually changed.
func ApplyTransition(task *Task, tr Transition) (bool, error) {
	from := task.Status
	if !CanTransition(from, tr.To) {
		return false, fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, tr.To)
	}
	note := strings.TrimSpace(tr.Note)

	if from == tr.To {
		return false, nil
	}

	switch tr.To {
	case TaskStatusInProgress:
		setOnce(&task.StartTime, tr.Now)
	case TaskStatusStartTask:
		setOnce(&task.StartTime, tr.Now)
		now := tr.Now
		task.FieldStartTime = &now
	case TaskStatusWaitingForCustomer:
		now := tr.Now
		task.FieldWaitingTime = &now
		task.FieldWaitingReason = note
	case TaskStatusResolved:
		now := tr.Now
		task.ResolvedAt = &now
		task.ResolvedBy = tr.ActorID
		if note != "" {
			task.Resolution = note
		}
		if tr.ActorRole == RoleFieldEngineer && tr.AutoCompleteDelay > 0 {
			due := tr.Now.Add(tr.AutoCompleteDelay)
			task.AutoCompleteAt = &due
		}
	case TaskStatusCompleted:
		if note == "" {
			return false, ErrCompletionNoteMissing
		}
		now := tr.Now
		task.CompletionTime = &now
		task.CompletionNote = note
		if task.ResolvedBy == nil {
			task.ResolvedBy = tr.ActorID
		}
		if task.StartTime != nil {
			minutes := ElapsedMinutes(*task.StartTime, now)
			task.ActualTime = &minutes
		}
	}

	if from == TaskStatusResolved || tr.To == TaskStatusCompleted {
		task.AutoCompleteAt = nil
	}

	task.Status = tr.To
	return true, nil
}

// ElapsedMinutes returns end-start in whole minutes, rounded half away from zero.
func ElapsedMinutes(start, end time.Time) int {
	return int(math.Round(end.Sub(start).Minutes()))
}

func setOnce(field **time.Time, now time.Time) {
	if *field == nil {
		t := now
		*field = &t
	}
}
