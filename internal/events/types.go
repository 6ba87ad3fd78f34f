package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/wizone/it-support-api/internal/models"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTaskCreated       EventType = "task_created"
	EventTaskStatusChanged EventType = "task_status_changed"
	EventTaskAssigned      EventType = "task_assigned"
	EventTaskCompleted     EventType = "task_completed"
)

// AllTypes lists every event type, in publication order of a typical task.
var AllTypes = []EventType{
	EventTaskCreated,
	EventTaskAssigned,
	EventTaskStatusChanged,
	EventTaskCompleted,
}

// Actor describes who caused an event.
type Actor struct {
	Type       models.ActorType `json:"type"`
	UserID     *uint64          `json:"user_id,omitempty"`
	CustomerID *uint64          `json:"customer_id,omitempty"`
}

// Event is a task event emitted after the owning transaction commits.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	TaskID       uint64      `json:"task_id"`
	TicketNumber string      `json:"ticket_number"`
	Actor        Actor       `json:"actor"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// New builds an event with a fresh ID and the current time.
func New(eventType EventType, task *models.Task, actor Actor, payload interface{}) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		TaskID:       task.ID,
		TicketNumber: task.TicketNumber,
		Actor:        actor,
		Timestamp:    time.Now().UTC(),
		Payload:      payload,
	}
}

// TaskCreatedPayload payload.
type TaskCreatedPayload struct {
	CustomerID uint64              `json:"customer_id"`
	Priority   models.TaskPriority `json:"priority"`
	Title      string              `json:"title"`
}

// TaskStatusChangedPayload payload.
type TaskStatusChangedPayload struct {
	OldStatus models.TaskStatus `json:"old_status"`
	NewStatus models.TaskStatus `json:"new_status"`
	Note      string            `json:"note,omitempty"`
}

// TaskAssignedPayload payload.
type TaskAssignedPayload struct {
	AssignedTo      *uint64 `json:"assigned_to,omitempty"`
	FieldEngineerID *uint64 `json:"field_engineer_id,omitempty"`
}

// TaskCompletedPayload payload.
type TaskCompletedPayload struct {
	CompletionNote string `json:"completion_note"`
	ActualTime     *int   `json:"actual_time,omitempty"`
	Automatic      bool   `json:"automatic"`
}
