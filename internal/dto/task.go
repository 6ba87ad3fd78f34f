package dto

import (
	"encoding/json"
	"time"

	"github.com/wizone/it-support-api/internal/models"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID                 uint64              `json:"id"`
	TicketNumber       string              `json:"ticket_number"`
	CustomerID         uint64              `json:"customer_id"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	Priority           models.TaskPriority `json:"priority"`
	IssueType          string              `json:"issue_type"`
	Status             models.TaskStatus   `json:"status"`
	AssignedTo         *uint64             `json:"assigned_to"`
	FieldEngineerID    *uint64             `json:"field_engineer_id"`
	CreatedBy          *uint64             `json:"created_by"`
	ResolvedBy         *uint64             `json:"resolved_by"`
	ContactPerson      string              `json:"contact_person"`
	ContactPhone       string              `json:"contact_phone"`
	Resolution         string              `json:"resolution"`
	CompletionNote     string              `json:"completion_note"`
	FieldWaitingReason string              `json:"field_waiting_reason"`
	StartTime          *time.Time          `json:"start_time"`
	CompletionTime     *time.Time          `json:"completion_time"`
	FieldStartTime     *time.Time          `json:"field_start_time"`
	FieldWaitingTime   *time.Time          `json:"field_waiting_time"`
	ResolvedAt         *time.Time          `json:"resolved_at"`
	AutoCompleteAt     *time.Time          `json:"auto_complete_at"`
	EstimatedTime      *int                `json:"estimated_time"`
	ActualTime         *int                `json:"actual_time"`
	Version            uint64              `json:"version"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	Customer           *CustomerSummaryDTO `json:"customer,omitempty"`
	Assignee           *UserSummaryDTO     `json:"assignee,omitempty"`
	FieldEngineer      *UserSummaryDTO     `json:"field_engineer,omitempty"`
}

// TaskListItemDTO represents a task in list responses (minimal data)
type TaskListItemDTO struct {
	ID              uint64              `json:"id"`
	TicketNumber    string              `json:"ticket_number"`
	Title           string              `json:"title"`
	Priority        models.TaskPriority `json:"priority"`
	IssueType       string              `json:"issue_type"`
	Status          models.TaskStatus   `json:"status"`
	CustomerID      uint64              `json:"customer_id"`
	AssignedTo      *uint64             `json:"assigned_to"`
	FieldEngineerID *uint64             `json:"field_engineer_id"`
	Version         uint64              `json:"version"`
	CreatedAt       time.Time           `json:"created_at"`
	Customer        *CustomerSummaryDTO `json:"customer,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskListItemDTO `json:"tasks"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int64             `json:"total_count"`
	TotalPages int               `json:"total_pages"`
}

// TaskUpdateDTO represents one audit entry
type TaskUpdateDTO struct {
	ID          uint64            `json:"id"`
	TaskID      uint64            `json:"task_id"`
	UpdatedBy   *uint64           `json:"updated_by"`
	ActorType   models.ActorType  `json:"actor_type"`
	UpdateType  models.UpdateType `json:"update_type"`
	OldValue    *string           `json:"old_value"`
	NewValue    *string           `json:"new_value"`
	Note        string            `json:"note"`
	Attachments []string          `json:"attachments,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Actor       *UserSummaryDTO   `json:"actor,omitempty"`
}

// StatsDTO represents dashboard counters
type StatsDTO struct {
	Total    int64                       `json:"total"`
	ByStatus map[models.TaskStatus]int64 `json:"by_status"`
}

// Conversion functions

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:                 task.ID,
		TicketNumber:       task.TicketNumber,
		CustomerID:         task.CustomerID,
		Title:              task.Title,
		Description:        task.Description,
		Priority:           task.Priority,
		IssueType:          task.IssueType,
		Status:             task.Status,
		AssignedTo:         task.AssignedTo,
		FieldEngineerID:    task.FieldEngineerID,
		CreatedBy:          task.CreatedBy,
		ResolvedBy:         task.ResolvedBy,
		ContactPerson:      task.ContactPerson,
		ContactPhone:       task.ContactPhone,
		Resolution:         task.Resolution,
		CompletionNote:     task.CompletionNote,
		FieldWaitingReason: task.FieldWaitingReason,
		StartTime:          task.StartTime,
		CompletionTime:     task.CompletionTime,
		FieldStartTime:     task.FieldStartTime,
		FieldWaitingTime:   task.FieldWaitingTime,
		ResolvedAt:         task.ResolvedAt,
		AutoCompleteAt:     task.AutoCompleteAt,
		EstimatedTime:      task.EstimatedTime,
		ActualTime:         task.ActualTime,
		Version:            task.Version,
		CreatedAt:          task.CreatedAt,
		UpdatedAt:          task.UpdatedAt,
		// Relations are included only if preloaded
		Customer:      toCustomerSummary(task.Customer),
		Assignee:      toUserSummary(task.Assignee),
		FieldEngineer: toUserSummary(task.FieldEngineer),
	}
}

// ToTaskListItemDTO converts a Task model to TaskListItemDTO
func ToTaskListItemDTO(task models.Task) TaskListItemDTO {
	return TaskListItemDTO{
		ID:              task.ID,
		TicketNumber:    task.TicketNumber,
		Title:           task.Title,
		Priority:        task.Priority,
		IssueType:       task.IssueType,
		Status:          task.Status,
		CustomerID:      task.CustomerID,
		AssignedTo:      task.AssignedTo,
		FieldEngineerID: task.FieldEngineerID,
		Version:         task.Version,
		CreatedAt:       task.CreatedAt,
		Customer:        toCustomerSummary(task.Customer),
	}
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	items := make([]TaskListItemDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskListItemDTO(task)
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages(totalCount, pageSize),
	}
}

// ToTaskUpdateDTO converts an audit entry
func ToTaskUpdateDTO(u models.TaskUpdate) TaskUpdateDTO {
	dto := TaskUpdateDTO{
		ID:         u.ID,
		TaskID:     u.TaskID,
		UpdatedBy:  u.UpdatedBy,
		ActorType:  u.ActorType,
		UpdateType: u.UpdateType,
		OldValue:   u.OldValue,
		NewValue:   u.NewValue,
		Note:       u.Note,
		CreatedAt:  u.CreatedAt,
		Actor:      toUserSummary(u.Actor),
	}
	if len(u.Attachments) > 0 {
		// Malformed rows fall back to no attachments
		_ = json.Unmarshal(u.Attachments, &dto.Attachments)
	}
	return dto
}

// ToTaskUpdateDTOs converts an audit trail
func ToTaskUpdateDTOs(updates []models.TaskUpdate) []TaskUpdateDTO {
	out := make([]TaskUpdateDTO, len(updates))
	for i, u := range updates {
		out[i] = ToTaskUpdateDTO(u)
	}
	return out
}

func totalPages(totalCount int64, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	pages := int(totalCount) / pageSize
	if int(totalCount)%pageSize > 0 {
		pages++
	}
	return pages
}
